package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"gorm.io/gorm"
)

type sentEvent struct {
	Topic string
	Key   string
	Type  string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sentEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic, key string, ev mykafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sentEvent{Topic: topic, Key: key, Type: ev.Type})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestRepo(t *testing.T) (*repo.GormRepo, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return &repo.GormRepo{DB: db}, db
}
