package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/repo"
)

const (
	DefaultTopProducts = 5
	MaxTopProducts     = 100
)

type ReportService struct {
	Repo *repo.GormRepo
}

// ParseDateRange accepts YYYY-MM-DD or RFC3339 bounds. A date-only upper
// bound covers the whole day.
func ParseDateRange(from, to string) (*time.Time, *time.Time, error) {
	f, err := parseBound(from, false)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: from: %v", ErrValidation, err)
	}
	t, err := parseBound(to, true)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: to: %v", ErrValidation, err)
	}
	if f != nil && t != nil && f.After(*t) {
		return nil, nil, fmt.Errorf("%w: from is after to", ErrValidation)
	}
	return f, t, nil
}

func parseBound(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", s)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (s *ReportService) Sales(ctx context.Context, from, to *time.Time) (*repo.SalesSummary, error) {
	return s.Repo.SalesSummary(ctx, from, to)
}

func (s *ReportService) TopProducts(ctx context.Context, limit int, from, to *time.Time) ([]repo.TopProduct, error) {
	if limit <= 0 {
		limit = DefaultTopProducts
	}
	if limit > MaxTopProducts {
		limit = MaxTopProducts
	}
	return s.Repo.TopProducts(ctx, limit, from, to)
}
