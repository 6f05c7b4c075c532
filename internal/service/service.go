package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"gorm.io/gorm"
)

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrUnauthorized      = errors.New("unauthorized")       // 401
	ErrInvalidToken      = errors.New("invalid token")      // 401
	ErrRevoked           = errors.New("token revoked")      // 401
	ErrExpired           = errors.New("token expired")      // 401
	ErrForbidden         = errors.New("forbidden")          // 403
	ErrNotFound          = errors.New("not found")          // 404
	ErrConflict          = errors.New("conflict")           // 409
	ErrInsufficientStock = errors.New("insufficient stock") // 400
	ErrEmptyCart         = errors.New("cart is empty")      // 400
	ErrAmountTooLow      = errors.New("amount too low")     // 400
	ErrInvalidState      = errors.New("invalid state")      // 400
	ErrUpstream          = errors.New("upstream failure")   // 502
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event mykafka.Event) error
}

// publish sends an event after the data is committed. Failures are logged
// and never undo the operation.
func publish(ctx context.Context, p Publisher, topic string, key uint, eventType string, payload any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, fmt.Sprint(key), mykafka.NewEvent(eventType, payload)); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", eventType, "error", err)
	}
}

// mapRepoErr turns repository errors into the service taxonomy. what names
// the missing entity.
func mapRepoErr(err error, what string) error {
	var se *repo.StockError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s not found", ErrNotFound, what)
	case errors.As(err, &se):
		if se.Missing {
			return fmt.Errorf("%w: product %d not found", ErrValidation, se.ProductID)
		}
		return fmt.Errorf("%w: product %d", ErrInsufficientStock, se.ProductID)
	case errors.Is(err, repo.ErrEmptyCart):
		return ErrEmptyCart
	case errors.Is(err, repo.ErrNotInCart):
		return fmt.Errorf("%w: product is not in the cart", ErrNotFound)
	}
	return err
}
