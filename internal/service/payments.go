package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payments"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type PaymentGateway interface {
	CreateIntent(ctx context.Context, req payments.IntentRequest) (*payments.Intent, error)
	ParseWebhook(payload []byte, sigHeader string) (*payments.WebhookEvent, error)
}

type PaymentService struct {
	Repo          *repo.GormRepo
	Gateway       PaymentGateway
	Currency      string
	Events        Publisher
	OnStockChange func(ctx context.Context, productIDs ...uint)
}

type QuoteLine struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
	LineCents int64  `json:"line_cents"`
}

type Quote struct {
	Lines    []QuoteLine `json:"lines"`
	Amount   int64       `json:"amount"`
	Currency string      `json:"currency"`
}

type IntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PaymentIntentID string `json:"payment_intent_id"`
}

func (s *PaymentService) currency() string {
	if s.Currency == "" {
		return "usd"
	}
	return strings.ToLower(s.Currency)
}

// Quote prices the cart in minor units. Each unit price is rounded once,
// then multiplied by its quantity.
func (s *PaymentService) Quote(ctx context.Context, userID uint) (*Quote, error) {
	lines, err := s.Repo.CartLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	q := &Quote{Lines: make([]QuoteLine, 0, len(lines)), Currency: s.currency()}
	for _, l := range lines {
		unit := payments.Cents(l.Price)
		line := unit * int64(l.Quantity)
		q.Lines = append(q.Lines, QuoteLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitCents: unit,
			LineCents: line,
		})
		q.Amount += line
	}
	return q, nil
}

// CreateIntent asks the gateway for a payment intent covering the cart.
// It creates no order and leaves stock untouched.
func (s *PaymentService) CreateIntent(ctx context.Context, userID uint) (*IntentResult, error) {
	l := logging.FromContext(ctx).With("svc", "payments.create_intent")

	q, err := s.Quote(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(q.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if q.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if minimum := payments.MinimumAmount(q.Currency); q.Amount < minimum {
		return nil, fmt.Errorf("%w: %d is below the %s minimum of %d", ErrAmountTooLow, q.Amount, q.Currency, minimum)
	}

	intent, err := s.Gateway.CreateIntent(ctx, payments.IntentRequest{Amount: q.Amount, Currency: q.Currency, UserID: userID})
	if err != nil {
		l.Error("create_intent_error", "status", 502, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		Amount:          q.Amount,
		Currency:        q.Currency,
		PaymentIntentID: intent.ID,
	}, nil
}

// HandleWebhook verifies and processes one Stripe event. Only a signature
// failure or an internal error is returned; every other outcome is
// acknowledged so Stripe stops retrying.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	l := logging.FromContext(ctx).With("svc", "payments.webhook")

	ev, err := s.Gateway.ParseWebhook(payload, sigHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	l = l.With("event_id", ev.ID, "event_type", ev.Type)

	switch ev.Type {
	case payments.EventIntentSucceeded:
		return s.finalize(ctx, l, ev.Intent)
	case payments.EventIntentFailed:
		if ev.Intent != nil {
			l.Warn("payment_failed", "payment_intent_id", ev.Intent.ID)
		}
	default:
		l.Info("webhook_event_ignored")
	}
	return nil
}

func (s *PaymentService) finalize(ctx context.Context, l *slog.Logger, intent *payments.IntentData) error {
	userID, ok := intent.UserID()
	if !ok {
		l.Warn("webhook_missing_user", "reason", "metadata.user_id missing or not numeric")
		return nil
	}

	res, err := s.Repo.FinalizePaidCheckout(ctx, userID, intent.ID)
	if err != nil {
		l.Error("finalize_error", "status", 500, "user_id", userID, "payment_intent_id", intent.ID, "error", err)
		return err
	}

	switch res.Outcome {
	case repo.FinalizeDuplicate:
		l.Info("finalize_duplicate", "payment_intent_id", intent.ID)
	case repo.FinalizeNoCart:
		l.Warn("finalize_no_cart", "user_id", userID, "payment_intent_id", intent.ID)
	case repo.FinalizeEmptyCart:
		l.Error("finalize_empty_cart", "reason", "paid intent without cart items", "user_id", userID, "payment_intent_id", intent.ID)
	case repo.FinalizeCreated:
		order := res.Order
		if len(res.Oversold) > 0 {
			l.Error("finalize_oversold", "order_id", order.ID, "product_ids", res.Oversold)
		}
		if expected := payments.Cents(order.Total); expected != intent.Amount {
			l.Warn("finalize_amount_mismatch", "order_id", order.ID, "order_cents", expected, "intent_cents", intent.Amount)
		}
		if s.OnStockChange != nil {
			ids := make([]uint, 0, len(order.Items))
			for _, it := range order.Items {
				ids = append(ids, it.ProductID)
			}
			s.OnStockChange(ctx, ids...)
		}
		publish(ctx, s.Events, mykafka.TopicOrders, order.ID, "order_paid", map[string]any{
			"order_id": order.ID, "user_id": userID, "payment_intent_id": intent.ID, "total": order.Total,
		})
		l.Info("finalize_success", "order_id", order.ID)
	}
	return nil
}
