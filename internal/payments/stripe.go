package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

var ErrSignature = errors.New("invalid webhook signature")

type IntentRequest struct {
	Amount   int64
	Currency string
	UserID   uint
}

type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

type IntentData struct {
	ID       string
	Amount   int64
	Currency string
	Metadata map[string]string
}

type WebhookEvent struct {
	ID     string
	Type   string
	Intent *IntentData
}

// UserID reads metadata.user_id. ok is false when it is missing or not a
// positive integer.
func (d *IntentData) UserID() (uint, bool) {
	if d == nil {
		return 0, false
	}
	raw := strings.TrimSpace(d.Metadata["user_id"])
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

type StripeGateway struct {
	intents       *paymentintent.Client
	webhookSecret string
}

// NewStripeGateway talks to the live API when backend is nil.
func NewStripeGateway(secretKey, webhookSecret string, backend stripe.Backend) *StripeGateway {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeGateway{
		intents:       &paymentintent.Client{B: backend, Key: secretKey},
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatUint(uint64(req.UserID), 10))

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Only payment intent events carry Intent.
func (g *StripeGateway) ParseWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	out := &WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || ev.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
	}
	out.Intent = &IntentData{
		ID:       pi.ID,
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
		Metadata: pi.Metadata,
	}
	return out, nil
}

var minimumAmounts = map[string]int64{
	"usd": 50, "eur": 50, "cad": 50, "aud": 50, "nzd": 50, "sgd": 50,
	"chf": 50, "brl": 50, "inr": 50, "jpy": 50,
	"gbp": 30, "dkk": 250, "nok": 300, "sek": 300, "pln": 200,
	"hkd": 400, "mxn": 1000,
}

// MinimumAmount is the smallest charge Stripe accepts, in minor units.
func MinimumAmount(currency string) int64 {
	if v, ok := minimumAmounts[strings.ToLower(currency)]; ok {
		return v
	}
	return 50
}

var hundred = decimal.NewFromInt(100)

// Cents converts a price to minor units, rounding half away from zero.
func Cents(price decimal.Decimal) int64 {
	return price.Mul(hundred).Round(0).IntPart()
}
