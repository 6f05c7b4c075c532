package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

const webhookMaxBody = 64 << 10

type PaymentHTTP struct {
	Payments *service.PaymentService
}

func (h *PaymentHTTP) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *PaymentHTTP) Quote(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.quote")

	who, err := actor(c)
	if err != nil {
		return err
	}
	q, err := h.Payments.Quote(ctx, who.UserID)
	if err != nil {
		return fail(l, "quote_error", err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *PaymentHTTP) CreateIntent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create_intent")

	who, err := actor(c)
	if err != nil {
		return err
	}
	res, err := h.Payments.CreateIntent(ctx, who.UserID)
	if err != nil {
		return fail(l, "create_intent_error", err)
	}

	l.Info("intent_created", "payment_intent_id", res.PaymentIntentID, "amount", res.Amount)
	return c.JSON(http.StatusOK, res)
}

// Webhook needs the body exactly as Stripe signed it.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	body := http.MaxBytesReader(c.Response(), c.Request().Body, webhookMaxBody)
	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			l.Warn("webhook_error", "status", 413, "reason", "payload too large")
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
		}
		l.Warn("webhook_error", "status", 400, "reason", "read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sig := c.Request().Header.Get("Stripe-Signature")
	if err := h.Payments.HandleWebhook(ctx, payload, sig); err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("webhook_error", "status", 400, "reason", "signature verification failed", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		return fail(l, "webhook_error", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
