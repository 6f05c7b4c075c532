package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/validate"
	"github.com/labstack/echo/v4"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrInsufficientStock, http.StatusBadRequest},
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrAmountTooLow, http.StatusBadRequest},
	{service.ErrInvalidState, http.StatusBadRequest},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrRevoked, http.StatusUnauthorized},
	{service.ErrExpired, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrUpstream, http.StatusBadGateway},
}

// classify maps a service error to a status and a client-safe message.
func classify(err error) (int, string) {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			if s.status >= http.StatusInternalServerError {
				return s.status, s.err.Error()
			}
			msg := strings.TrimPrefix(err.Error(), s.err.Error()+": ")
			return s.status, msg
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// fail logs err under event and converts it into an *echo.HTTPError.
func fail(l *slog.Logger, event string, err error) error {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

func bindAndValidate(c echo.Context, l *slog.Logger, event string, req any) error {
	if err := c.Bind(req); err != nil {
		l.Warn(event, "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	if err := c.Validate(req); err != nil {
		l.Warn(event, "status", 400, "reason", "validation failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}

func paramID(c echo.Context, l *slog.Logger, event, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		l.Warn(event, "status", 400, "reason", name+" is not a positive integer", "error", err)
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return uint(n), nil
}

// ErrorHandler renders every error as {"error": "..."}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := transport.ErrorResponse{Error: "internal server error"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if status < http.StatusInternalServerError {
			body.Error = http.StatusText(status)
			if m, ok := he.Message.(string); ok {
				body.Error = m
			}
		}
		var ve *validate.Error
		if errors.As(he.Internal, &ve) {
			body.Details = ve.Details
		}
	} else {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
