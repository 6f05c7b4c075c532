package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

const bodyLimit = "1M"

// Common returns the middleware chain in the order it must run.
// limiter may be nil.
func Common(logger *slog.Logger, corsOrigins []string, limiter echo.MiddlewareFunc) []echo.MiddlewareFunc {
	mw := []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.RequestID(),
		loggingmw.RequestLogger(logger),
		ecM.CORSWithConfig(ecM.CORSConfig{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut,
				http.MethodPatch, http.MethodDelete, http.MethodOptions,
			},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, "Stripe-Signature"},
			AllowCredentials: true,
		}),
		ecM.Secure(),
	}
	if limiter != nil {
		mw = append(mw, limiter)
	}
	return append(mw, ecM.BodyLimit(bodyLimit))
}
