package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

// actor reads the identity BearerAuth put on the context.
func actor(c echo.Context) (service.Actor, error) {
	id, ok := c.Get(authmw.CtxUserID).(uint)
	if !ok || id == 0 {
		return service.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	role, _ := c.Get(authmw.CtxRole).(string)
	return service.Actor{UserID: id, Role: role}, nil
}
