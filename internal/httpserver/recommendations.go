package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type RecommendationHTTP struct {
	Recs *service.RecommendationService
}

func (h *RecommendationHTTP) ByUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recs.by_user")

	who, err := actor(c)
	if err != nil {
		return err
	}
	recs, err := h.Recs.ForUser(ctx, who.UserID)
	if err != nil {
		return fail(l, "recs_error", err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *RecommendationHTTP) ByProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recs.by_product")

	id, err := paramID(c, l, "recs_error", "id")
	if err != nil {
		return err
	}
	recs, err := h.Recs.ForProduct(ctx, id)
	if err != nil {
		return fail(l, "recs_error", err)
	}
	return c.JSON(http.StatusOK, recs)
}
