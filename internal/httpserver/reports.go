package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type StatsHTTP struct {
	Reports *service.ReportService
}

func (h *StatsHTTP) Sales(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stats.sales")

	from, to, err := service.ParseDateRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(l, "sales_error", err)
	}
	sum, err := h.Reports.Sales(ctx, from, to)
	if err != nil {
		return fail(l, "sales_error", err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *StatsHTTP) TopProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stats.top_products")

	from, to, err := service.ParseDateRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(l, "top_products_error", err)
	}
	limit := util.ParseIntDefault(c.QueryParam("limit"), service.DefaultTopProducts)

	top, err := h.Reports.TopProducts(ctx, limit, from, to)
	if err != nil {
		return fail(l, "top_products_error", err)
	}
	return c.JSON(http.StatusOK, top)
}
