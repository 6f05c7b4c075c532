package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Orders *service.OrderService
}

func (h *OrderHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	who, err := actor(c)
	if err != nil {
		return err
	}
	var req transport.CreateOrderRequest
	if err := bindAndValidate(c, l, "create_order_error", &req); err != nil {
		return err
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	order, err := h.Orders.Create(ctx, who.UserID, items)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("order_created", "order_id", order.ID, "user_id", who.UserID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_mine")

	who, err := actor(c)
	if err != nil {
		return err
	}
	orders, err := h.Orders.ListMine(ctx, who.UserID)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

// ListAll serves GET /orders/all/admin and GET /admin/orders.
func (h *OrderHTTP) ListAll(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_all")

	from, to, err := service.ParseDateRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	orders, err := h.Orders.ListAll(ctx, repo.OrderFilter{
		Status: c.QueryParam("status"),
		From:   from,
		To:     to,
	})
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	who, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, l, "get_order_error", "id")
	if err != nil {
		return err
	}
	detail, err := h.Orders.Get(ctx, who, id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, detail)
}

// UpdateStatus serves PUT /orders/:id and PUT /admin/orders/:id/status.
func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	who, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, l, "update_status_error", "id")
	if err != nil {
		return err
	}
	var req transport.UpdateOrderStatusRequest
	if err := bindAndValidate(c, l, "update_status_error", &req); err != nil {
		return err
	}

	order, err := h.Orders.UpdateStatus(ctx, who, id, req.Status)
	if err != nil {
		return fail(l, "update_status_error", err)
	}

	l.Info("order_status_changed", "order_id", id, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete")

	who, err := actor(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, l, "delete_order_error", "id")
	if err != nil {
		return err
	}
	order, err := h.Orders.Delete(ctx, who, id)
	if err != nil {
		return fail(l, "delete_order_error", err)
	}

	l.Info("order_deleted", "order_id", id)
	return c.JSON(http.StatusOK, map[string]any{"message": "order deleted", "order": order})
}
