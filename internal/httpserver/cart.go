package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/labstack/echo/v4"
)

type CartHTTP struct {
	Cart *service.CartService
}

func (h *CartHTTP) View(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.view")

	who, err := actor(c)
	if err != nil {
		return err
	}
	view, err := h.Cart.View(ctx, who.UserID)
	if err != nil {
		return fail(l, "view_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	who, err := actor(c)
	if err != nil {
		return err
	}
	var req transport.AddToCartRequest
	if err := bindAndValidate(c, l, "add_item_error", &req); err != nil {
		return err
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := h.Cart.AddItem(ctx, who.UserID, req.ProductID, qty)
	if err != nil {
		return fail(l, "add_item_error", err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_quantity")

	who, err := actor(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, l, "set_quantity_error", "productId")
	if err != nil {
		return err
	}
	var req transport.SetQuantityRequest
	if err := bindAndValidate(c, l, "set_quantity_error", &req); err != nil {
		return err
	}

	item, err := h.Cart.SetQuantity(ctx, who.UserID, productID, req.Quantity)
	if err != nil {
		return fail(l, "set_quantity_error", err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	who, err := actor(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, l, "remove_item_error", "productId")
	if err != nil {
		return err
	}
	if err := h.Cart.RemoveItem(ctx, who.UserID, productID); err != nil {
		return fail(l, "remove_item_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "item removed", "product_id": productID})
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	who, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.Cart.Clear(ctx, who.UserID); err != nil {
		return fail(l, "clear_cart_error", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "cart cleared"})
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	who, err := actor(c)
	if err != nil {
		return err
	}
	order, err := h.Cart.Checkout(ctx, who.UserID)
	if err != nil {
		return fail(l, "checkout_error", err)
	}

	l.Info("checkout_ok", "order_id", order.ID, "total", order.Total.String())
	return c.JSON(http.StatusCreated, map[string]any{"message": "order created", "order": order})
}
