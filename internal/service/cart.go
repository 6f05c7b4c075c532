package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/shopspring/decimal"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events Publisher
	// OnStockChange is told which products lost stock at checkout.
	OnStockChange func(ctx context.Context, productIDs ...uint)
}

type CartItemView struct {
	ProductID   uint            `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	CartID uint            `json:"cart_id"`
	Items  []CartItemView  `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

func validateLine(productID uint, qty int) error {
	if productID == 0 {
		return fmt.Errorf("%w: product_id is required", ErrValidation)
	}
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	return nil
}

func (s *CartService) View(ctx context.Context, userID uint) (*CartView, error) {
	cartID, lines, err := s.Repo.ViewCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &CartView{CartID: cartID, Items: make([]CartItemView, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		sub := l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		view.Items = append(view.Items, CartItemView{
			ProductID:   l.ProductID,
			Name:        l.Name,
			Description: l.Description,
			Quantity:    l.Quantity,
			Price:       l.Price,
			Subtotal:    sub,
		})
		view.Total = view.Total.Add(sub)
	}
	return view, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uint, qty int) (*models.CartItem, error) {
	if err := validateLine(productID, qty); err != nil {
		return nil, err
	}
	item, err := s.Repo.AddToCart(ctx, userID, productID, qty)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	publish(ctx, s.Events, mykafka.TopicCart, userID, "cart_item_added", map[string]any{
		"user_id": userID, "product_id": productID, "quantity": qty,
	})
	return item, nil
}

func (s *CartService) SetQuantity(ctx context.Context, userID, productID uint, qty int) (*models.CartItem, error) {
	if err := validateLine(productID, qty); err != nil {
		return nil, err
	}
	item, err := s.Repo.SetCartQuantity(ctx, userID, productID, qty)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) error {
	return mapRepoErr(s.Repo.RemoveFromCart(ctx, userID, productID), "product")
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	return s.Repo.ClearCart(ctx, userID)
}

// Checkout converts the cart into a pending order.
func (s *CartService) Checkout(ctx context.Context, userID uint) (*models.Order, error) {
	order, err := s.Repo.CheckoutCart(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err, "cart")
	}

	if s.OnStockChange != nil {
		ids := make([]uint, 0, len(order.Items))
		for _, it := range order.Items {
			ids = append(ids, it.ProductID)
		}
		s.OnStockChange(ctx, ids...)
	}
	publish(ctx, s.Events, mykafka.TopicCart, userID, "cart_checked_out", map[string]any{
		"user_id": userID, "order_id": order.ID, "total": order.Total,
	})
	return order, nil
}
