package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/shopspring/decimal"
)

type OrderService struct {
	Repo          *repo.GormRepo
	Events        Publisher
	OnStockChange func(ctx context.Context, productIDs ...uint)
}

type OrderItemInput struct {
	ProductID uint
	Quantity  int
}

type OrderLineView struct {
	repo.OrderItemView
	Subtotal decimal.Decimal `json:"subtotal"`
}

type OrderDetail struct {
	Order *models.Order   `json:"order"`
	Items []OrderLineView `json:"items"`
}

// mergeLines validates the items and folds repeated products into one line.
func mergeLines(items []OrderItemInput) ([]repo.OrderLine, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	qty := map[uint]int{}
	for _, it := range items {
		if err := validateLine(it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
		qty[it.ProductID] += it.Quantity
	}
	lines := make([]repo.OrderLine, 0, len(qty))
	for id, q := range qty {
		lines = append(lines, repo.OrderLine{ProductID: id, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (s *OrderService) stockChanged(ctx context.Context, items []models.OrderItem) {
	if s.OnStockChange == nil {
		return
	}
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	s.OnStockChange(ctx, ids...)
}

func (s *OrderService) Create(ctx context.Context, userID uint, items []OrderItemInput) (*models.Order, error) {
	lines, err := mergeLines(items)
	if err != nil {
		return nil, err
	}
	order, err := s.Repo.CreateOrder(ctx, userID, lines)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	s.stockChanged(ctx, order.Items)
	publish(ctx, s.Events, mykafka.TopicOrders, order.ID, "order_created", map[string]any{
		"order_id": order.ID, "user_id": userID, "total": order.Total,
	})
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.Repo.ListUserOrders(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context, f repo.OrderFilter) ([]repo.AdminOrderView, error) {
	if f.Status != "" && !models.ValidOrderStatus(f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	return s.Repo.ListAllOrders(ctx, f)
}

func (s *OrderService) Get(ctx context.Context, actor Actor, id uint) (*OrderDetail, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: order belongs to another user", ErrForbidden)
	}

	items, err := s.Repo.OrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	lines := make([]OrderLineView, 0, len(items))
	for _, it := range items {
		lines = append(lines, OrderLineView{
			OrderItemView: it,
			Subtotal:      it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return &OrderDetail{Order: order, Items: lines}, nil
}

// statusGuard enforces who may move an order where. Admins may set any
// known status; owners may only cancel a pending order.
func statusGuard(actor Actor, target string) repo.OrderGuard {
	return func(o *models.Order) error {
		if actor.IsAdmin() {
			return nil
		}
		if o.UserID != actor.UserID {
			return fmt.Errorf("%w: order belongs to another user", ErrForbidden)
		}
		if target != models.OrderStatusCancelled {
			return fmt.Errorf("%w: only cancellation is allowed", ErrInvalidState)
		}
		if o.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
		}
		return nil
	}
}

func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id uint, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	order, err := s.Repo.UpdateOrderStatus(ctx, id, status, statusGuard(actor, status))
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	publish(ctx, s.Events, mykafka.TopicOrders, order.ID, "order_status_changed", map[string]any{
		"order_id": order.ID, "status": order.Status,
	})
	return order, nil
}

// deleteGuard lets admins delete any order and owners only a pending one.
func deleteGuard(actor Actor) repo.OrderGuard {
	return func(o *models.Order) error {
		if actor.IsAdmin() {
			return nil
		}
		if o.UserID != actor.UserID {
			return fmt.Errorf("%w: order belongs to another user", ErrForbidden)
		}
		if o.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: order is %s", ErrInvalidState, o.Status)
		}
		return nil
	}
}

// Delete removes the order and returns its stock.
func (s *OrderService) Delete(ctx context.Context, actor Actor, id uint) (*models.Order, error) {
	order, err := s.Repo.DeleteOrder(ctx, id, deleteGuard(actor))
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	s.stockChanged(ctx, order.Items)
	publish(ctx, s.Events, mykafka.TopicOrders, order.ID, "order_deleted", map[string]any{"order_id": order.ID})
	return order, nil
}
