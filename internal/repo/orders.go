package repo

import (
	"context"
	"sort"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderLine struct {
	ProductID uint
	Quantity  int
}

type OrderItemView struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type AdminOrderView struct {
	models.Order
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

type OrderFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

// OrderGuard inspects the locked order and may veto the change.
type OrderGuard func(o *models.Order) error

// CreateOrder places an order for explicit lines. Lines for the same
// product must already be merged.
func (r *GormRepo) CreateOrder(ctx context.Context, userID uint, lines []OrderLine) (*models.Order, error) {
	sorted := append([]OrderLine(nil), lines...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		priced := make([]CartLine, 0, len(sorted))
		for _, l := range sorted {
			var p models.Product
			if err := tx.Clauses(forUpdate()).First(&p, l.ProductID).Error; err != nil {
				if IsNotFound(err) {
					return &StockError{ProductID: l.ProductID, Missing: true}
				}
				return err
			}
			if err := decrementStock(tx, p.ID, l.Quantity); err != nil {
				return err
			}
			priced = append(priced, CartLine{ProductID: p.ID, Name: p.Name, Quantity: l.Quantity, Price: p.Price})
		}

		order = models.Order{
			UserID:        userID,
			Total:         sumLines(priced),
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return insertItems(tx, &order, priced)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListUserOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) OrderItems(ctx context.Context, orderID uint) ([]OrderItemView, error) {
	items := make([]OrderItemView, 0)
	err := r.DB.WithContext(ctx).Table("order_items AS oi").
		Select("oi.product_id, COALESCE(p.name, '') AS product_name, oi.quantity, oi.price").
		Joins("LEFT JOIN products p ON p.id = oi.product_id").
		Where("oi.order_id = ?", orderID).
		Order("oi.id ASC").
		Scan(&items).Error
	return items, err
}

// UpdateOrderStatus locks the order, lets guard veto, then writes the status.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uint, status string, guard OrderGuard) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).First(&o, id).Error; err != nil {
			return err
		}
		if guard != nil {
			if err := guard(&o); err != nil {
				return err
			}
		}
		if err := tx.Model(&o).Update("status", status).Error; err != nil {
			return err
		}
		o.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteOrder removes the order and puts its quantities back into stock.
func (r *GormRepo) DeleteOrder(ctx context.Context, id uint, guard OrderGuard) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).First(&o, id).Error; err != nil {
			return err
		}
		if guard != nil {
			if err := guard(&o); err != nil {
				return err
			}
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", o.ID).Order("product_id ASC").Find(&items).Error; err != nil {
			return err
		}
		for _, it := range items {
			if err := restoreStock(tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		o.Items = items
		return tx.Delete(&models.Order{}, o.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListAllOrders(ctx context.Context, f OrderFilter) ([]AdminOrderView, error) {
	q := r.DB.WithContext(ctx).Table("orders AS o").
		Select("o.*, u.name AS user_name, u.email AS user_email").
		Joins("JOIN users u ON u.id = o.user_id")
	if f.Status != "" {
		q = q.Where("o.status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("o.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("o.created_at <= ?", *f.To)
	}

	out := make([]AdminOrderView, 0)
	if err := q.Order("o.created_at DESC, o.id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
