package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesSummary struct {
	OrdersCount  int64           `json:"orders_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type TopProduct struct {
	ID         uint            `json:"id"`
	Name       string          `json:"name"`
	TotalUnits int64           `json:"total_units"`
	Revenue    decimal.Decimal `json:"revenue"`
}

func betweenDates(q *gorm.DB, col string, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where(col+" >= ?", *from)
	}
	if to != nil {
		q = q.Where(col+" <= ?", *to)
	}
	return q
}

func (r *GormRepo) SalesSummary(ctx context.Context, from, to *time.Time) (*SalesSummary, error) {
	var row struct {
		OrdersCount  int64
		TotalRevenue decimal.NullDecimal
	}
	q := r.DB.WithContext(ctx).Table("orders").
		Select("COUNT(*) AS orders_count, COALESCE(SUM(total), 0) AS total_revenue")
	if err := betweenDates(q, "created_at", from, to).Scan(&row).Error; err != nil {
		return nil, err
	}
	out := &SalesSummary{OrdersCount: row.OrdersCount, TotalRevenue: decimal.Zero}
	if row.TotalRevenue.Valid {
		out.TotalRevenue = row.TotalRevenue.Decimal.Round(2)
	}
	return out, nil
}

func (r *GormRepo) TopProducts(ctx context.Context, limit int, from, to *time.Time) ([]TopProduct, error) {
	q := r.DB.WithContext(ctx).Table("order_items AS oi").
		Select("p.id, p.name, SUM(oi.quantity) AS total_units, SUM(oi.quantity * oi.price) AS revenue").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Joins("JOIN products p ON p.id = oi.product_id")
	q = betweenDates(q, "o.created_at", from, to)

	out := make([]TopProduct, 0)
	if err := q.Group("p.id, p.name").
		Order("total_units DESC, p.id ASC").
		Limit(limit).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Revenue = out[i].Revenue.Round(2)
	}
	return out, nil
}
