package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

type RankedProduct struct {
	ProductView
	SoldQty int64 `json:"sold_qty"`
}

func (r *GormRepo) TopOrderedCategories(ctx context.Context, userID uint, n int) ([]uint, error) {
	ids := make([]uint, 0)
	err := r.DB.WithContext(ctx).Table("orders AS o").
		Select("p.category_id").
		Joins("JOIN order_items oi ON oi.order_id = o.id").
		Joins("JOIN products p ON p.id = oi.product_id").
		Where("o.user_id = ? AND p.category_id IS NOT NULL", userID).
		Group("p.category_id").
		Order("SUM(oi.quantity) DESC, p.category_id ASC").
		Limit(n).
		Pluck("p.category_id", &ids).Error
	return ids, err
}

func (r *GormRepo) CartCategories(ctx context.Context, userID uint, n int) ([]uint, error) {
	ids := make([]uint, 0)
	err := r.DB.WithContext(ctx).Table("carts AS c").
		Select("p.category_id").
		Joins("JOIN cart_items ci ON ci.cart_id = c.id").
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("c.user_id = ? AND p.category_id IS NOT NULL", userID).
		Group("p.category_id").
		Order("p.category_id ASC").
		Limit(n).
		Pluck("p.category_id", &ids).Error
	return ids, err
}

func (r *GormRepo) NewestInStock(ctx context.Context, limit int) ([]ProductView, error) {
	out := make([]ProductView, 0)
	err := r.productQuery(ctx).Select("p.*, c.name AS category_name").
		Where("p.stock > 0").
		Order("p.created_at DESC, p.id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// PopularInCategories ranks in-stock products of the categories by units sold.
func (r *GormRepo) PopularInCategories(ctx context.Context, categoryIDs []uint, limit int) ([]RankedProduct, error) {
	out := make([]RankedProduct, 0)
	if len(categoryIDs) == 0 {
		return out, nil
	}
	err := r.productQuery(ctx).
		Select("p.*, c.name AS category_name, COALESCE(SUM(oi.quantity), 0) AS sold_qty").
		Joins("LEFT JOIN order_items oi ON oi.product_id = p.id").
		Where("p.category_id IN ? AND p.stock > 0", categoryIDs).
		Group("p.id, c.id").
		Order("sold_qty DESC, p.created_at DESC, p.id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SameCategory lists other in-stock products sharing the category of productID.
func (r *GormRepo) SameCategory(ctx context.Context, productID uint, limit int) (*models.Product, []ProductView, error) {
	var base models.Product
	if err := r.DB.WithContext(ctx).First(&base, productID).Error; err != nil {
		return nil, nil, err
	}
	out := make([]ProductView, 0)
	if base.CategoryID == nil {
		return &base, out, nil
	}
	err := r.productQuery(ctx).Select("p.*, c.name AS category_name").
		Where("p.category_id = ? AND p.id <> ? AND p.stock > 0", *base.CategoryID, productID).
		Order("p.created_at DESC, p.id DESC").
		Limit(limit).
		Find(&out).Error
	return &base, out, err
}
