package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductView is a product joined with its category name.
type ProductView struct {
	models.Product
	CategoryName *string `json:"category_name"`
}

type ProductFilter struct {
	Q          string
	CategoryID *uint
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
	Offset     int
	Limit      int
}

var productSorts = map[string]string{
	"new":        "p.created_at DESC, p.id DESC",
	"price_asc":  "p.price ASC, p.id ASC",
	"price_desc": "p.price DESC, p.id DESC",
	"name_asc":   "p.name ASC, p.id ASC",
	"name_desc":  "p.name DESC, p.id DESC",
}

func ValidProductSort(s string) bool {
	_, ok := productSorts[s]
	return ok
}

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	cats := make([]models.Category, 0)
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *GormRepo) CategoryExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) DeleteCategory(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.Clauses(forUpdate()).First(&cat, id).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrReferenced
		}
		return tx.Delete(&cat).Error
	})
}

func (r *GormRepo) productQuery(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("products AS p").
		Joins("LEFT JOIN categories c ON c.id = p.category_id")
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter) (int64, []ProductView, error) {
	q := r.productQuery(ctx)
	if f.Q != "" {
		like := "%" + f.Q + "%"
		op := r.likeOp()
		q = q.Where("(p.name "+op+" ? OR p.description "+op+" ?)", like, like)
	}
	if f.CategoryID != nil {
		q = q.Where("p.category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("p.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("p.price <= ?", *f.MaxPrice)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	order, ok := productSorts[f.Sort]
	if !ok {
		order = productSorts["new"]
	}
	items := make([]ProductView, 0)
	if err := q.Select("p.*, c.name AS category_name").
		Order(order).Offset(f.Offset).Limit(f.Limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*ProductView, error) {
	var items []ProductView
	if err := r.productQuery(ctx).Select("p.*, c.name AS category_name").
		Where("p.id = ?", id).Limit(1).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &items[0], nil
}

// ProductsByIDs keeps the order of ids and skips unknown ones.
func (r *GormRepo) ProductsByIDs(ctx context.Context, ids []uint) ([]ProductView, error) {
	out := make([]ProductView, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []ProductView
	if err := r.productQuery(ctx).Select("p.*, c.name AS category_name").
		Where("p.id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]ProductView, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) UpdateProduct(ctx context.Context, id uint, fields map[string]any) (*models.Product, error) {
	var p models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).First(&p, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&p).Updates(fields).Error; err != nil {
			return err
		}
		return tx.First(&p, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct refuses products that appear in orders and drops them from carts.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Clauses(forUpdate()).First(&p, id).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrReferenced
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
