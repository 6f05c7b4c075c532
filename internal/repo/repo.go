package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicate   = errors.New("duplicate")
	ErrReferenced  = errors.New("still referenced")
	ErrEmptyCart   = errors.New("cart is empty")
	ErrNotInCart   = errors.New("product is not in the cart")
	ErrTokenReused = errors.New("refresh token already revoked")
)

// StockError reports the product that could not cover the requested quantity.
type StockError struct {
	ProductID uint
	Missing   bool
}

func (e *StockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %d does not exist", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

type GormRepo struct {
	DB *gorm.DB
}

func forUpdate() clause.Expression {
	return clause.Locking{Strength: "UPDATE"}
}

func (r *GormRepo) isPostgres() bool {
	return r.DB.Dialector.Name() == "postgres"
}

func (r *GormRepo) likeOp() string {
	if r.isPostgres() {
		return "ILIKE"
	}
	return "LIKE"
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// decrementStock takes qty units only if they are available.
func decrementStock(tx *gorm.DB, productID uint, qty int) error {
	res := tx.Table("products").
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := tx.Table("products").Where("id = ?", productID).Count(&n).Error; err != nil {
		return err
	}
	return &StockError{ProductID: productID, Missing: n == 0}
}

// drainStock decrements without failing, flooring at zero. It reports
// whether the product could not cover the quantity.
func drainStock(tx *gorm.DB, productID uint, qty int) (oversold bool, err error) {
	var p struct{ Stock int }
	if err := tx.Table("products").Clauses(forUpdate()).Select("stock").
		Where("id = ?", productID).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, err
	}
	if err := tx.Table("products").Where("id = ?", productID).
		Update("stock", gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", qty, qty)).Error; err != nil {
		return false, err
	}
	return p.Stock < qty, nil
}

func restoreStock(tx *gorm.DB, productID uint, qty int) error {
	return tx.Table("products").Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}
