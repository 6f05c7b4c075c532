package repo

import (
	"context"
	"errors"
	"sort"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartLine struct {
	ProductID   uint            `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// getOrCreateCart relies on the unique user_id index so concurrent first
// access ends up with a single cart.
func getOrCreateCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	fresh := models.Cart{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func lockCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	cart, err := getOrCreateCart(tx, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Clauses(forUpdate()).First(cart, cart.ID).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *GormRepo) GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart *models.Cart
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cart, err = getOrCreateCart(tx, userID)
		return err
	})
	return cart, err
}

// AddToCart adds qty units, keeping the price snapshot of an existing line.
func (r *GormRepo) AddToCart(ctx context.Context, userID, productID uint, qty int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID)
		if err != nil {
			return err
		}

		var prod models.Product
		if err := tx.Clauses(forUpdate()).First(&prod, productID).Error; err != nil {
			return err
		}

		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if qty > prod.Stock {
				return &StockError{ProductID: productID}
			}
			item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty, PriceAtAdd: prod.Price}
			return tx.Create(&item).Error
		case err != nil:
			return err
		}

		if item.Quantity+qty > prod.Stock {
			return &StockError{ProductID: productID}
		}
		if err := tx.Model(&item).Update("quantity", gorm.Expr("quantity + ?", qty)).Error; err != nil {
			return err
		}
		return tx.First(&item, item.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetCartQuantity sets an absolute quantity for a line already in the cart.
func (r *GormRepo) SetCartQuantity(ctx context.Context, userID, productID uint, qty int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID)
		if err != nil {
			return err
		}

		var prod models.Product
		if err := tx.Clauses(forUpdate()).First(&prod, productID).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotInCart
			}
			return err
		}
		if qty > prod.Stock {
			return &StockError{ProductID: productID}
		}
		if err := tx.Model(&item).Update("quantity", qty).Error; err != nil {
			return err
		}
		item.Quantity = qty
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) RemoveFromCart(ctx context.Context, userID, productID uint) error {
	res := r.DB.WithContext(ctx).
		Where("product_id = ? AND cart_id IN (?)", productID,
			r.DB.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotInCart
	}
	return nil
}

func (r *GormRepo) ClearCart(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).
		Where("cart_id IN (?)", r.DB.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
}

func cartLines(tx *gorm.DB, cartID uint) ([]CartLine, error) {
	lines := make([]CartLine, 0)
	err := tx.Table("cart_items AS ci").
		Select("ci.product_id, p.name, p.description, ci.quantity, ci.price_at_add AS price").
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.id ASC").
		Scan(&lines).Error
	return lines, err
}

// ViewCart returns the user's cart id and lines, creating the cart if needed.
func (r *GormRepo) ViewCart(ctx context.Context, userID uint) (uint, []CartLine, error) {
	var (
		cartID uint
		lines  []CartLine
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}
		cartID = cart.ID
		lines, err = cartLines(tx, cart.ID)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return cartID, lines, nil
}

// CartLines reads the lines without creating a cart.
func (r *GormRepo) CartLines(ctx context.Context, userID uint) ([]CartLine, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []CartLine{}, nil
		}
		return nil, err
	}
	return cartLines(r.DB.WithContext(ctx), cart.ID)
}

func sumLines(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// byProduct orders lines by product id so row locks are always taken in the same order.
func byProduct(lines []CartLine) []CartLine {
	out := append([]CartLine(nil), lines...)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// CheckoutCart turns the cart into a pending order, taking stock
// conditionally. Any shortfall rolls the whole checkout back.
func (r *GormRepo) CheckoutCart(ctx context.Context, userID uint) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := lockCart(tx, userID)
		if err != nil {
			return err
		}
		lines, err := cartLines(tx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		for _, l := range byProduct(lines) {
			if err := decrementStock(tx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}

		order = models.Order{
			UserID:        userID,
			Total:         sumLines(lines),
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if err := insertItems(tx, &order, lines); err != nil {
			return err
		}
		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func insertItems(tx *gorm.DB, order *models.Order, lines []CartLine) error {
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, models.OrderItem{
			OrderID:   order.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}
	if err := tx.Create(&items).Error; err != nil {
		return err
	}
	order.Items = items
	return nil
}
