package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FinalizeOutcome string

const (
	FinalizeCreated   FinalizeOutcome = "created"
	FinalizeDuplicate FinalizeOutcome = "duplicate"
	FinalizeNoCart    FinalizeOutcome = "no_cart"
	FinalizeEmptyCart FinalizeOutcome = "empty_cart"
)

type FinalizeResult struct {
	Outcome  FinalizeOutcome
	Order    *models.Order
	Oversold []uint
}

// FinalizePaidCheckout converts the user's cart into a paid order for
// intentID. It is idempotent on intentID. Stock is drained but never
// blocks the order since the payment is already captured.
func (r *GormRepo) FinalizePaidCheckout(ctx context.Context, userID uint, intentID string) (*FinalizeResult, error) {
	res := &FinalizeResult{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Order{}).Where("stripe_payment_intent_id = ?", intentID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			res.Outcome = FinalizeDuplicate
			return nil
		}

		var cart models.Cart
		if err := tx.Clauses(forUpdate()).Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res.Outcome = FinalizeNoCart
				return nil
			}
			return err
		}
		lines, err := cartLines(tx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			res.Outcome = FinalizeEmptyCart
			return nil
		}

		intent := intentID
		order := models.Order{
			UserID:                userID,
			Total:                 sumLines(lines),
			Status:                models.OrderStatusPaid,
			PaymentStatus:         models.PaymentStatusPaid,
			StripePaymentIntentID: &intent,
		}
		ins := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_payment_intent_id"}},
			DoNothing: true,
		}).Create(&order)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			res.Outcome = FinalizeDuplicate
			return nil
		}

		if err := insertItems(tx, &order, lines); err != nil {
			return err
		}
		for _, l := range byProduct(lines) {
			short, err := drainStock(tx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			if short {
				res.Oversold = append(res.Oversold, l.ProductID)
			}
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		res.Outcome = FinalizeCreated
		res.Order = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
