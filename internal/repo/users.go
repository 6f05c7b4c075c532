package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	q := r.DB.WithContext(ctx).Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	users := make([]models.User, 0)
	if err := q.Find(&users).Error; err != nil {
		return 0, nil, err
	}
	return total, users, nil
}

// UpdateUser applies the non-empty columns in fields.
func (r *GormRepo) UpdateUser(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).First(&u, id).Error; err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&u).Updates(fields).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return tx.First(&u, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser refuses to remove a user that still owns orders.
func (r *GormRepo) DeleteUser(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(forUpdate()).First(&u, id).Error; err != nil {
			return err
		}

		var orders int64
		if err := tx.Model(&models.Order{}).Where("user_id = ?", id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return ErrReferenced
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id IN (?)", tx.Model(&models.Cart{}).Select("id").Where("user_id = ?", id)).
			Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Cart{}).Error; err != nil {
			return err
		}
		return tx.Delete(&u).Error
	})
}
