package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(rt).Error
}

func (r *GormRepo) GetRefreshToken(ctx context.Context, digest string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", digest).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// RotateRefreshToken revokes oldDigest and stores next in one transaction.
// A concurrent rotation of the same token loses with ErrTokenReused.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldDigest string, next *models.RefreshToken, now time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("token = ? AND revoked_at IS NULL", oldDigest).
			Update("revoked_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenReused
		}
		return tx.Create(next).Error
	})
}

// RevokeRefreshToken is a no-op for unknown or already revoked tokens.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, digest string, now time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND revoked_at IS NULL", digest).
		Update("revoked_at", now).Error
}

func (r *GormRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", before).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
