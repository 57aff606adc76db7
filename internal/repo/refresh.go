package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/projects_api/internal/models"
)

func (r *GormRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return createRefresh(r.DB.WithContext(ctx), t)
}

// FindRefreshByHash loads the token together with its owner.
func (r *GormRepo) FindRefreshByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).
		Preload("User").
		Where("token_hash = ?", tokenHash).
		First(&token).Error; err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func (r *GormRepo) ListRefreshTokens(ctx context.Context, userID uint) ([]models.RefreshToken, error) {
	var out []models.RefreshToken
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	return out, nil
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, id uint, at time.Time) error {
	return revokeRefresh(r.DB.WithContext(ctx), id, at)
}

func (r *GormRepo) RevokeAllRefreshTokens(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at)
	if res.Error != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RotateRefreshToken revokes oldID and stores next in one transaction. Only
// one caller can revoke a given token; the others get ErrAlreadyRevoked.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldID uint, at time.Time, next *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := revokeRefresh(tx, oldID, at); err != nil {
			return err
		}
		return createRefresh(tx, next)
	})
}

func createRefresh(db *gorm.DB, t *models.RefreshToken) error {
	if err := db.Omit(clause.Associations).Create(t).Error; err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func revokeRefresh(db *gorm.DB, id uint, at time.Time) error {
	res := db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if res.Error != nil {
		return fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyRevoked
	}
	return nil
}
