package coupons

import (
	"context"
	"fmt"

	"github.com/tsiki-shop/storefront-backend/pkg/db"
	"github.com/tsiki-shop/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads coupons from the coupons table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a coupon, normalizing its code.
func (r *Repository) Create(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = normalize(coupon.Code)
	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

func (r *Repository) Lookup(ctx context.Context, code string) (int, bool, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", normalize(code), true).
		First(&coupon).Error
	if err != nil {
		if db.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup coupon: %w", err)
	}
	if !validPercent(coupon.PercentOff) {
		return 0, false, nil
	}
	return coupon.PercentOff, true, nil
}
