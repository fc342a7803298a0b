package coupons

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
)

// Repository persists coupons. Redemption is a conditional UPDATE so the
// usage counter can never pass the limit under concurrent checkouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Redeem(ctx context.Context, code string, now time.Time) (bool, error)
	Create(ctx context.Context, coupon *models.Coupon) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupon repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Redeem increments the usage counter only while the coupon is active, not
// expired and still under its usage limit. It reports false when the guard
// matched no row.
func (r *repository) Redeem(ctx context.Context, code string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND status = ?", code, enums.CouponStatusActive).
		Where("usage_limit IS NULL OR used_by < usage_limit").
		Where("expires_at IS NULL OR expires_at > ?", now).
		UpdateColumn("used_by", gorm.Expr("used_by + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}
