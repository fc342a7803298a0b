package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safanavk/smileshop-backend/pkg/enums"
)

// Coupon is a percentage discount with a cap. UsedBy counts committed
// redemptions and is only incremented inside order creation.
type Coupon struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string             `gorm:"column:code;not null;uniqueIndex:idx_coupons_code"`
	DiscountRate     int                `gorm:"column:discount_rate;not null"`
	MaxDiscountCents int64              `gorm:"column:max_discount_cents;not null"`
	MinPurchaseCents int64              `gorm:"column:min_purchase_cents;not null;default:0"`
	UsageLimit       *int               `gorm:"column:usage_limit"`
	UsedBy           int                `gorm:"column:used_by;not null;default:0"`
	Status           enums.CouponStatus `gorm:"column:status;not null;default:'active'"`
	ExpiresAt        *time.Time         `gorm:"column:expires_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
