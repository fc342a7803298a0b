package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safanavk/smileshop-backend/pkg/enums"
	"github.com/safanavk/smileshop-backend/pkg/types"
)

// Order is the committed purchase record. Item prices, the shipping address
// and the coupon discount are all snapshotted at creation so catalog edits
// never rewrite history.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index:idx_orders_user"`
	SubtotalCents    int64               `gorm:"column:subtotal_cents;not null"`
	DiscountCents    int64               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents       int64               `gorm:"column:total_cents;not null"`
	CouponCode       *string             `gorm:"column:coupon_code"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	OrderStatus      enums.OrderStatus   `gorm:"column:order_status;not null;default:'pending'"`
	RefundStatus     enums.RefundStatus  `gorm:"column:refund_status;not null;default:'none'"`
	GatewayOrderID   *string             `gorm:"column:gateway_order_id;uniqueIndex:idx_orders_gateway_order"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	CanceledAt       *time.Time          `gorm:"column:canceled_at"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}
