package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a priced line frozen at order creation. UnitPriceCents is the
// effective price the buyer paid, after offers but before the order-level
// coupon discount.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:idx_order_items_order"`
	VariantID      uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	ProductName    string    `gorm:"column:product_name;not null"`
	Size           string    `gorm:"column:size;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
