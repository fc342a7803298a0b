package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is the stock-keeping unit of a product, one row per size.
// Stock is only ever changed through conditional updates so it can never go
// negative.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_variants_product_size"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:idx_variants_product_size"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Product *Product `gorm:"foreignKey:ProductID"`
}
