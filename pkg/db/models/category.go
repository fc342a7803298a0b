package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products and may carry a percentage offer that competes with
// product-level offers during pricing.
type Category struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null;uniqueIndex:idx_categories_name"`
	Description  *string   `gorm:"column:description"`
	Listed       bool      `gorm:"column:listed;not null;default:true"`
	OfferPercent int       `gorm:"column:offer_percent;not null;default:0"`
	OfferActive  bool      `gorm:"column:offer_active;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
