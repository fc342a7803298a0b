package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a sellable catalog entry. Prices are stored in integer minor
// units. OfferPriceCents, when active and positive, replaces the computed
// percentage discount outright.
type Product struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID      uuid.UUID `gorm:"column:category_id;type:uuid;not null"`
	Name            string    `gorm:"column:name;not null"`
	Description     *string   `gorm:"column:description"`
	PriceCents      int64     `gorm:"column:price_cents;not null"`
	OfferPercent    int       `gorm:"column:offer_percent;not null;default:0"`
	OfferActive     bool      `gorm:"column:offer_active;not null;default:false"`
	OfferPriceCents int64     `gorm:"column:offer_price_cents;not null;default:0"`
	Listed          bool      `gorm:"column:listed;not null;default:true"`
	ImageURLs       []string  `gorm:"column:image_urls;type:jsonb;serializer:json"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Category *Category `gorm:"foreignKey:CategoryID"`
}
