package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safanavk/smileshop-backend/pkg/enums"
)

// ReturnRequest is a buyer's post-delivery return, reviewed by an admin.
type ReturnRequest struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_returns_order"`
	UserID     uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	Reason     string             `gorm:"column:reason;not null"`
	Status     enums.ReturnStatus `gorm:"column:status;not null;default:'requested'"`
	AdminNote  *string            `gorm:"column:admin_note"`
	ResolvedAt *time.Time         `gorm:"column:resolved_at"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
