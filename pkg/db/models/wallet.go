package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's store-credit balance in minor units. The balance row
// and its transaction rows are always written in the same transaction so the
// balance equals the signed sum of the ledger.
type Wallet struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_wallets_user"`
	BalanceCents int64     `gorm:"column:balance_cents;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
