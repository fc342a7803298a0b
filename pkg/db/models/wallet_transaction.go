package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safanavk/smileshop-backend/pkg/enums"
)

// WalletTransaction is one immutable ledger entry. AmountCents is always
// positive; Type carries the direction.
type WalletTransaction struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID    uuid.UUID             `gorm:"column:wallet_id;type:uuid;not null;index:idx_wallet_txns_wallet"`
	Type        enums.TransactionType `gorm:"column:type;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	Description string                `gorm:"column:description;not null"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
