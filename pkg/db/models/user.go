package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safanavk/smileshop-backend/pkg/enums"
)

// User is a storefront account. ReferralRewardPending marks that the user's
// referrer is still owed the signup reward; it is cleared exactly once when the
// user's first gateway payment is confirmed.
type User struct {
	ID                    uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string         `gorm:"column:name;not null"`
	Email                 string         `gorm:"column:email;not null;uniqueIndex:idx_users_email"`
	Phone                 *string        `gorm:"column:phone"`
	Role                  enums.UserRole `gorm:"column:role;not null;default:'customer'"`
	Blocked               bool           `gorm:"column:blocked;not null;default:false"`
	ReferralCode          string         `gorm:"column:referral_code;not null;uniqueIndex:idx_users_referral_code"`
	ReferredBy            *uuid.UUID     `gorm:"column:referred_by;type:uuid"`
	ReferralRewardPending bool           `gorm:"column:referral_reward_pending;not null;default:false"`
	CreatedAt             time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
