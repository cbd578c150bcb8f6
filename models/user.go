package models

import (
	"time"

	"gorm.io/gorm"
)

// User is one player identity. The ID is the chat platform's user id and is
// supplied by the caller, never generated here.
type User struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Username string `gorm:"index;not null" json:"username"`

	// Balance is mutated only through atomic credit/debit statements
	// (referral bonus, mining, purchases), never via read-then-save.
	Balance int64 `gorm:"not null;default:0" json:"balance"`

	// ReferredBy is set at most once, at account creation. Once non-null it
	// never changes.
	ReferredBy    *string `gorm:"index" json:"referred_by,omitempty"`
	ReferralCount int64   `gorm:"not null;default:0" json:"referral_count"`

	// ReferralCode is the token embedded in this user's invite deep-link.
	ReferralCode string `gorm:"uniqueIndex;not null" json:"referral_code"`

	LastMinedAt *time.Time `json:"last_mined_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
