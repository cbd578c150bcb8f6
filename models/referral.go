package models

// Referral records one consumed (referrer, referred) pair. The composite
// unique index is the idempotency gate: a second claim for the same pair hits
// a duplicate-key error instead of racing a read-check.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string `gorm:"index;not null;uniqueIndex:idx_referral_pair" json:"referrer_id"`
	ReferredID string `gorm:"not null;uniqueIndex:idx_referral_pair" json:"referred_id"`

	ReferralCodeUsed string `gorm:"not null" json:"referral_code_used"`
	BonusAwarded     int64  `gorm:"not null" json:"bonus_awarded"`

	Timestamps
}
