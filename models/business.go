package models

// UserBusiness is one holding row: how many units of a business a user owns.
// Quantity only grows, and only through the purchase engine.
type UserBusiness struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string `gorm:"not null;uniqueIndex:idx_user_business" json:"user_id"`
	BusinessID string `gorm:"not null;uniqueIndex:idx_user_business" json:"business_id"`
	Quantity   int64  `gorm:"not null;default:0" json:"quantity"`

	Timestamps
}

// BusinessStat is the global per-business aggregate used for reporting.
// Folded additively inside purchase transactions.
type BusinessStat struct {
	BusinessID    string `gorm:"primaryKey" json:"business_id"`
	UnitsSold     int64  `gorm:"not null;default:0" json:"units_sold"`
	CoinsInvested int64  `gorm:"not null;default:0" json:"coins_invested"`

	Timestamps
}
