package models

import "time"

const (
	TxReasonStartingGrant = "starting-grant"
	TxReasonReferralBonus = "referral-bonus"
	TxReasonMining        = "mining"
	TxReasonPurchase      = "purchase"
)

// Transaction is one row of the append-only audit ledger. Rows are written
// inside the same database transaction as the balance change they describe
// and are never updated or deleted; the archive worker only stamps
// ArchivedAt after exporting a row to R2.
type Transaction struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	TransactionNo string `gorm:"uniqueIndex;not null" json:"transaction_no"`
	UserID        string `gorm:"index;not null" json:"user_id"`

	// Amount is signed: credits positive, debits negative.
	Amount        int64  `gorm:"not null" json:"amount"`
	Reason        string `gorm:"type:varchar(32);not null" json:"reason"`
	BalanceBefore int64  `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64  `gorm:"not null" json:"balance_after"`
	Remark        string `gorm:"type:varchar(128)" json:"remark,omitempty"`

	ArchivedAt *time.Time `gorm:"index" json:"archived_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
