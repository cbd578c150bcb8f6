package services

import (
	"fmt"

	"coin-tycoon/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// appendTransaction writes one audit ledger row inside the caller's
// transaction so the row commits (or rolls back) together with the balance
// change it describes.
func appendTransaction(tx *gorm.DB, userID string, amount int64, reason string, before, after int64, remark string) error {
	row := models.Transaction{
		ID:            uuid.NewString(),
		TransactionNo: uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		Reason:        reason,
		BalanceBefore: before,
		BalanceAfter:  after,
		Remark:        remark,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("append audit transaction: %w", err)
	}
	return nil
}
