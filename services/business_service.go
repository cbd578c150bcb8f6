package services

import (
	"errors"
	"fmt"
	"log"

	"coin-tycoon/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrUnknownBusiness   = errors.New("unknown business id")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// PurchaseReceipt is returned after a committed purchase.
type PurchaseReceipt struct {
	UserID           string `json:"user_id"`
	BusinessID       string `json:"business_id"`
	Quantity         int64  `json:"quantity"`
	UnitCost         int64  `json:"unit_cost"`
	TotalCost        int64  `json:"total_cost"`
	NewBalance       int64  `json:"new_balance"`
	NewQuantityOwned int64  `json:"new_quantity_owned"`
}

type BusinessService struct {
	DB *gorm.DB
}

func NewBusinessService(db *gorm.DB) *BusinessService {
	return &BusinessService{DB: db}
}

// Purchase converts balance into owned business units. The debit is a single
// conditional UPDATE guarded by "balance >= cost", so two concurrent
// purchases can never both pass a stale balance check: the storage engine
// applies each debit against the latest committed value and rejects the one
// that would go negative.
func (s *BusinessService) Purchase(userID, businessID string, quantity int64) (*PurchaseReceipt, error) {
	if quantity <= 0 || quantity > MaxPurchaseQuantity {
		return nil, ErrInvalidQuantity
	}
	bt, ok := LookupBusiness(businessID)
	if !ok {
		return nil, ErrUnknownBusiness
	}
	totalCost := quantity * bt.UnitCost

	receipt := &PurchaseReceipt{
		UserID:     userID,
		BusinessID: businessID,
		Quantity:   quantity,
		UnitCost:   bt.UnitCost,
		TotalCost:  totalCost,
	}
	err := runTx(s.DB, func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND balance >= ?", userID, totalCost).
			Update("balance", gorm.Expr("balance - ?", totalCost))
		if res.Error != nil {
			return fmt.Errorf("debit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Missing user and short balance both leave zero rows updated.
			var count int64
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
				return fmt.Errorf("lookup user: %w", err)
			}
			if count == 0 {
				return ErrUserNotFound
			}
			return ErrInsufficientFunds
		}

		holding := models.UserBusiness{
			ID:         uuid.NewString(),
			UserID:     userID,
			BusinessID: businessID,
			Quantity:   quantity,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "business_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("quantity + ?", quantity),
			}),
		}).Create(&holding).Error; err != nil {
			return fmt.Errorf("upsert holding: %w", err)
		}

		stat := models.BusinessStat{
			BusinessID:    businessID,
			UnitsSold:     quantity,
			CoinsInvested: totalCost,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "business_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"units_sold":     gorm.Expr("units_sold + ?", quantity),
				"coins_invested": gorm.Expr("coins_invested + ?", totalCost),
			}),
		}).Create(&stat).Error; err != nil {
			return fmt.Errorf("fold business stat: %w", err)
		}

		var fresh models.User
		if err := tx.First(&fresh, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		var owned models.UserBusiness
		if err := tx.Where("user_id = ? AND business_id = ?", userID, businessID).
			First(&owned).Error; err != nil {
			return fmt.Errorf("reload holding: %w", err)
		}

		if err := appendTransaction(tx, userID, -totalCost, models.TxReasonPurchase,
			fresh.Balance+totalCost, fresh.Balance,
			fmt.Sprintf("%d x %s", quantity, businessID)); err != nil {
			return err
		}

		receipt.NewBalance = fresh.Balance
		receipt.NewQuantityOwned = owned.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🏪 Purchase: %s bought %d x %s for %d coins (balance %d)",
		userID, quantity, businessID, totalCost, receipt.NewBalance)
	return receipt, nil
}

// Stats returns the global per-business aggregates.
func (s *BusinessService) Stats() ([]models.BusinessStat, error) {
	var stats []models.BusinessStat
	if err := s.DB.Order("business_id").Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("load business stats: %w", err)
	}
	return stats, nil
}
