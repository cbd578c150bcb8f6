package services

import (
	"errors"
	"fmt"
	"log"

	"coin-tycoon/models"
	"coin-tycoon/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSelfReferral     = errors.New("self-referral is not allowed")
	ErrReferrerNotFound = errors.New("referrer not found")
	ErrReferredExists   = errors.New("referred user already has an account")
	ErrAlreadyClaimed   = errors.New("referral already claimed")
)

// ReferralReward is the referrer's state after a successful claim.
type ReferralReward struct {
	ReferrerID         string       `json:"referrer_id"`
	NewReferralCount   int64        `json:"new_referral_count"`
	NewReferrerBalance int64        `json:"new_referrer_balance"`
	ReferredUser       *models.User `json:"referred_user"`
}

type ReferralService struct {
	DB            *gorm.DB
	Bonus         int64
	StartingGrant int64
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{
		DB:            db,
		Bonus:         envInt64("REFERRAL_BONUS", 100),
		StartingGrant: envInt64("STARTING_GRANT", 100),
	}
}

// ClaimReferral records a (referrer, referred) pair, creates the referred
// user with the starting grant and credits the referrer's bonus, all in one
// database transaction.
//
// Duplicate deliveries (webhook retries, double taps, two near-simultaneous
// claims for the same pair) are handled by the unique index on
// (referrer_id, referred_id): exactly one claim inserts the row and performs
// the reward, every other attempt gets ErrAlreadyClaimed with no side
// effects.
func (s *ReferralService) ClaimReferral(referrerID, referredID, referredName string) (*ReferralReward, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}

	var referrer models.User
	if err := s.DB.First(&referrer, "id = ?", referrerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferrerNotFound
		}
		return nil, fmt.Errorf("lookup referrer: %w", err)
	}

	// New-user-only policy: a candidate that already has an account cannot be
	// re-attached. If the account came from this exact pair's earlier claim,
	// report the claim as already consumed instead.
	var existing int64
	if err := s.DB.Model(&models.User{}).Where("id = ?", referredID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("lookup referred: %w", err)
	}
	if existing > 0 {
		var claimed int64
		if err := s.DB.Model(&models.Referral{}).
			Where("referrer_id = ? AND referred_id = ?", referrerID, referredID).
			Count(&claimed).Error; err != nil {
			return nil, fmt.Errorf("lookup referral pair: %w", err)
		}
		if claimed > 0 {
			return nil, ErrAlreadyClaimed
		}
		return nil, ErrReferredExists
	}

	reward := &ReferralReward{ReferrerID: referrerID}
	err := runTx(s.DB, func(tx *gorm.DB) error {
		// The unique-constraint gate. Whoever inserts this row first is the
		// one claim that rewards; everyone else rolls back untouched.
		ref := models.Referral{
			ID:               uuid.NewString(),
			ReferrerID:       referrerID,
			ReferredID:       referredID,
			ReferralCodeUsed: referrer.ReferralCode,
			BonusAwarded:     s.Bonus,
		}
		if err := tx.Create(&ref).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyClaimed
			}
			return fmt.Errorf("record referral: %w", err)
		}

		referred := models.User{
			ID:           referredID,
			Username:     referredName,
			Balance:      s.StartingGrant,
			ReferredBy:   &referrerID,
			ReferralCode: utils.NewReferralCode(referredName),
		}
		if err := tx.Create(&referred).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost a race against a plain signup, or against a claim by a
				// different referrer, for the same candidate. Rolling back
				// also discards our referral row.
				return ErrReferredExists
			}
			return fmt.Errorf("create referred user: %w", err)
		}

		res := tx.Model(&models.User{}).
			Where("id = ?", referrerID).
			Updates(map[string]interface{}{
				"balance":        gorm.Expr("balance + ?", s.Bonus),
				"referral_count": gorm.Expr("referral_count + ?", 1),
			})
		if res.Error != nil {
			return fmt.Errorf("credit referrer: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrReferrerNotFound
		}

		var fresh models.User
		if err := tx.First(&fresh, "id = ?", referrerID).Error; err != nil {
			return fmt.Errorf("reload referrer: %w", err)
		}

		if err := appendTransaction(tx, referredID, s.StartingGrant, models.TxReasonStartingGrant,
			0, s.StartingGrant, "signup via referral "+referrer.ReferralCode); err != nil {
			return err
		}
		if err := appendTransaction(tx, referrerID, s.Bonus, models.TxReasonReferralBonus,
			fresh.Balance-s.Bonus, fresh.Balance, "referred "+referredID); err != nil {
			return err
		}

		reward.NewReferralCount = fresh.ReferralCount
		reward.NewReferrerBalance = fresh.Balance
		reward.ReferredUser = &referred
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎉 Referral rewarded: %s → %s (+%d coins, %d referrals total)",
		referrerID, referredID, s.Bonus, reward.NewReferralCount)
	return reward, nil
}
