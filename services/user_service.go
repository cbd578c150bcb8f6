package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"coin-tycoon/models"
	"coin-tycoon/utils"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrMineCooldown = errors.New("mining is still on cooldown")
)

// MineResult is returned after a committed mine claim.
type MineResult struct {
	UserID     string    `json:"user_id"`
	Amount     int64     `json:"amount"`
	NewBalance int64     `json:"new_balance"`
	NextMineAt time.Time `json:"next_mine_at"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

type UserService struct {
	DB            *gorm.DB
	Referrals     *ReferralService
	StartingGrant int64
	MineCooldown  time.Duration
}

func NewUserService(db *gorm.DB, referrals *ReferralService) *UserService {
	return &UserService{
		DB:            db,
		Referrals:     referrals,
		StartingGrant: envInt64("STARTING_GRANT", 100),
		MineCooldown:  envDuration("MINE_COOLDOWN", time.Hour),
	}
}

// CreateOrFetchUser returns the existing user unchanged if the id is already
// known (a referral claim is never retried against an existing account).
// For a new id it either bootstraps a plain account or, when referrerID is
// given, runs the full referral claim which creates the account and rewards
// the referrer in one transaction.
func (s *UserService) CreateOrFetchUser(id, username string, referrerID *string) (*models.User, error) {
	var existing models.User
	err := s.DB.First(&existing, "id = ?", id).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if referrerID != nil && *referrerID != "" {
		reward, err := s.Referrals.ClaimReferral(*referrerID, id, username)
		if err != nil {
			return nil, err
		}
		return reward.ReferredUser, nil
	}

	user := models.User{
		ID:           id,
		Username:     username,
		Balance:      s.StartingGrant,
		ReferralCode: utils.NewReferralCode(username),
	}
	err = runTx(s.DB, func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return appendTransaction(tx, id, s.StartingGrant, models.TxReasonStartingGrant,
			0, s.StartingGrant, "signup")
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a creation race; whoever won is authoritative.
			if err := s.DB.First(&existing, "id = ?", id).Error; err != nil {
				return nil, fmt.Errorf("fetch user after create race: %w", err)
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Printf("👤 New user %s (%s), starting grant %d coins", id, username, s.StartingGrant)
	return &user, nil
}

func (s *UserService) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}

// GetUserByReferralCode resolves a referral deep-link token to its owner.
func (s *UserService) GetUserByReferralCode(code string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "referral_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup referral code: %w", err)
	}
	return &user, nil
}

// Holdings returns the user's businesses as a businessID → quantity map.
func (s *UserService) Holdings(userID string) (map[string]int64, error) {
	var rows []models.UserBusiness
	if err := s.DB.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load holdings: %w", err)
	}
	holdings := make(map[string]int64, len(rows))
	for _, row := range rows {
		holdings[row.BusinessID] = row.Quantity
	}
	return holdings, nil
}

// Mine credits the user's passive income once per cooldown window. The
// credit is gated by a conditional UPDATE that requires last_mined_at to be
// unchanged since we read it, so a double tap lands exactly one credit: the
// loser sees zero rows updated and gets the cooldown error.
func (s *UserService) Mine(userID string) (*MineResult, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if user.LastMinedAt != nil && now.Sub(*user.LastMinedAt) < s.MineCooldown {
		return nil, ErrMineCooldown
	}

	holdings, err := s.Holdings(userID)
	if err != nil {
		return nil, err
	}
	amount := BaseMineIncome + IncomeRate(holdings)

	result := &MineResult{UserID: userID, Amount: amount, NextMineAt: now.Add(s.MineCooldown)}
	err = runTx(s.DB, func(tx *gorm.DB) error {
		q := tx.Model(&models.User{}).Where("id = ?", userID)
		if user.LastMinedAt == nil {
			q = q.Where("last_mined_at IS NULL")
		} else {
			q = q.Where("last_mined_at = ?", *user.LastMinedAt)
		}
		res := q.Updates(map[string]interface{}{
			"balance":       gorm.Expr("balance + ?", amount),
			"last_mined_at": now,
		})
		if res.Error != nil {
			return fmt.Errorf("credit mining income: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent claim won the window.
			return ErrMineCooldown
		}

		var fresh models.User
		if err := tx.First(&fresh, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		if err := appendTransaction(tx, userID, amount, models.TxReasonMining,
			fresh.Balance-amount, fresh.Balance, "mine claim"); err != nil {
			return err
		}
		result.NewBalance = fresh.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Leaderboard serves the latest materialized snapshot when one exists and
// falls back to a live query before the first snapshot run.
func (s *UserService) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var newest models.LeaderboardSnapshot
	err := s.DB.Order("captured_at DESC").First(&newest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find latest snapshot: %w", err)
	}
	if err == nil {
		var rows []models.LeaderboardSnapshot
		if err := s.DB.Where("captured_at = ?", newest.CapturedAt).
			Order("rank").Limit(limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("load leaderboard snapshot: %w", err)
		}
		entries := make([]LeaderboardEntry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, LeaderboardEntry{
				Rank: row.Rank, UserID: row.UserID, Username: row.Username, Balance: row.Balance,
			})
		}
		return entries, nil
	}

	var users []models.User
	if err := s.DB.Order("balance DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank: i + 1, UserID: u.ID, Username: u.Username, Balance: u.Balance,
		})
	}
	return entries, nil
}
