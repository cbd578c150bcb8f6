package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"coin-tycoon/models"

	"github.com/google/uuid"
)

func newUserServiceForTest(t *testing.T) (*UserService, *ReferralService) {
	t.Helper()
	db := newTestDB(t)
	referrals := &ReferralService{DB: db, Bonus: 100, StartingGrant: 100}
	users := &UserService{
		DB:            db,
		Referrals:     referrals,
		StartingGrant: 100,
		MineCooldown:  time.Hour,
	}
	return users, referrals
}

func TestCreateOrFetchUserIsIdempotent(t *testing.T) {
	users, _ := newUserServiceForTest(t)

	created, err := users.CreateOrFetchUser("X", "xavier", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Balance != 100 {
		t.Fatalf("starting grant: got %d want 100", created.Balance)
	}
	if created.ReferralCode == "" {
		t.Fatalf("referral code not generated")
	}

	// Re-posting the same id returns the row unchanged, even with a referrer
	// attached: claims are never retried against existing accounts.
	referrer := "someone"
	fetched, err := users.CreateOrFetchUser("X", "renamed", &referrer)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fetched.Username != "xavier" || fetched.Balance != 100 || fetched.ReferredBy != nil {
		t.Fatalf("existing user mutated: %+v", fetched)
	}
}

func TestCreateOrFetchUserWithReferrerRunsClaim(t *testing.T) {
	users, _ := newUserServiceForTest(t)
	seedUser(t, users.DB, "A", "alice", 100)

	referrerID := "A"
	user, err := users.CreateOrFetchUser("B", "Bob", &referrerID)
	if err != nil {
		t.Fatalf("create via referral: %v", err)
	}
	if user.ReferredBy == nil || *user.ReferredBy != "A" {
		t.Fatalf("referred_by not set: %+v", user.ReferredBy)
	}

	a := loadUser(t, users.DB, "A")
	if a.Balance != 200 || a.ReferralCount != 1 {
		t.Fatalf("referrer not credited: balance=%d count=%d", a.Balance, a.ReferralCount)
	}
}

func TestMineCreditsIncomeOncePerCooldown(t *testing.T) {
	users, _ := newUserServiceForTest(t)
	seedUser(t, users.DB, "M", "miner", 0)

	result, err := users.Mine("M")
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if result.Amount != BaseMineIncome {
		t.Fatalf("mine amount: got %d want %d", result.Amount, BaseMineIncome)
	}
	if result.NewBalance != BaseMineIncome {
		t.Fatalf("balance after mine: got %d want %d", result.NewBalance, BaseMineIncome)
	}

	if _, err := users.Mine("M"); !errors.Is(err, ErrMineCooldown) {
		t.Fatalf("second mine: got %v want ErrMineCooldown", err)
	}
	if _, err := users.Mine("ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown miner: got %v want ErrUserNotFound", err)
	}
}

func TestMineIncludesBusinessIncome(t *testing.T) {
	users, _ := newUserServiceForTest(t)
	seedUser(t, users.DB, "M", "miner", 0)
	if err := users.DB.Create(&models.UserBusiness{
		ID: uuid.NewString(), UserID: "M", BusinessID: "DAPP", Quantity: 2,
	}).Error; err != nil {
		t.Fatalf("seed holding: %v", err)
	}

	result, err := users.Mine("M")
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	want := int64(BaseMineIncome + 2*150)
	if result.Amount != want {
		t.Fatalf("mine amount: got %d want %d", result.Amount, want)
	}
}

func TestMineDoubleTapCreditsOnce(t *testing.T) {
	users, _ := newUserServiceForTest(t)
	seedUser(t, users.DB, "M", "miner", 0)

	const taps = 8
	results := make([]error, taps)
	var wg sync.WaitGroup
	for i := 0; i < taps; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = users.Mine("M")
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrMineCooldown):
		default:
			t.Fatalf("unexpected mine error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("successful mines: got %d want exactly 1", succeeded)
	}
	if m := loadUser(t, users.DB, "M"); m.Balance != BaseMineIncome {
		t.Fatalf("balance after double tap: got %d want %d", m.Balance, BaseMineIncome)
	}
}

func TestLeaderboardLiveFallbackAndSnapshot(t *testing.T) {
	users, _ := newUserServiceForTest(t)
	seedUser(t, users.DB, "r1", "rich", 900)
	seedUser(t, users.DB, "r2", "richer", 1900)
	seedUser(t, users.DB, "r3", "poor", 9)

	entries, err := users.Leaderboard(2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "r2" || entries[1].UserID != "r1" {
		t.Fatalf("live leaderboard wrong: %+v", entries)
	}

	capturedAt := time.Now().UTC()
	snapshot := []models.LeaderboardSnapshot{
		{ID: uuid.NewString(), Rank: 1, UserID: "r3", Username: "poor", Balance: 9999, CapturedAt: capturedAt},
	}
	if err := users.DB.Create(&snapshot).Error; err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	entries, err = users.Leaderboard(10)
	if err != nil {
		t.Fatalf("leaderboard from snapshot: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "r3" {
		t.Fatalf("snapshot not served: %+v", entries)
	}
}
