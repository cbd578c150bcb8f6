package services

import (
	"fmt"
	"strings"
	"testing"

	"coin-tycoon/models"
	"coin-tycoon/utils"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a named in-memory database with the same schema and error
// translation as production. The pool is pinned to one connection so SQLite's
// writer scheduling stays out of the picture; the properties under test live
// in the conditional statements and unique indexes, which behave the same
// serialized or not.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.Referral{},
		&models.Transaction{},
		&models.UserBusiness{},
		&models.BusinessStat{},
		&models.LeaderboardSnapshot{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id, username string, balance int64) *models.User {
	t.Helper()
	user := &models.User{
		ID:           id,
		Username:     username,
		Balance:      balance,
		ReferralCode: utils.NewReferralCode(username),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user
}

func loadUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("load user %s: %v", id, err)
	}
	return &user
}
