// workers/leaderboard_snapshot_worker.go
package workers

import (
	"log"
	"time"

	"coin-tycoon/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StartLeaderboardSnapshots materializes the top balances on a fixed
// schedule so leaderboard reads hit the snapshot table instead of scanning
// users.
func StartLeaderboardSnapshots(db *gorm.DB, interval time.Duration, topN int) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			snapshotLeaderboard(db, topN)
		}),
	)
	log.Printf("🏆 Leaderboard snapshot job scheduled (every %s, top %d)", interval, topN)
}

func snapshotLeaderboard(db *gorm.DB, topN int) {
	var users []models.User
	if err := db.Order("balance DESC").Limit(topN).Find(&users).Error; err != nil {
		log.Printf("[Snapshot] DB error: %v", err)
		return
	}
	if len(users) == 0 {
		return
	}

	capturedAt := time.Now().UTC()
	rows := make([]models.LeaderboardSnapshot, 0, len(users))
	for i, u := range users {
		rows = append(rows, models.LeaderboardSnapshot{
			ID:         uuid.NewString(),
			Rank:       i + 1,
			UserID:     u.ID,
			Username:   u.Username,
			Balance:    u.Balance,
			CapturedAt: capturedAt,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		log.Printf("[Snapshot] Failed to write leaderboard snapshot: %v", err)
		return
	}

	// Keep a day of history, the reads only ever want the latest batch.
	if err := db.Where("captured_at < ?", capturedAt.Add(-24*time.Hour)).
		Delete(&models.LeaderboardSnapshot{}).Error; err != nil {
		log.Printf("[Snapshot] Failed to prune old snapshots: %v", err)
	}

	log.Printf("✅ Leaderboard snapshot captured (%d entries)", len(rows))
}
