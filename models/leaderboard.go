package models

import "time"

// LeaderboardSnapshot is a materialized top-balance row written by the
// snapshot worker so leaderboard reads never scan the users table.
type LeaderboardSnapshot struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	Rank       int       `gorm:"not null;index:idx_snapshot_rank" json:"rank"`
	UserID     string    `gorm:"not null" json:"user_id"`
	Username   string    `gorm:"not null" json:"username"`
	Balance    int64     `gorm:"not null" json:"balance"`
	CapturedAt time.Time `gorm:"not null;index:idx_snapshot_rank" json:"captured_at"`
}
