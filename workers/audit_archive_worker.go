// workers/audit_archive_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"coin-tycoon/models"
	"coin-tycoon/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditArchiveWorker exports aged audit rows to R2 as JSON objects and stamps
// them archived. Rows are never deleted and their content never changes;
// ArchivedAt is the only column this worker touches.
type AuditArchiveWorker struct {
	DB        *gorm.DB
	Retention time.Duration
	BatchSize int
	Interval  time.Duration
}

func NewAuditArchiveWorker(db *gorm.DB, retention time.Duration) *AuditArchiveWorker {
	return &AuditArchiveWorker{
		DB:        db,
		Retention: retention,
		BatchSize: 500,
		Interval:  10 * time.Minute,
	}
}

func (w *AuditArchiveWorker) Start(ctx context.Context) {
	log.Printf("📦 Starting audit archive worker (retention %s, every %s)", w.Retention, w.Interval)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Audit archive worker stopped.")
			return
		case <-ticker.C:
			if err := w.archiveBatch(ctx); err != nil {
				log.Printf("❌ Audit archive batch failed: %v", err)
			}
		}
	}
}

func (w *AuditArchiveWorker) archiveBatch(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-w.Retention)

	var rows []models.Transaction
	if err := w.DB.Where("archived_at IS NULL AND created_at < ?", cutoff).
		Order("created_at").
		Limit(w.BatchSize).
		Find(&rows).Error; err != nil {
		return fmt.Errorf("select archivable rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode archive batch: %w", err)
	}

	key := fmt.Sprintf("audit/%s-%s.json",
		time.Now().UTC().Format("20060102T150405Z"),
		strings.SplitN(uuid.NewString(), "-", 2)[0])
	if err := uploadWithRetry(ctx, key, payload); err != nil {
		return err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	now := time.Now().UTC()
	if err := w.DB.Model(&models.Transaction{}).
		Where("id IN ?", ids).
		Update("archived_at", now).Error; err != nil {
		// The next batch re-exports these rows; duplicate objects in the
		// archive are harmless, a missed stamp is not.
		return fmt.Errorf("stamp archived rows: %w", err)
	}

	log.Printf("✅ Archived %d audit rows to %s", len(rows), key)
	return nil
}

// uploadWithRetry makes bounded attempts with linear backoff, then
// surfaces the last error to the caller.
func uploadWithRetry(ctx context.Context, key string, payload []byte) error {
	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if _, err := utils.UploadJSONToR2(ctx, key, payload); err == nil {
			return nil
		} else {
			lastErr = err
			log.Printf("⚠️  Archive upload attempt %d/%d failed: %v", attempt, maxAttempts, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	return fmt.Errorf("upload archive %s: %w", key, lastErr)
}
