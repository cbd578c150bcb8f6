package services

import (
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const txAttempts = 3

// runTx executes fn in one transaction, retrying a bounded number of times
// when the database reports transient contention. Everything else, business
// outcomes included, passes through untouched; a retried attempt re-runs fn
// from scratch against a fresh transaction.
func runTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = db.Transaction(fn)
		if !isTransientTxError(err) {
			return err
		}
		log.Printf("⚠️  Transient DB contention (attempt %d/%d): %v", attempt, txAttempts, err)
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return err
}

func isTransientTxError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure and deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
