package dedupe

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Tracker is the analysis ledger: one row per printer serial recording how
// often analyses were triggered and what the last run found.
type Tracker struct {
	db *sql.DB
}

// NewTracker creates a new ledger tracker
func NewTracker(db *sql.DB) (*Tracker, error) {
	tracker := &Tracker{db: db}

	// Create table if not exists
	if err := tracker.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger table: %w", err)
	}

	return tracker, nil
}

// ensureTable creates the plate_analysis_ledger table if it doesn't exist
func (t *Tracker) ensureTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS plate_analysis_ledger (
			serial TEXT PRIMARY KEY,
			first_seen_at TIMESTAMPTZ DEFAULT NOW(),
			last_seen_at TIMESTAMPTZ DEFAULT NOW(),
			seen_count INTEGER DEFAULT 1,
			last_object_count INTEGER
		)
	`

	_, err := t.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create plate_analysis_ledger table: %w", err)
	}

	log.Printf("✓ plate_analysis_ledger table ready")
	return nil
}

// Record records a triggered analysis for a serial and returns the seen count
func (t *Tracker) Record(ctx context.Context, serial string) (int, error) {
	// Upsert: increment seen_count if exists, insert if not
	query := `
		INSERT INTO plate_analysis_ledger (serial, first_seen_at, last_seen_at, seen_count)
		VALUES ($1, NOW(), NOW(), 1)
		ON CONFLICT (serial) DO UPDATE
		SET last_seen_at = NOW(),
		    seen_count = plate_analysis_ledger.seen_count + 1
		RETURNING seen_count
	`

	var seenCount int
	err := t.db.QueryRowContext(ctx, query, serial).Scan(&seenCount)
	if err != nil {
		return 0, fmt.Errorf("failed to record analysis: %w", err)
	}

	return seenCount, nil
}

// RecordObjectCount stores the object count of the latest completed analysis
func (t *Tracker) RecordObjectCount(ctx context.Context, serial string, objectCount int) error {
	query := `
		UPDATE plate_analysis_ledger
		SET last_object_count = $2
		WHERE serial = $1
	`

	if _, err := t.db.ExecContext(ctx, query, serial, objectCount); err != nil {
		return fmt.Errorf("failed to record object count: %w", err)
	}
	return nil
}

// GetSeenCount retrieves the seen count for a serial
func (t *Tracker) GetSeenCount(ctx context.Context, serial string) (int, error) {
	query := `SELECT seen_count FROM plate_analysis_ledger WHERE serial = $1`

	var seenCount int
	err := t.db.QueryRowContext(ctx, query, serial).Scan(&seenCount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get seen count: %w", err)
	}

	return seenCount, nil
}
