package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// SourceRepository is the watermark store over the vendor mirror tables.
// Each table carries a (sync_<job>_at, sync_<job>_status) column pair per
// job that reads it; the mirroring process owns payload and pulled_at.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Table and job names are internal constants, never user input, so building
// identifiers with Sprintf is safe here.

// InitWatermarks stamps the epoch sentinel onto records that have never been
// processed by the job, making them eligible for the first batch.
func (r *SourceRepository) InitWatermarks(ctx context.Context, table string, job models.SyncJob) error {
	query := fmt.Sprintf(
		"UPDATE %s SET sync_%s_at = $1, sync_%s_status = NULL WHERE sync_%s_at IS NULL",
		table, job, job, job,
	)
	if _, err := r.db.ExecContext(ctx, query, models.WatermarkEpoch); err != nil {
		return fmt.Errorf("init %s watermarks on %s: %w", job, table, err)
	}
	return nil
}

// FetchPending returns up to limit records whose upstream copy is fresher
// than the job's last attempt, oldest attempt first. Oldest-first ordering
// guarantees eventual coverage even under continuous new-record arrival and
// gives failing records a natural backoff.
func (r *SourceRepository) FetchPending(ctx context.Context, table string, job models.SyncJob, limit int) ([]models.SourceRecord, error) {
	query := fmt.Sprintf(
		`SELECT id, payload, pulled_at, sync_%s_at AS synced_at, sync_%s_status AS sync_status
        FROM %s
        WHERE pulled_at > sync_%s_at
        ORDER BY sync_%s_at ASC
        LIMIT $1`,
		job, job, table, job, job,
	)
	var records []models.SourceRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("fetch pending %s records from %s: %w", job, table, err)
	}
	return records, nil
}

// MarkProcessed writes the watermark for one record: the attempt time and
// whether it succeeded. Called exactly once per fetched record.
func (r *SourceRepository) MarkProcessed(ctx context.Context, table string, job models.SyncJob, recordID int64, success bool) error {
	query := fmt.Sprintf(
		"UPDATE %s SET sync_%s_at = $1, sync_%s_status = $2 WHERE id = $3",
		table, job, job,
	)
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), success, recordID); err != nil {
		return fmt.Errorf("mark %s record %d processed on %s: %w", job, recordID, table, err)
	}
	return nil
}
