package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-sync-api/internal/models"
	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
)

// SchoolRepository handles school persistence.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository creates a new school repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID returns the school row or ErrNotFound.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, uuid, name, zones, created_at, updated_at FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find school %s: %w", id, err)
	}
	return &school, nil
}

// UpdateZones replaces the school's zone map.
func (r *SchoolRepository) UpdateZones(ctx context.Context, schoolID string, zones models.ZoneMap) error {
	const query = `UPDATE schools SET zones = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, zones, time.Now().UTC(), schoolID); err != nil {
		return fmt.Errorf("update school %s zones: %w", schoolID, err)
	}
	return nil
}
