package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-sync-api/internal/models"
	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
)

// LMSRepository handles registered LMS records.
type LMSRepository struct {
	db *sqlx.DB
}

// NewLMSRepository creates a new LMS repository.
func NewLMSRepository(db *sqlx.DB) *LMSRepository {
	return &LMSRepository{db: db}
}

// FindByName returns the LMS row for a vendor name or ErrNotFound.
func (r *LMSRepository) FindByName(ctx context.Context, name models.LMSName) (*models.LMS, error) {
	const query = `SELECT id, uuid, name FROM lms WHERE name = $1`
	var lms models.LMS
	if err := r.db.GetContext(ctx, &lms, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find lms %s: %w", name, err)
	}
	return &lms, nil
}
