package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// ActivityCatalogRepository reads the configured activity catalog per class.
// Edmentum activity sync enumerates this catalog so every configured
// activity appears on a student's document even before an attempt exists.
type ActivityCatalogRepository struct {
	db *sqlx.DB
}

// NewActivityCatalogRepository creates a new activity catalog repository.
func NewActivityCatalogRepository(db *sqlx.DB) *ActivityCatalogRepository {
	return &ActivityCatalogRepository{db: db}
}

// ListByClass returns the class's catalog entries.
func (r *ActivityCatalogRepository) ListByClass(ctx context.Context, classID string) ([]models.ActivityCatalogEntry, error) {
	const query = `SELECT id, class_id, name, category, max_point
        FROM class_activity_catalog WHERE class_id = $1 ORDER BY name`
	var entries []models.ActivityCatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("list activity catalog for class %s: %w", classID, err)
	}
	return entries, nil
}
