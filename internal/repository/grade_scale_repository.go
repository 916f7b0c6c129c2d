package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// GradeScaleRepository reads grading configuration.
type GradeScaleRepository struct {
	db *sqlx.DB
}

// NewGradeScaleRepository creates a new grade scale repository.
func NewGradeScaleRepository(db *sqlx.DB) *GradeScaleRepository {
	return &GradeScaleRepository{db: db}
}

// FindBySchool returns the school's grade scale, or nil when the school has
// none configured.
func (r *GradeScaleRepository) FindBySchool(ctx context.Context, schoolID string) (*models.GradeScale, error) {
	const query = `SELECT id, school_id, passing_grade FROM grade_scales WHERE school_id = $1`
	var scale models.GradeScale
	if err := r.db.GetContext(ctx, &scale, query, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find grade scale for school %s: %w", schoolID, err)
	}
	return &scale, nil
}

// ListLetters returns the scale's letter buckets ordered by ascending
// minimum score.
func (r *GradeScaleRepository) ListLetters(ctx context.Context, scaleID string) ([]models.GradeLetter, error) {
	const query = `SELECT id, scale_id, letter, min_score, max_score
        FROM grade_letters WHERE scale_id = $1 ORDER BY min_score ASC`
	var letters []models.GradeLetter
	if err := r.db.SelectContext(ctx, &letters, query, scaleID); err != nil {
		return nil, fmt.Errorf("list grade letters for scale %s: %w", scaleID, err)
	}
	return letters, nil
}
