package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// CourseRepository handles canonical course persistence.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByNaturalKey returns the course for (lms_id, school_id, external_id),
// or nil when absent.
func (r *CourseRepository) FindByNaturalKey(ctx context.Context, lmsID, schoolID, externalID string) (*models.Course, error) {
	const query = `SELECT id, uuid, lms_id, school_id, external_id, name, created_at, updated_at
        FROM courses WHERE lms_id = $1 AND school_id = $2 AND external_id = $3`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, lmsID, schoolID, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find course %s/%s/%s: %w", lmsID, schoolID, externalID, err)
	}
	return &course, nil
}

// Upsert inserts or updates a course by its natural key, preserving the UUID
// of an existing row.
func (r *CourseRepository) Upsert(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.UUID == "" {
		course.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, uuid, lms_id, school_id, external_id, name, created_at, updated_at)
        VALUES (:id, :uuid, :lms_id, :school_id, :external_id, :name, :created_at, :updated_at)
        ON CONFLICT (lms_id, school_id, external_id)
        DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("upsert course %s/%s/%s: %w", course.LMSID, course.SchoolID, course.ExternalID, err)
	}
	return nil
}
