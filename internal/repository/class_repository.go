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

const classColumns = `id, uuid, lms_id, external_id, school_id, name, zone_id, course_id, course_external_id,
        start_date, end_date, status, weight, created_at, updated_at`

// ClassRepository handles canonical class persistence.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByNaturalKey returns the class for (lms_id, external_id), or nil when
// absent. Absence is not an error for synchronizers.
func (r *ClassRepository) FindByNaturalKey(ctx context.Context, lmsID, externalID string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE lms_id = $1 AND external_id = $2`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, lmsID, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find class %s/%s: %w", lmsID, externalID, err)
	}
	return &class, nil
}

// FindBySchoolAndExternal resolves a class from a vendor class reference.
func (r *ClassRepository) FindBySchoolAndExternal(ctx context.Context, schoolID, lmsID, externalID string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE school_id = $1 AND lms_id = $2 AND external_id = $3`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, schoolID, lmsID, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find class %s/%s/%s: %w", schoolID, lmsID, externalID, err)
	}
	return &class, nil
}

// Upsert inserts or updates a class by its natural key. ID and UUID are
// minted on first insert and preserved afterwards.
func (r *ClassRepository) Upsert(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.UUID == "" {
		class.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, uuid, lms_id, external_id, school_id, name, zone_id, course_id, course_external_id,
                start_date, end_date, status, weight, created_at, updated_at)
        VALUES (:id, :uuid, :lms_id, :external_id, :school_id, :name, :zone_id, :course_id, :course_external_id,
                :start_date, :end_date, :status, :weight, :created_at, :updated_at)
        ON CONFLICT (lms_id, external_id)
        DO UPDATE SET name = EXCLUDED.name,
                zone_id = EXCLUDED.zone_id,
                course_id = EXCLUDED.course_id,
                course_external_id = EXCLUDED.course_external_id,
                start_date = EXCLUDED.start_date,
                end_date = EXCLUDED.end_date,
                status = EXCLUDED.status,
                weight = EXCLUDED.weight,
                updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("upsert class %s/%s: %w", class.LMSID, class.ExternalID, err)
	}
	return nil
}
