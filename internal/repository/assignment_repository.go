package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// AssignmentRepository handles class assignment persistence.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// PrimaryTeacherUserID returns the persisted primary teacher of a class, or
// nil when none exists. Consulted before the per-run set so repeated runs
// agree on who is primary regardless of batch boundaries.
func (r *AssignmentRepository) PrimaryTeacherUserID(ctx context.Context, classID string) (*string, error) {
	const query = `SELECT user_id FROM class_assignments WHERE class_id = $1 AND assignment = $2`
	var userID string
	if err := r.db.GetContext(ctx, &userID, query, classID, models.RolePrimaryTeacher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find primary teacher for class %s: %w", classID, err)
	}
	return &userID, nil
}

// Upsert inserts or updates one assignment by (class_id, user_id, assignment).
func (r *AssignmentRepository) Upsert(ctx context.Context, assignment *models.ClassAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO class_assignments (id, class_id, user_id, assignment, status, created_at, updated_at)
        VALUES (:id, :class_id, :user_id, :assignment, :status, :created_at, :updated_at)
        ON CONFLICT (class_id, user_id, assignment)
        DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("upsert assignment %s/%s/%s: %w", assignment.ClassID, assignment.UserID, assignment.Assignment, err)
	}
	return nil
}

// SyncRoleMembership reconciles the stored membership for one class+role
// against the desired list: desired rows are upserted, rows no longer
// desired are removed. Runs in one transaction.
func (r *AssignmentRepository) SyncRoleMembership(ctx context.Context, classID string, role models.AssignmentRole, desired []models.ClassAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	userIDs := make([]string, 0, len(desired))
	for i := range desired {
		if desired[i].ID == "" {
			desired[i].ID = uuid.NewString()
		}
		if desired[i].CreatedAt.IsZero() {
			desired[i].CreatedAt = now
		}
		desired[i].UpdatedAt = now
		userIDs = append(userIDs, desired[i].UserID)
		const query = `INSERT INTO class_assignments (id, class_id, user_id, assignment, status, created_at, updated_at)
                VALUES (:id, :class_id, :user_id, :assignment, :status, :created_at, :updated_at)
                ON CONFLICT (class_id, user_id, assignment)
                DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
		if _, err := tx.NamedExecContext(ctx, query, desired[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("sync assignment %s/%s: %w", classID, desired[i].UserID, err)
		}
	}

	if len(userIDs) == 0 {
		query := `DELETE FROM class_assignments WHERE class_id = $1 AND assignment = $2`
		if _, err := tx.ExecContext(ctx, query, classID, role); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("clear %s membership for class %s: %w", role, classID, err)
		}
	} else {
		placeholders := make([]string, len(userIDs))
		args := make([]interface{}, 0, len(userIDs)+2)
		args = append(args, classID, role)
		for i, id := range userIDs {
			placeholders[i] = fmt.Sprintf("$%d", i+3)
			args = append(args, id)
		}
		query := fmt.Sprintf(
			"DELETE FROM class_assignments WHERE class_id = $1 AND assignment = $2 AND user_id NOT IN (%s)",
			strings.Join(placeholders, ","),
		)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("trim %s membership for class %s: %w", role, classID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment sync for class %s: %w", classID, err)
	}
	return nil
}

// ClassStudent pairs a student's canonical id with the UUID used in
// document-store keys.
type ClassStudent struct {
	UserID   string `db:"user_id"`
	UserUUID string `db:"user_uuid"`
}

// ListStudents returns the students assigned to a class.
func (r *AssignmentRepository) ListStudents(ctx context.Context, classID string) ([]ClassStudent, error) {
	const query = `SELECT ca.user_id, u.uuid AS user_uuid
        FROM class_assignments ca
        JOIN users u ON u.id = ca.user_id
        WHERE ca.class_id = $1 AND ca.assignment = $2
        ORDER BY ca.user_id`
	var students []ClassStudent
	if err := r.db.SelectContext(ctx, &students, query, classID, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("list students for class %s: %w", classID, err)
	}
	return students, nil
}
