package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// UserRepository resolves canonical users from vendor cross-references.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, uuid, name, agilix_id, edmentum_id, created_at, updated_at`

// FindByVendorID resolves a user from the vendor's external user id, or nil
// when no cross-reference exists yet.
func (r *UserRepository) FindByVendorID(ctx context.Context, lms models.LMSName, externalID string) (*models.User, error) {
	var column string
	switch lms {
	case models.LMSAgilix:
		column = "agilix_id"
	case models.LMSEdmentum:
		column = "edmentum_id"
	default:
		return nil, fmt.Errorf("unknown lms %q", lms)
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by %s %s: %w", column, externalID, err)
	}
	return &user, nil
}

// FindByID returns the user row or nil when absent.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &user, nil
}
