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

// ScoreRepository handles score persistence.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository creates a new score repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// FindByClassUser returns the score for (class_id, user_id), or nil when
// absent.
func (r *ScoreRepository) FindByClassUser(ctx context.Context, classID, userID string) (*models.Score, error) {
	const query = `SELECT id, uuid, class_id, user_id, score, current_score, grade_letter, grade_letter_id,
                is_pass, weight, created_at, updated_at
        FROM scores WHERE class_id = $1 AND user_id = $2`
	var score models.Score
	if err := r.db.GetContext(ctx, &score, query, classID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find score %s/%s: %w", classID, userID, err)
	}
	return &score, nil
}

// Upsert inserts or updates a score by (class_id, user_id), preserving the
// UUID of an existing row.
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.Score) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.UUID == "" {
		score.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}
	score.UpdatedAt = now
	const query = `INSERT INTO scores (id, uuid, class_id, user_id, score, current_score, grade_letter, grade_letter_id,
                is_pass, weight, created_at, updated_at)
        VALUES (:id, :uuid, :class_id, :user_id, :score, :current_score, :grade_letter, :grade_letter_id,
                :is_pass, :weight, :created_at, :updated_at)
        ON CONFLICT (class_id, user_id)
        DO UPDATE SET score = EXCLUDED.score,
                current_score = EXCLUDED.current_score,
                grade_letter = EXCLUDED.grade_letter,
                grade_letter_id = EXCLUDED.grade_letter_id,
                is_pass = EXCLUDED.is_pass,
                weight = EXCLUDED.weight,
                updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, score); err != nil {
		return fmt.Errorf("upsert score %s/%s: %w", score.ClassID, score.UserID, err)
	}
	return nil
}
