package models

import "time"

// Score is a student's standing in a class, keyed by (class_id, user_id).
// Upserted by the score synchronizer, never duplicated.
type Score struct {
	ID            string    `db:"id" json:"id"`
	UUID          string    `db:"uuid" json:"uuid"`
	ClassID       string    `db:"class_id" json:"class_id" validate:"required"`
	UserID        string    `db:"user_id" json:"user_id" validate:"required"`
	Score         float64   `db:"score" json:"score"`
	CurrentScore  float64   `db:"current_score" json:"current_score"`
	GradeLetter   string    `db:"grade_letter" json:"grade_letter"`
	GradeLetterID *string   `db:"grade_letter_id" json:"grade_letter_id,omitempty"`
	IsPass        bool      `db:"is_pass" json:"is_pass"`
	Weight        float64   `db:"weight" json:"weight"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
