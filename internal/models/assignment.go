package models

import "time"

// AssignmentRole is a user's role within a class.
type AssignmentRole string

// Possible assignment roles.
const (
	RoleStudent          AssignmentRole = "student"
	RolePrimaryTeacher   AssignmentRole = "primary_teacher"
	RoleSecondaryTeacher AssignmentRole = "secondary_teacher"
)

// AssignmentStatus mirrors vendor enrollment lifecycle codes.
type AssignmentStatus string

// Possible assignment statuses.
const (
	AssignmentStatusActive     AssignmentStatus = "active"
	AssignmentStatusWithdrawal AssignmentStatus = "withdrawal"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusInactive   AssignmentStatus = "inactive"
)

// ClassAssignment links a user to a class with a role, keyed by
// (class_id, user_id, assignment).
type ClassAssignment struct {
	ID         string           `db:"id" json:"id"`
	ClassID    string           `db:"class_id" json:"class_id" validate:"required"`
	UserID     string           `db:"user_id" json:"user_id" validate:"required"`
	Assignment AssignmentRole   `db:"assignment" json:"assignment" validate:"required"`
	Status     AssignmentStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}
