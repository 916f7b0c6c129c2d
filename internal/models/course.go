package models

import "time"

// Course is the canonical course entity, keyed by
// (lms_id, school_id, external_id). Classes reference it via CourseID once
// resolution succeeds; a class may sync before its course arrives.
type Course struct {
	ID         string    `db:"id" json:"id"`
	UUID       string    `db:"uuid" json:"uuid"`
	LMSID      string    `db:"lms_id" json:"lms_id"`
	SchoolID   string    `db:"school_id" json:"school_id" validate:"required"`
	ExternalID string    `db:"external_id" json:"external_id" validate:"required"`
	Name       string    `db:"name" json:"name" validate:"required"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDocument is the document-store mirror of a course.
type CourseDocument struct {
	ID         string    `json:"id"`
	UUID       string    `json:"uuid"`
	LMSID      string    `json:"lms_id"`
	SchoolID   string    `json:"school_id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	UpdatedAt  time.Time `json:"updated_at"`
}
