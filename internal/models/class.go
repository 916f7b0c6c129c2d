package models

import "time"

// ClassStatus represents the lifecycle of a canonical class.
type ClassStatus string

// Possible class statuses.
const (
	ClassStatusPending  ClassStatus = "pending"
	ClassStatusOnGoing  ClassStatus = "on_going"
	ClassStatusActive   ClassStatus = "active"
	ClassStatusInactive ClassStatus = "inactive"
)

// Syncable reports whether a class in this status may still be overwritten
// by upstream data. Anything else is an administrative state the sync jobs
// must leave alone.
func (s ClassStatus) Syncable() bool {
	switch s {
	case ClassStatusActive, ClassStatusInactive, ClassStatusOnGoing:
		return true
	default:
		return false
	}
}

// Class is the canonical class entity, keyed by (lms_id, external_id).
// UUID is minted on first insert and preserved across updates.
type Class struct {
	ID               string      `db:"id" json:"id"`
	UUID             string      `db:"uuid" json:"uuid"`
	LMSID            string      `db:"lms_id" json:"lms_id"`
	ExternalID       string      `db:"external_id" json:"external_id" validate:"required"`
	SchoolID         string      `db:"school_id" json:"school_id" validate:"required"`
	Name             string      `db:"name" json:"name" validate:"required"`
	ZoneID           string      `db:"zone_id" json:"zone_id"`
	CourseID         *string     `db:"course_id" json:"course_id,omitempty"`
	CourseExternalID string      `db:"course_external_id" json:"course_external_id"`
	StartDate        *time.Time  `db:"start_date" json:"start_date,omitempty"`
	EndDate          *time.Time  `db:"end_date" json:"end_date,omitempty"`
	Status           ClassStatus `db:"status" json:"status" validate:"required"`
	Weight           float64     `db:"weight" json:"weight"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassDocument is the document-store mirror of a class, written after the
// relational upsert succeeds so it always carries the relational id.
type ClassDocument struct {
	ID               string      `json:"id"`
	UUID             string      `json:"uuid"`
	LMSID            string      `json:"lms_id"`
	ExternalID       string      `json:"external_id"`
	SchoolID         string      `json:"school_id"`
	Name             string      `json:"name"`
	ZoneID           string      `json:"zone_id"`
	CourseID         *string     `json:"course_id,omitempty"`
	CourseExternalID string      `json:"course_external_id"`
	StartDate        *time.Time  `json:"start_date,omitempty"`
	EndDate          *time.Time  `json:"end_date,omitempty"`
	Status           ClassStatus `json:"status"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
