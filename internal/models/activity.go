package models

import "time"

// ActivityItem is one graded line item inside a class activity document.
type ActivityItem struct {
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Score      float64 `json:"score"`
	MaxPoint   float64 `json:"max_point"`
	Percentage float64 `json:"percentage"`
}

// ClassActivity is the document-store record of a student's activity in a
// class, keyed by (school_uuid, class_id, student_uuid). Final/current score
// and grade letter are denormalized from Score at sync time.
type ClassActivity struct {
	UUID         string         `json:"uuid"`
	SchoolUUID   string         `json:"school_uuid"`
	ClassID      string         `json:"class_id"`
	StudentUUID  string         `json:"student_uuid"`
	Items        []ActivityItem `json:"items"`
	FinalScore   float64        `json:"final_score"`
	CurrentScore float64        `json:"current_score"`
	GradeLetter  string         `json:"grade_letter"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ActivityCatalogEntry is a configured activity a class expects every
// enrolled student to eventually have a line item for.
type ActivityCatalogEntry struct {
	ID       string  `db:"id" json:"id"`
	ClassID  string  `db:"class_id" json:"class_id"`
	Name     string  `db:"name" json:"name"`
	Category string  `db:"category" json:"category"`
	MaxPoint float64 `db:"max_point" json:"max_point"`
}

// ClassAggregate summarises activity scores across a class, recomputed after
// score and activity syncs.
type ClassAggregate struct {
	ClassID      string    `json:"class_id"`
	StudentCount int       `json:"student_count"`
	AverageScore float64   `json:"average_score"`
	UpdatedAt    time.Time `json:"updated_at"`
}
