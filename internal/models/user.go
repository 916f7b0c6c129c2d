package models

import "time"

// User is the canonical person record. Vendor cross-references live on the
// row so synchronizers can resolve an LMS external id to a canonical user.
type User struct {
	ID         string    `db:"id" json:"id"`
	UUID       string    `db:"uuid" json:"uuid"`
	Name       string    `db:"name" json:"name"`
	AgilixID   *string   `db:"agilix_id" json:"agilix_id,omitempty"`
	EdmentumID *string   `db:"edmentum_id" json:"edmentum_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
