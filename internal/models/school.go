package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Zone is a vendor organizational grouping (Agilix domain, Edmentum program)
// flattened to the shape schools consume.
type Zone struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ZoneMap holds the per-LMS zone lists stored on a school, keyed by LMS UUID.
// Persisted as JSONB.
type ZoneMap map[string][]Zone

// Value marshals the zone map for persistence.
func (z ZoneMap) Value() (driver.Value, error) {
	if z == nil {
		z = ZoneMap{}
	}
	data, err := json.Marshal(z)
	if err != nil {
		return nil, fmt.Errorf("marshal zone map: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB payload into the zone map.
func (z *ZoneMap) Scan(value interface{}) error {
	if value == nil {
		*z = ZoneMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ZoneMap", value)
	}
	if len(data) == 0 {
		*z = ZoneMap{}
		return nil
	}
	if err := json.Unmarshal(data, z); err != nil {
		return fmt.Errorf("unmarshal zone map: %w", err)
	}
	return nil
}

// School is the relational school record sync runs are scoped to.
type School struct {
	ID        string    `db:"id" json:"id"`
	UUID      string    `db:"uuid" json:"uuid"`
	Name      string    `db:"name" json:"name"`
	Zones     ZoneMap   `db:"zones" json:"zones"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolDocument is the document-store mirror of a school.
type SchoolDocument struct {
	UUID  string  `json:"uuid"`
	Name  string  `json:"name"`
	Zones ZoneMap `json:"zones"`
}

// LMS is a registered learning management system.
type LMS struct {
	ID   string  `db:"id" json:"id"`
	UUID string  `db:"uuid" json:"uuid"`
	Name LMSName `db:"name" json:"name"`
}
