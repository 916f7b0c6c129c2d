package models

import (
	"encoding/json"
	"time"
)

// SyncJob identifies one of the periodic LMS synchronization jobs. The name
// doubles as the watermark column prefix on mirror tables
// (sync_<job>_at / sync_<job>_status).
type SyncJob string

const (
	SyncJobZone       SyncJob = "zone"
	SyncJobCourse     SyncJob = "course"
	SyncJobClass      SyncJob = "class"
	SyncJobAssignment SyncJob = "assignment"
	SyncJobScore      SyncJob = "score"
	SyncJobActivity   SyncJob = "activity"
)

// ParseSyncJob validates a job discriminator from external input.
func ParseSyncJob(raw string) (SyncJob, bool) {
	switch SyncJob(raw) {
	case SyncJobZone, SyncJobCourse, SyncJobClass, SyncJobAssignment, SyncJobScore, SyncJobActivity:
		return SyncJob(raw), true
	}
	return "", false
}

// LMSName discriminates the two supported vendors.
type LMSName string

const (
	LMSAgilix   LMSName = "agilix"
	LMSEdmentum LMSName = "edmentum"
)

// ParseLMSName validates a vendor discriminator from external input.
func ParseLMSName(raw string) (LMSName, bool) {
	switch LMSName(raw) {
	case LMSAgilix, LMSEdmentum:
		return LMSName(raw), true
	}
	return "", false
}

// WatermarkEpoch is the sentinel stamped onto records that have never been
// processed, making them eligible for the very first batch.
var WatermarkEpoch = time.Unix(0, 0).UTC()

// SourceRecord is one row of a vendor mirror table. The mirroring process
// owns Payload and PulledAt; this subsystem only writes the watermark pair.
type SourceRecord struct {
	ID         int64           `db:"id" json:"id"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	PulledAt   time.Time       `db:"pulled_at" json:"pulled_at"`
	SyncedAt   *time.Time      `db:"synced_at" json:"synced_at,omitempty"`
	SyncStatus *bool           `db:"sync_status" json:"sync_status,omitempty"`
}

// DispatchMessage is the queue payload routed to a synchronizer.
type DispatchMessage struct {
	Job      SyncJob `json:"job"`
	LMS      LMSName `json:"lms"`
	SchoolID string  `json:"school_id,omitempty"`
}
