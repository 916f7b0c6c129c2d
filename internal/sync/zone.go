package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/dto"
	"github.com/noah-isme/sis-sync-api/internal/models"
)

type zoneWriter interface {
	UpdateZones(ctx context.Context, schoolID string, zones models.ZoneMap) error
}

type schoolDocWriter interface {
	PutSchool(ctx context.Context, doc *models.SchoolDocument) error
}

// ZoneSynchronizer folds vendor organizational groupings (Agilix domains,
// Edmentum programs) into the school's per-LMS zone list. Merging is a set
// union keyed by the serialized zone tuple, so re-pulls never duplicate
// entries.
type ZoneSynchronizer struct {
	lms     models.LMSName
	table   string
	decode  func(json.RawMessage) (models.Zone, error)
	exclude func(models.Zone) bool

	schools    zoneWriter
	schoolDocs schoolDocWriter
	logger     *zap.Logger
}

// NewAgilixZoneSynchronizer maps Agilix domains.
func NewAgilixZoneSynchronizer(schools zoneWriter, schoolDocs schoolDocWriter, logger *zap.Logger) *ZoneSynchronizer {
	return &ZoneSynchronizer{
		lms:   models.LMSAgilix,
		table: "lms_agilix_domains",
		decode: func(raw json.RawMessage) (models.Zone, error) {
			d, err := dto.DecodeAgilixDomain(raw)
			if err != nil {
				return models.Zone{}, err
			}
			return d.Zone(), nil
		},
		schools:    schools,
		schoolDocs: schoolDocs,
		logger:     logger,
	}
}

// NewEdmentumZoneSynchronizer maps Edmentum programs, excluding the reserved
// program id.
func NewEdmentumZoneSynchronizer(schools zoneWriter, schoolDocs schoolDocWriter, reservedProgramID string, logger *zap.Logger) *ZoneSynchronizer {
	return &ZoneSynchronizer{
		lms:   models.LMSEdmentum,
		table: "lms_edmentum_programs",
		decode: func(raw json.RawMessage) (models.Zone, error) {
			p, err := dto.DecodeEdmentumProgram(raw)
			if err != nil {
				return models.Zone{}, err
			}
			return p.Zone(), nil
		},
		exclude: func(z models.Zone) bool {
			return z.ID == reservedProgramID
		},
		schools:    schools,
		schoolDocs: schoolDocs,
		logger:     logger,
	}
}

// Job implements Synchronizer.
func (s *ZoneSynchronizer) Job() models.SyncJob { return models.SyncJobZone }

// LMS implements Synchronizer.
func (s *ZoneSynchronizer) LMS() models.LMSName { return s.lms }

// SourceTable implements Synchronizer.
func (s *ZoneSynchronizer) SourceTable() string { return s.table }

// Sync merges one vendor grouping into the school's zone list.
func (s *ZoneSynchronizer) Sync(ctx context.Context, run *RunContext, record models.SourceRecord) Result {
	zone, err := s.decode(record.Payload)
	if err != nil {
		return Failure(ReasonDecode, err)
	}
	if zone.ID == "" {
		return Failure(ReasonValidation, fmt.Errorf("zone record %d has no id", record.ID))
	}
	if s.exclude != nil && s.exclude(zone) {
		return Skip("reserved_program")
	}

	if run.School.Zones == nil {
		run.School.Zones = models.ZoneMap{}
	}
	if !mergeZone(run.School.Zones, run.LMS.UUID, zone) {
		// Already present with identical title; confirm and move on.
		return Success()
	}

	if err := s.schools.UpdateZones(ctx, run.School.ID, run.School.Zones); err != nil {
		return Failure(ReasonPersist, err)
	}
	run.SchoolDoc.Zones = run.School.Zones
	if err := s.schoolDocs.PutSchool(ctx, run.SchoolDoc); err != nil {
		return Failure(ReasonPersist, err)
	}
	return Success()
}

// mergeZone adds the zone to the LMS's list unless an identical tuple is
// already there. Returns true when the map changed.
func mergeZone(zones models.ZoneMap, lmsUUID string, zone models.Zone) bool {
	seen := make(map[string]bool, len(zones[lmsUUID]))
	for _, existing := range zones[lmsUUID] {
		seen[existing.ID+"|"+existing.Title] = true
	}
	if seen[zone.ID+"|"+zone.Title] {
		return false
	}
	// A re-titled zone replaces its previous entry instead of accumulating.
	list := zones[lmsUUID][:0:0]
	for _, existing := range zones[lmsUUID] {
		if existing.ID != zone.ID {
			list = append(list, existing)
		}
	}
	zones[lmsUUID] = append(list, zone)
	return true
}
