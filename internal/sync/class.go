package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/dto"
	"github.com/noah-isme/sis-sync-api/internal/models"
)

type classStore interface {
	FindByNaturalKey(ctx context.Context, lmsID, externalID string) (*models.Class, error)
	Upsert(ctx context.Context, class *models.Class) error
}

type courseResolver interface {
	FindByNaturalKey(ctx context.Context, lmsID, schoolID, externalID string) (*models.Course, error)
}

type classDocWriter interface {
	PutClass(ctx context.Context, doc *models.ClassDocument) error
}

// classFields is the vendor-neutral projection both mappers produce.
type classFields struct {
	ExternalID       string
	Name             string
	ZoneID           string
	CourseExternalID string
	StartMS          int64
	EndMS            int64
	Status           models.ClassStatus
	Weight           float64
}

// ClassSynchronizer maps vendor class records into canonical classes. Its
// skip rules protect local state from stale or out-of-order upstream
// re-pulls:
//  1. an existing class in an administrative status is never touched;
//  2. an incoming "pending" never downgrades a class that progressed;
//  3. a local edit newer than the upstream snapshot wins.
type ClassSynchronizer struct {
	lms           models.LMSName
	table         string
	decode        func(json.RawMessage) (classFields, error)
	conflictGrace time.Duration

	classes  classStore
	courses  courseResolver
	docs     classDocWriter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAgilixClassSynchronizer maps Agilix sections.
func NewAgilixClassSynchronizer(classes classStore, courses courseResolver, docs classDocWriter, conflictGrace time.Duration, logger *zap.Logger) *ClassSynchronizer {
	return &ClassSynchronizer{
		lms:   models.LMSAgilix,
		table: "lms_agilix_classes",
		decode: func(raw json.RawMessage) (classFields, error) {
			c, err := dto.DecodeAgilixClass(raw)
			if err != nil {
				return classFields{}, err
			}
			return classFields{
				ExternalID:       c.ID,
				Name:             c.Title,
				ZoneID:           c.DomainID,
				CourseExternalID: c.CourseID,
				StartMS:          c.StartDate,
				EndMS:            c.EndDate,
				Status:           mapVendorClassStatus(c.Status),
				Weight:           c.Weight.Float64(),
			}, nil
		},
		conflictGrace: conflictGrace,
		classes:       classes,
		courses:       courses,
		docs:          docs,
		validate:      validator.New(),
		logger:        logger,
	}
}

// NewEdmentumClassSynchronizer maps Edmentum classes.
func NewEdmentumClassSynchronizer(classes classStore, courses courseResolver, docs classDocWriter, conflictGrace time.Duration, logger *zap.Logger) *ClassSynchronizer {
	return &ClassSynchronizer{
		lms:   models.LMSEdmentum,
		table: "lms_edmentum_classes",
		decode: func(raw json.RawMessage) (classFields, error) {
			c, err := dto.DecodeEdmentumClass(raw)
			if err != nil {
				return classFields{}, err
			}
			return classFields{
				ExternalID:       c.ClassID,
				Name:             c.ClassName,
				ZoneID:           c.ProgramID,
				CourseExternalID: c.CourseID,
				StartMS:          c.StartDate,
				EndMS:            c.EndDate,
				Status:           mapVendorClassStatus(c.Status),
				Weight:           c.Weight.Float64(),
			}, nil
		},
		conflictGrace: conflictGrace,
		classes:       classes,
		courses:       courses,
		docs:          docs,
		validate:      validator.New(),
		logger:        logger,
	}
}

// Job implements Synchronizer.
func (s *ClassSynchronizer) Job() models.SyncJob { return models.SyncJobClass }

// LMS implements Synchronizer.
func (s *ClassSynchronizer) LMS() models.LMSName { return s.lms }

// SourceTable implements Synchronizer.
func (s *ClassSynchronizer) SourceTable() string { return s.table }

// Sync applies one vendor class record.
func (s *ClassSynchronizer) Sync(ctx context.Context, run *RunContext, record models.SourceRecord) Result {
	fields, err := s.decode(record.Payload)
	if err != nil {
		return Failure(ReasonDecode, err)
	}

	existing, err := s.classes.FindByNaturalKey(ctx, run.LMS.ID, fields.ExternalID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}

	if existing != nil && !existing.Status.Syncable() {
		return Skip("administrative_status")
	}
	if fields.Status == models.ClassStatusPending {
		return Skip("incoming_pending")
	}
	if existing != nil && existing.UpdatedAt.Add(-s.conflictGrace).After(record.PulledAt) {
		// A local edit is newer than this upstream snapshot.
		return Skip("local_newer")
	}

	class := &models.Class{
		LMSID:            run.LMS.ID,
		ExternalID:       fields.ExternalID,
		SchoolID:         run.School.ID,
		Name:             fields.Name,
		ZoneID:           fields.ZoneID,
		CourseExternalID: fields.CourseExternalID,
		StartDate:        dto.MillisToTime(fields.StartMS),
		EndDate:          dto.MillisToTime(fields.EndMS),
		Status:           fields.Status,
		Weight:           fields.Weight,
	}
	if existing != nil {
		class.ID = existing.ID
		class.UUID = existing.UUID
		class.CreatedAt = existing.CreatedAt
	}

	if fields.CourseExternalID != "" {
		course, err := s.courses.FindByNaturalKey(ctx, run.LMS.ID, run.School.ID, fields.CourseExternalID)
		if err != nil {
			return Failure(ReasonResolution, err)
		}
		if course != nil {
			class.CourseID = &course.ID
		}
		// A missing course stays NULL; a later class pass resolves it once
		// the course syncs.
	}

	if err := s.validate.Struct(class); err != nil {
		return Failure(ReasonValidation, fmt.Errorf("class %s: %w", fields.ExternalID, err))
	}
	if err := s.classes.Upsert(ctx, class); err != nil {
		return Failure(ReasonPersist, err)
	}

	doc := &models.ClassDocument{
		ID:               class.ID,
		UUID:             class.UUID,
		LMSID:            class.LMSID,
		ExternalID:       class.ExternalID,
		SchoolID:         class.SchoolID,
		Name:             class.Name,
		ZoneID:           class.ZoneID,
		CourseID:         class.CourseID,
		CourseExternalID: class.CourseExternalID,
		StartDate:        class.StartDate,
		EndDate:          class.EndDate,
		Status:           class.Status,
		UpdatedAt:        class.UpdatedAt,
	}
	if err := s.docs.PutClass(ctx, doc); err != nil {
		return Failure(ReasonPersist, err)
	}
	return Success()
}

// mapVendorClassStatus normalizes vendor status strings. Unrecognized values
// map to pending, which the skip rules treat as "not ready to sync".
func mapVendorClassStatus(raw string) models.ClassStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active":
		return models.ClassStatusActive
	case "inactive", "archived", "closed":
		return models.ClassStatusInactive
	case "ongoing", "on_going", "in_progress":
		return models.ClassStatusOnGoing
	default:
		return models.ClassStatusPending
	}
}
