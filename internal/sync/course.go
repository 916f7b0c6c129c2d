package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/dto"
	"github.com/noah-isme/sis-sync-api/internal/models"
)

type courseStore interface {
	FindByNaturalKey(ctx context.Context, lmsID, schoolID, externalID string) (*models.Course, error)
	Upsert(ctx context.Context, course *models.Course) error
}

type courseDocWriter interface {
	PutCourse(ctx context.Context, doc *models.CourseDocument) error
}

// CourseSynchronizer maps vendor course records into canonical courses,
// writing both stores under the same natural key.
type CourseSynchronizer struct {
	lms    models.LMSName
	table  string
	decode func(json.RawMessage) (externalID, name string, err error)

	courses  courseStore
	docs     courseDocWriter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAgilixCourseSynchronizer maps Agilix course resource nodes.
func NewAgilixCourseSynchronizer(courses courseStore, docs courseDocWriter, logger *zap.Logger) *CourseSynchronizer {
	return &CourseSynchronizer{
		lms:   models.LMSAgilix,
		table: "lms_agilix_courses",
		decode: func(raw json.RawMessage) (string, string, error) {
			c, err := dto.DecodeAgilixCourse(raw)
			if err != nil {
				return "", "", err
			}
			return c.ID, c.Title, nil
		},
		courses:  courses,
		docs:     docs,
		validate: validator.New(),
		logger:   logger,
	}
}

// NewEdmentumCourseSynchronizer maps Edmentum courses.
func NewEdmentumCourseSynchronizer(courses courseStore, docs courseDocWriter, logger *zap.Logger) *CourseSynchronizer {
	return &CourseSynchronizer{
		lms:   models.LMSEdmentum,
		table: "lms_edmentum_courses",
		decode: func(raw json.RawMessage) (string, string, error) {
			c, err := dto.DecodeEdmentumCourse(raw)
			if err != nil {
				return "", "", err
			}
			return c.CourseID, c.CourseName, nil
		},
		courses:  courses,
		docs:     docs,
		validate: validator.New(),
		logger:   logger,
	}
}

// Job implements Synchronizer.
func (s *CourseSynchronizer) Job() models.SyncJob { return models.SyncJobCourse }

// LMS implements Synchronizer.
func (s *CourseSynchronizer) LMS() models.LMSName { return s.lms }

// SourceTable implements Synchronizer.
func (s *CourseSynchronizer) SourceTable() string { return s.table }

// Sync upserts one canonical course.
func (s *CourseSynchronizer) Sync(ctx context.Context, run *RunContext, record models.SourceRecord) Result {
	externalID, name, err := s.decode(record.Payload)
	if err != nil {
		return Failure(ReasonDecode, err)
	}

	course := &models.Course{
		LMSID:      run.LMS.ID,
		SchoolID:   run.School.ID,
		ExternalID: externalID,
		Name:       name,
	}

	existing, err := s.courses.FindByNaturalKey(ctx, run.LMS.ID, run.School.ID, externalID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if existing != nil {
		course.ID = existing.ID
		course.UUID = existing.UUID
		course.CreatedAt = existing.CreatedAt
	}

	if err := s.validate.Struct(course); err != nil {
		return Failure(ReasonValidation, fmt.Errorf("course %s: %w", externalID, err))
	}
	if err := s.courses.Upsert(ctx, course); err != nil {
		return Failure(ReasonPersist, err)
	}

	doc := &models.CourseDocument{
		ID:         course.ID,
		UUID:       course.UUID,
		LMSID:      course.LMSID,
		SchoolID:   course.SchoolID,
		ExternalID: course.ExternalID,
		Name:       course.Name,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.docs.PutCourse(ctx, doc); err != nil {
		return Failure(ReasonPersist, err)
	}
	return Success()
}
