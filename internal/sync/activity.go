package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/dto"
	"github.com/noah-isme/sis-sync-api/internal/models"
	"github.com/noah-isme/sis-sync-api/internal/repository"
	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
)

type activityDocReadWriter interface {
	GetActivity(ctx context.Context, schoolUUID, classID, studentUUID string) (*models.ClassActivity, error)
	PutActivity(ctx context.Context, doc *models.ClassActivity) error
}

type catalogReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.ActivityCatalogEntry, error)
}

type studentLister interface {
	ListStudents(ctx context.Context, classID string) ([]repository.ClassStudent, error)
}

type scoreReader interface {
	FindByClassUser(ctx context.Context, classID, userID string) (*models.Score, error)
}

// ActivitySynchronizer builds per-student activity documents. Agilix delivers
// one record per student and class; Edmentum delivers one record per class
// that is expanded across the enrolled students, zero-filling catalog
// activities the vendor has no score for yet.
type ActivitySynchronizer struct {
	lms   models.LMSName
	table string
	apply func(ctx context.Context, run *RunContext, raw json.RawMessage) Result

	docs        activityDocReadWriter
	catalog     catalogReader
	assignments studentLister
	scores      scoreReader
	classes     classResolver
	users       userResolver
	aggregates  *AggregateService
	logger      *zap.Logger
}

// NewAgilixActivitySynchronizer maps Agilix per-student activity records.
func NewAgilixActivitySynchronizer(docs activityDocReadWriter, scores scoreReader, classes classResolver, users userResolver, aggregates *AggregateService, logger *zap.Logger) *ActivitySynchronizer {
	s := &ActivitySynchronizer{
		lms:        models.LMSAgilix,
		table:      "lms_agilix_activities",
		docs:       docs,
		scores:     scores,
		classes:    classes,
		users:      users,
		aggregates: aggregates,
		logger:     logger,
	}
	s.apply = s.applyAgilix
	return s
}

// NewEdmentumActivitySynchronizer maps Edmentum per-class activity records.
func NewEdmentumActivitySynchronizer(docs activityDocReadWriter, catalog catalogReader, assignments studentLister, scores scoreReader, classes classResolver, users userResolver, aggregates *AggregateService, logger *zap.Logger) *ActivitySynchronizer {
	s := &ActivitySynchronizer{
		lms:         models.LMSEdmentum,
		table:       "lms_edmentum_activities",
		docs:        docs,
		catalog:     catalog,
		assignments: assignments,
		scores:      scores,
		classes:     classes,
		users:       users,
		aggregates:  aggregates,
		logger:      logger,
	}
	s.apply = s.applyEdmentum
	return s
}

// Job implements Synchronizer.
func (s *ActivitySynchronizer) Job() models.SyncJob { return models.SyncJobActivity }

// LMS implements Synchronizer.
func (s *ActivitySynchronizer) LMS() models.LMSName { return s.lms }

// SourceTable implements Synchronizer.
func (s *ActivitySynchronizer) SourceTable() string { return s.table }

// Sync applies one vendor activity record.
func (s *ActivitySynchronizer) Sync(ctx context.Context, run *RunContext, record models.SourceRecord) Result {
	return s.apply(ctx, run, record.Payload)
}

func (s *ActivitySynchronizer) applyAgilix(ctx context.Context, run *RunContext, raw json.RawMessage) Result {
	activity, err := dto.DecodeAgilixActivity(raw)
	if err != nil {
		return Failure(ReasonDecode, err)
	}

	class, err := s.classes.FindBySchoolAndExternal(ctx, run.School.ID, run.LMS.ID, activity.CourseID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if class == nil {
		return Failure(ReasonResolution, fmt.Errorf("class %s not yet synced", activity.CourseID))
	}

	user, err := s.users.FindByVendorID(ctx, s.lms, activity.UserID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if user == nil {
		return Failure(ReasonResolution, fmt.Errorf("user %s has no canonical record", activity.UserID))
	}

	items := make([]models.ActivityItem, 0, len(activity.Items))
	for _, item := range activity.Items {
		if !item.SISRelevant() {
			continue
		}
		items = append(items, models.ActivityItem{
			ExternalID: item.ItemID,
			Name:       item.DisplayName(),
			Category:   item.Category,
			Score:      item.Score.Float64(),
			MaxPoint:   item.MaxPoint.Float64(),
			Percentage: Percentage(item.Score.Float64(), item.MaxPoint.Float64()),
		})
	}

	fallback := Percentage(activity.Grades.Achieved.Float64(), activity.Grades.Possible.Float64())
	if result := s.writeStudentDoc(ctx, run, class.ID, user.UUID, user.ID, items, fallback); !result.Succeeded() {
		return result
	}
	s.recompute(ctx, run, class.ID)
	return Success()
}

func (s *ActivitySynchronizer) applyEdmentum(ctx context.Context, run *RunContext, raw json.RawMessage) Result {
	activity, err := dto.DecodeEdmentumActivity(raw)
	if err != nil {
		return Failure(ReasonDecode, err)
	}

	class, err := s.classes.FindBySchoolAndExternal(ctx, run.School.ID, run.LMS.ID, activity.ClassID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if class == nil {
		return Failure(ReasonResolution, fmt.Errorf("class %s not yet synced", activity.ClassID))
	}

	catalog, err := s.catalog.ListByClass(ctx, class.ID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	students, err := s.assignments.ListStudents(ctx, class.ID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}

	// Index vendor scores by canonical user and activity. Scores for students
	// with no canonical record are dropped with a warning; they resolve once
	// the assignment sync catches up.
	byUser := make(map[string]map[string]float64)
	for _, vs := range activity.Scores {
		user, err := s.users.FindByVendorID(ctx, s.lms, vs.StudentID)
		if err != nil {
			return Failure(ReasonResolution, err)
		}
		if user == nil {
			s.logger.Sugar().Warnw("dropping activity score for unresolved student",
				"class_id", class.ID, "student_external_id", vs.StudentID)
			continue
		}
		if byUser[user.ID] == nil {
			byUser[user.ID] = make(map[string]float64)
		}
		byUser[user.ID][vs.ActivityID] = vs.Score.Float64()
	}

	for _, student := range students {
		items := make([]models.ActivityItem, 0, len(catalog))
		for _, entry := range catalog {
			score := byUser[student.UserID][entry.ID]
			items = append(items, models.ActivityItem{
				ExternalID: entry.ID,
				Name:       entry.Name,
				Category:   entry.Category,
				Score:      score,
				MaxPoint:   entry.MaxPoint,
				Percentage: Percentage(score, entry.MaxPoint),
			})
		}
		if result := s.writeStudentDoc(ctx, run, class.ID, student.UserUUID, student.UserID, items, 0); !result.Succeeded() {
			return result
		}
	}

	s.recompute(ctx, run, class.ID)
	return Success()
}

// writeStudentDoc upserts one student's activity document, denormalizing the
// stored score where one exists and falling back to the vendor-supplied
// percentage otherwise. A fresh document gets a new UUID; an existing one
// keeps it.
func (s *ActivitySynchronizer) writeStudentDoc(ctx context.Context, run *RunContext, classID, studentUUID, userID string, items []models.ActivityItem, fallbackScore float64) Result {
	doc, err := s.docs.GetActivity(ctx, run.School.UUID, classID, studentUUID)
	if err != nil {
		if !errors.Is(err, appErrors.ErrNotFound) {
			return Failure(ReasonResolution, err)
		}
		doc = &models.ClassActivity{
			UUID:        uuid.NewString(),
			SchoolUUID:  run.School.UUID,
			ClassID:     classID,
			StudentUUID: studentUUID,
		}
	}

	doc.Items = items
	doc.FinalScore = fallbackScore
	doc.CurrentScore = fallbackScore
	doc.GradeLetter = ""

	stored, err := s.scores.FindByClassUser(ctx, classID, userID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if stored != nil {
		doc.FinalScore = stored.Score
		doc.CurrentScore = stored.CurrentScore
		doc.GradeLetter = stored.GradeLetter
	}
	doc.UpdatedAt = time.Now().UTC()

	if err := s.docs.PutActivity(ctx, doc); err != nil {
		return Failure(ReasonPersist, err)
	}
	return Success()
}

func (s *ActivitySynchronizer) recompute(ctx context.Context, run *RunContext, classID string) {
	if err := s.aggregates.Recompute(ctx, run.School.UUID, classID); err != nil {
		s.logger.Sugar().Warnw("aggregate recompute failed",
			"class_id", classID, "error", err)
	}
}
