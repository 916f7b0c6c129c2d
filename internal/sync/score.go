package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/dto"
	"github.com/noah-isme/sis-sync-api/internal/models"
)

type scoreStore interface {
	FindByClassUser(ctx context.Context, classID, userID string) (*models.Score, error)
	Upsert(ctx context.Context, score *models.Score) error
}

// scoreFields is the vendor-neutral projection of a grade record.
type scoreFields struct {
	ClassExternalID string
	UserExternalID  string
	Achieved        float64
	Possible        float64
}

// ScoreSynchronizer maps vendor grade records into canonical scores. The raw
// achieved/possible pair becomes a percentage, the grading service resolves
// it against the school's scale, and the class aggregate is recomputed after
// every successful write.
type ScoreSynchronizer struct {
	lms    models.LMSName
	table  string
	decode func(json.RawMessage) (scoreFields, error)

	scores     scoreStore
	users      userResolver
	grading    *GradingService
	aggregates *AggregateService
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewAgilixScoreSynchronizer reads the grade pair embedded on Agilix
// enrollments.
func NewAgilixScoreSynchronizer(scores scoreStore, users userResolver, grading *GradingService, aggregates *AggregateService, logger *zap.Logger) *ScoreSynchronizer {
	return &ScoreSynchronizer{
		lms:   models.LMSAgilix,
		table: "lms_agilix_enrollments",
		decode: func(raw json.RawMessage) (scoreFields, error) {
			e, err := dto.DecodeAgilixEnrollment(raw)
			if err != nil {
				return scoreFields{}, err
			}
			return scoreFields{
				ClassExternalID: e.CourseID,
				UserExternalID:  e.UserID,
				Achieved:        e.Grades.Achieved.Float64(),
				Possible:        e.Grades.Possible.Float64(),
			}, nil
		},
		scores:     scores,
		users:      users,
		grading:    grading,
		aggregates: aggregates,
		validate:   validator.New(),
		logger:     logger,
	}
}

// NewEdmentumScoreSynchronizer reads Edmentum's dedicated grade records.
func NewEdmentumScoreSynchronizer(scores scoreStore, users userResolver, grading *GradingService, aggregates *AggregateService, logger *zap.Logger) *ScoreSynchronizer {
	return &ScoreSynchronizer{
		lms:   models.LMSEdmentum,
		table: "lms_edmentum_grades",
		decode: func(raw json.RawMessage) (scoreFields, error) {
			g, err := dto.DecodeEdmentumGrade(raw)
			if err != nil {
				return scoreFields{}, err
			}
			return scoreFields{
				ClassExternalID: g.ClassID,
				UserExternalID:  g.StudentID,
				Achieved:        g.ActualPoints.Float64(),
				Possible:        g.PossiblePoints.Float64(),
			}, nil
		},
		scores:     scores,
		users:      users,
		grading:    grading,
		aggregates: aggregates,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Job implements Synchronizer.
func (s *ScoreSynchronizer) Job() models.SyncJob { return models.SyncJobScore }

// LMS implements Synchronizer.
func (s *ScoreSynchronizer) LMS() models.LMSName { return s.lms }

// SourceTable implements Synchronizer.
func (s *ScoreSynchronizer) SourceTable() string { return s.table }

// Sync upserts one student's class score.
func (s *ScoreSynchronizer) Sync(ctx context.Context, run *RunContext, record models.SourceRecord) Result {
	fields, err := s.decode(record.Payload)
	if err != nil {
		return Failure(ReasonDecode, err)
	}

	user, err := s.users.FindByVendorID(ctx, s.lms, fields.UserExternalID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if user == nil {
		return Failure(ReasonResolution, fmt.Errorf("user %s has no canonical record", fields.UserExternalID))
	}

	pct := Percentage(fields.Achieved, fields.Possible)
	grade, err := s.grading.Resolve(ctx, run.School.ID, run.LMS.ID, fields.ClassExternalID, pct)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if grade.ClassID == "" {
		return Failure(ReasonResolution, fmt.Errorf("class %s not yet synced", fields.ClassExternalID))
	}

	score := &models.Score{
		ClassID:       grade.ClassID,
		UserID:        user.ID,
		Score:         pct,
		CurrentScore:  pct,
		GradeLetter:   grade.GradeLetter,
		GradeLetterID: grade.GradeLetterID,
		IsPass:        grade.IsPass,
		Weight:        grade.Weight,
	}

	existing, err := s.scores.FindByClassUser(ctx, grade.ClassID, user.ID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if existing != nil {
		score.ID = existing.ID
		score.UUID = existing.UUID
		score.CreatedAt = existing.CreatedAt
	}

	if err := s.validate.Struct(score); err != nil {
		return Failure(ReasonValidation, fmt.Errorf("score %s/%s: %w", grade.ClassID, user.ID, err))
	}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return Failure(ReasonPersist, err)
	}

	if err := s.aggregates.Recompute(ctx, run.School.UUID, grade.ClassID); err != nil {
		// The score write succeeded; a stale aggregate heals on the next run.
		s.logger.Sugar().Warnw("aggregate recompute failed",
			"class_id", grade.ClassID, "error", err)
	}
	return Success()
}
