package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

type activityDocStore interface {
	ListActivitiesByClass(ctx context.Context, schoolUUID, classID string) ([]models.ClassActivity, error)
	PutAggregate(ctx context.Context, agg *models.ClassAggregate) error
}

// AggregateService recomputes class-level activity aggregates. Invoked after
// every successful score or activity upsert so the class document always
// reflects the latest per-student state.
type AggregateService struct {
	docs activityDocStore
}

// NewAggregateService builds an aggregate service.
func NewAggregateService(docs activityDocStore) *AggregateService {
	return &AggregateService{docs: docs}
}

// Recompute averages the class's per-student final scores and stores the
// aggregate document.
func (s *AggregateService) Recompute(ctx context.Context, schoolUUID, classID string) error {
	activities, err := s.docs.ListActivitiesByClass(ctx, schoolUUID, classID)
	if err != nil {
		return fmt.Errorf("list class %s activities: %w", classID, err)
	}

	agg := &models.ClassAggregate{
		ClassID:      classID,
		StudentCount: len(activities),
		UpdatedAt:    time.Now().UTC(),
	}
	if len(activities) > 0 {
		var total float64
		for i := range activities {
			total += activities[i].FinalScore
		}
		agg.AverageScore = total / float64(len(activities))
	}

	if err := s.docs.PutAggregate(ctx, agg); err != nil {
		return fmt.Errorf("store class %s aggregate: %w", classID, err)
	}
	return nil
}
