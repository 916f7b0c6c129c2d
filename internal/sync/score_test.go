package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

type mockScoreStore struct {
	existing map[string]*models.Score
	upserted []*models.Score
}

func (m *mockScoreStore) FindByClassUser(_ context.Context, classID, userID string) (*models.Score, error) {
	if m.existing == nil {
		return nil, nil
	}
	return m.existing[classID+"/"+userID], nil
}

func (m *mockScoreStore) Upsert(_ context.Context, score *models.Score) error {
	copied := *score
	m.upserted = append(m.upserted, &copied)
	return nil
}

type fakeDocStore struct {
	activities map[string][]models.ClassActivity
	aggregates map[string]*models.ClassAggregate
}

func (f *fakeDocStore) ListActivitiesByClass(_ context.Context, _, classID string) ([]models.ClassActivity, error) {
	return f.activities[classID], nil
}

func (f *fakeDocStore) PutAggregate(_ context.Context, agg *models.ClassAggregate) error {
	if f.aggregates == nil {
		f.aggregates = make(map[string]*models.ClassAggregate)
	}
	f.aggregates[agg.ClassID] = agg
	return nil
}

func agilixGradedEnrollmentPayload(t *testing.T, achieved, possible string) json.RawMessage {
	t.Helper()
	raw := []byte(`{
		"id": "enr-1",
		"courseid": "ext-class-1",
		"userid": "s-1",
		"role": "student",
		"status": 1,
		"grades": {"achieved": "` + achieved + `", "possible": "` + possible + `"}
	}`)
	var check map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &check))
	return raw
}

func newScoreFixture(store *mockScoreStore, docs *fakeDocStore) (*ScoreSynchronizer, *RunContext) {
	classes := &mockClassResolver{classes: map[string]*models.Class{
		"ext-class-1": {ID: "class-1", Weight: 1},
	}}
	scales := &mockScaleReader{
		scale:   &models.GradeScale{ID: "scale-1", PassingGrade: 70},
		letters: defaultLetters(),
	}
	users := &mockUserResolver{users: map[string]*models.User{
		"s-1": {ID: "usr-s1", UUID: "uuid-s1"},
	}}
	grading := NewGradingService(classes, scales)
	aggregates := NewAggregateService(docs)
	s := NewAgilixScoreSynchronizer(store, users, grading, aggregates, zap.NewNop())
	return s, classRunContext()
}

func TestScoreSyncResolvesQuotedGradePair(t *testing.T) {
	store := &mockScoreStore{}
	docs := &fakeDocStore{}
	s, run := newScoreFixture(store, docs)

	result := s.Sync(context.Background(), run, models.SourceRecord{
		ID:      1,
		Payload: agilixGradedEnrollmentPayload(t, "42.5", "50"),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Len(t, store.upserted, 1)
	saved := store.upserted[0]
	require.Equal(t, "class-1", saved.ClassID)
	require.Equal(t, "usr-s1", saved.UserID)
	require.Equal(t, 85.0, saved.Score)
	require.Equal(t, "B", saved.GradeLetter)
	require.True(t, saved.IsPass)
	require.Contains(t, docs.aggregates, "class-1")
}

func TestScoreSyncZeroPossibleYieldsZero(t *testing.T) {
	store := &mockScoreStore{}
	s, run := newScoreFixture(store, &fakeDocStore{})

	result := s.Sync(context.Background(), run, models.SourceRecord{
		ID:      1,
		Payload: agilixGradedEnrollmentPayload(t, "10", "0"),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Equal(t, 0.0, store.upserted[0].Score)
	require.False(t, store.upserted[0].IsPass)
}

func TestScoreSyncPreservesExistingIdentity(t *testing.T) {
	store := &mockScoreStore{existing: map[string]*models.Score{
		"class-1/usr-s1": {ID: "score-1", UUID: "score-uuid-1"},
	}}
	s, run := newScoreFixture(store, &fakeDocStore{})

	result := s.Sync(context.Background(), run, models.SourceRecord{
		ID:      1,
		Payload: agilixGradedEnrollmentPayload(t, "42.5", "50"),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Equal(t, "score-1", store.upserted[0].ID)
	require.Equal(t, "score-uuid-1", store.upserted[0].UUID)
}

func TestScoreSyncUnresolvedClassFails(t *testing.T) {
	users := &mockUserResolver{users: map[string]*models.User{"s-1": {ID: "usr-s1"}}}
	grading := NewGradingService(&mockClassResolver{}, &mockScaleReader{})
	aggregates := NewAggregateService(&fakeDocStore{})
	s := NewAgilixScoreSynchronizer(&mockScoreStore{}, users, grading, aggregates, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:      1,
		Payload: agilixGradedEnrollmentPayload(t, "42.5", "50"),
	})

	require.Equal(t, OutcomeFailure, result.Outcome)
	require.Equal(t, ReasonResolution, result.Reason)
}

func TestScoreSyncUnresolvedUserFails(t *testing.T) {
	s, run := newScoreFixture(&mockScoreStore{}, &fakeDocStore{})
	payload := []byte(`{"courseid":"ext-class-1","userid":"ghost","role":"student","status":1,"grades":{"achieved":"1","possible":"2"}}`)

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: payload})
	require.Equal(t, OutcomeFailure, result.Outcome)
	require.Equal(t, ReasonResolution, result.Reason)
}

func TestAggregateRecomputeAverages(t *testing.T) {
	docs := &fakeDocStore{activities: map[string][]models.ClassActivity{
		"class-1": {
			{StudentUUID: "a", FinalScore: 80},
			{StudentUUID: "b", FinalScore: 90},
		},
	}}
	svc := NewAggregateService(docs)

	require.NoError(t, svc.Recompute(context.Background(), "school-uuid-1", "class-1"))
	agg := docs.aggregates["class-1"]
	require.NotNil(t, agg)
	require.Equal(t, 2, agg.StudentCount)
	require.Equal(t, 85.0, agg.AverageScore)
}
