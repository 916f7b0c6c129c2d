package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
	"github.com/noah-isme/sis-sync-api/internal/repository"
	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
)

type fakeActivityDocs struct {
	docs       map[string]*models.ClassActivity
	aggregates map[string]*models.ClassAggregate
}

func activityDocKey(schoolUUID, classID, studentUUID string) string {
	return schoolUUID + "/" + classID + "/" + studentUUID
}

func (f *fakeActivityDocs) GetActivity(_ context.Context, schoolUUID, classID, studentUUID string) (*models.ClassActivity, error) {
	doc, ok := f.docs[activityDocKey(schoolUUID, classID, studentUUID)]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeActivityDocs) PutActivity(_ context.Context, doc *models.ClassActivity) error {
	if f.docs == nil {
		f.docs = make(map[string]*models.ClassActivity)
	}
	copied := *doc
	f.docs[activityDocKey(doc.SchoolUUID, doc.ClassID, doc.StudentUUID)] = &copied
	return nil
}

func (f *fakeActivityDocs) ListActivitiesByClass(_ context.Context, schoolUUID, classID string) ([]models.ClassActivity, error) {
	var out []models.ClassActivity
	for _, doc := range f.docs {
		if doc.SchoolUUID == schoolUUID && doc.ClassID == classID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *fakeActivityDocs) PutAggregate(_ context.Context, agg *models.ClassAggregate) error {
	if f.aggregates == nil {
		f.aggregates = make(map[string]*models.ClassAggregate)
	}
	f.aggregates[agg.ClassID] = agg
	return nil
}

type mockCatalogReader struct {
	entries []models.ActivityCatalogEntry
}

func (m *mockCatalogReader) ListByClass(_ context.Context, _ string) ([]models.ActivityCatalogEntry, error) {
	return m.entries, nil
}

type mockStudentLister struct {
	students []repository.ClassStudent
}

func (m *mockStudentLister) ListStudents(_ context.Context, _ string) ([]repository.ClassStudent, error) {
	return m.students, nil
}

func agilixActivityPayload(t *testing.T) json.RawMessage {
	t.Helper()
	raw := []byte(`{
		"courseid": "ext-class-1",
		"userid": "s-1",
		"grades": {"achieved": "42.5", "possible": "50"},
		"items": [
			{"itemid": "it-1", "title": "*Quiz 1", "category": "quiz", "score": "8", "maxpoints": "10"},
			{"itemid": "it-2", "title": "Scratch work", "category": "practice", "score": "1", "maxpoints": "1"}
		]
	}`)
	var check map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &check))
	return raw
}

func newAgilixActivityFixture(docs *fakeActivityDocs, scores *mockScoreStore) (*ActivitySynchronizer, *RunContext) {
	classes := &mockClassResolver{classes: map[string]*models.Class{
		"ext-class-1": {ID: "class-1"},
	}}
	users := &mockUserResolver{users: map[string]*models.User{
		"s-1": {ID: "usr-s1", UUID: "uuid-s1"},
		"s-2": {ID: "usr-s2", UUID: "uuid-s2"},
	}}
	aggregates := NewAggregateService(docs)
	s := NewAgilixActivitySynchronizer(docs, scores, classes, users, aggregates, zap.NewNop())
	return s, classRunContext()
}

func TestActivitySyncAgilixFiltersFlaggedItems(t *testing.T) {
	docs := &fakeActivityDocs{}
	s, run := newAgilixActivityFixture(docs, &mockScoreStore{})

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixActivityPayload(t)})
	require.Equal(t, OutcomeSuccess, result.Outcome)

	doc := docs.docs[activityDocKey("school-uuid-1", "class-1", "uuid-s1")]
	require.NotNil(t, doc)
	require.NotEmpty(t, doc.UUID)
	require.Len(t, doc.Items, 1)
	require.Equal(t, "Quiz 1", doc.Items[0].Name)
	require.Equal(t, "it-1", doc.Items[0].ExternalID)
	require.Equal(t, 80.0, doc.Items[0].Percentage)
	// No stored score yet: the vendor grade pair backs the final score.
	require.Equal(t, 85.0, doc.FinalScore)
	require.Contains(t, docs.aggregates, "class-1")
}

func TestActivitySyncAgilixKeepsDocumentUUID(t *testing.T) {
	docs := &fakeActivityDocs{}
	s, run := newAgilixActivityFixture(docs, &mockScoreStore{})
	record := models.SourceRecord{ID: 1, Payload: agilixActivityPayload(t)}

	require.Equal(t, OutcomeSuccess, s.Sync(context.Background(), run, record).Outcome)
	first := docs.docs[activityDocKey("school-uuid-1", "class-1", "uuid-s1")].UUID
	require.Equal(t, OutcomeSuccess, s.Sync(context.Background(), run, record).Outcome)
	second := docs.docs[activityDocKey("school-uuid-1", "class-1", "uuid-s1")].UUID

	require.Equal(t, first, second)
}

func TestActivitySyncAgilixDenormalizesStoredScore(t *testing.T) {
	docs := &fakeActivityDocs{}
	scores := &mockScoreStore{existing: map[string]*models.Score{
		"class-1/usr-s1": {Score: 91, CurrentScore: 88, GradeLetter: "A"},
	}}
	s, run := newAgilixActivityFixture(docs, scores)

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixActivityPayload(t)})
	require.Equal(t, OutcomeSuccess, result.Outcome)

	doc := docs.docs[activityDocKey("school-uuid-1", "class-1", "uuid-s1")]
	require.Equal(t, 91.0, doc.FinalScore)
	require.Equal(t, 88.0, doc.CurrentScore)
	require.Equal(t, "A", doc.GradeLetter)
}

func TestActivitySyncEdmentumZeroFillsCatalog(t *testing.T) {
	docs := &fakeActivityDocs{}
	classes := &mockClassResolver{classes: map[string]*models.Class{
		"ext-class-1": {ID: "class-1"},
	}}
	users := &mockUserResolver{users: map[string]*models.User{
		"s-1": {ID: "usr-s1", UUID: "uuid-s1"},
		"s-2": {ID: "usr-s2", UUID: "uuid-s2"},
	}}
	catalog := &mockCatalogReader{entries: []models.ActivityCatalogEntry{
		{ID: "act-1", Name: "Unit Test", Category: "exam", MaxPoint: 100},
		{ID: "act-2", Name: "Essay", Category: "homework", MaxPoint: 20},
	}}
	students := &mockStudentLister{students: []repository.ClassStudent{
		{UserID: "usr-s1", UserUUID: "uuid-s1"},
		{UserID: "usr-s2", UserUUID: "uuid-s2"},
	}}
	aggregates := NewAggregateService(docs)
	s := NewEdmentumActivitySynchronizer(docs, catalog, students, &mockScoreStore{}, classes, users, aggregates, zap.NewNop())

	payload := []byte(`{
		"classId": "ext-class-1",
		"scores": [{"activityId": "act-1", "studentId": "s-1", "score": "75"}]
	}`)
	run := classRunContext()
	run.LMS = &models.LMS{ID: "lms-2", UUID: "lms-uuid-2", Name: models.LMSEdmentum}

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: payload})
	require.Equal(t, OutcomeSuccess, result.Outcome)

	scored := docs.docs[activityDocKey("school-uuid-1", "class-1", "uuid-s1")]
	require.NotNil(t, scored)
	require.Len(t, scored.Items, 2)
	require.Equal(t, 75.0, scored.Items[0].Score)
	require.Equal(t, 75.0, scored.Items[0].Percentage)
	require.Equal(t, 0.0, scored.Items[1].Score)

	unscored := docs.docs[activityDocKey("school-uuid-1", "class-1", "uuid-s2")]
	require.NotNil(t, unscored)
	require.Len(t, unscored.Items, 2)
	for _, item := range unscored.Items {
		require.Equal(t, 0.0, item.Score)
		require.Equal(t, 0.0, item.Percentage)
	}
}

func TestActivitySyncUnresolvedClassFails(t *testing.T) {
	docs := &fakeActivityDocs{}
	users := &mockUserResolver{users: map[string]*models.User{"s-1": {ID: "usr-s1", UUID: "uuid-s1"}}}
	aggregates := NewAggregateService(docs)
	s := NewAgilixActivitySynchronizer(docs, &mockScoreStore{}, &mockClassResolver{}, users, aggregates, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{ID: 1, Payload: agilixActivityPayload(t)})
	require.Equal(t, OutcomeFailure, result.Outcome)
	require.Equal(t, ReasonResolution, result.Reason)
}
