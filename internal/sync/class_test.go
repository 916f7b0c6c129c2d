package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

type mockClassStore struct {
	existing *models.Class
	upserted []*models.Class
}

func (m *mockClassStore) FindByNaturalKey(_ context.Context, _, _ string) (*models.Class, error) {
	return m.existing, nil
}

func (m *mockClassStore) Upsert(_ context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = "class-new"
	}
	if class.UUID == "" {
		class.UUID = "uuid-new"
	}
	copied := *class
	m.upserted = append(m.upserted, &copied)
	return nil
}

type mockCourseResolver struct {
	courses map[string]*models.Course
}

func (m *mockCourseResolver) FindByNaturalKey(_ context.Context, _, _, externalID string) (*models.Course, error) {
	if m.courses == nil {
		return nil, nil
	}
	return m.courses[externalID], nil
}

type mockClassDocs struct {
	docs []*models.ClassDocument
}

func (m *mockClassDocs) PutClass(_ context.Context, doc *models.ClassDocument) error {
	m.docs = append(m.docs, doc)
	return nil
}

func classRunContext() *RunContext {
	return &RunContext{
		School:    &models.School{ID: "school-1", UUID: "school-uuid-1"},
		SchoolDoc: &models.SchoolDocument{UUID: "school-uuid-1"},
		LMS:       &models.LMS{ID: "lms-1", UUID: "lms-uuid-1", Name: models.LMSAgilix},
	}
}

func agilixClassPayload(t *testing.T, status string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":        "ext-class-1",
		"title":     "Algebra I",
		"domainid":  "zone-1",
		"courseid":  "ext-course-1",
		"startdate": 1767225600000,
		"enddate":   1782950400000,
		"status":    status,
		"weight":    "1.5",
	})
	require.NoError(t, err)
	return raw
}

func TestClassSyncUpsertsAndMirrors(t *testing.T) {
	store := &mockClassStore{}
	courses := &mockCourseResolver{courses: map[string]*models.Course{
		"ext-course-1": {ID: "course-1"},
	}}
	docs := &mockClassDocs{}
	s := NewAgilixClassSynchronizer(store, courses, docs, 0, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:       1,
		Payload:  agilixClassPayload(t, "active"),
		PulledAt: time.Now().UTC(),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Len(t, store.upserted, 1)
	saved := store.upserted[0]
	require.Equal(t, "Algebra I", saved.Name)
	require.Equal(t, models.ClassStatusActive, saved.Status)
	require.Equal(t, 1.5, saved.Weight)
	require.NotNil(t, saved.CourseID)
	require.Equal(t, "course-1", *saved.CourseID)
	require.Len(t, docs.docs, 1)
	require.Equal(t, saved.ID, docs.docs[0].ID)
}

func TestClassSyncPreservesIdentityOnUpdate(t *testing.T) {
	created := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	store := &mockClassStore{existing: &models.Class{
		ID:        "class-1",
		UUID:      "uuid-1",
		Status:    models.ClassStatusActive,
		CreatedAt: created,
		UpdatedAt: created,
	}}
	docs := &mockClassDocs{}
	s := NewAgilixClassSynchronizer(store, &mockCourseResolver{}, docs, 0, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:       1,
		Payload:  agilixClassPayload(t, "active"),
		PulledAt: time.Now().UTC(),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Equal(t, "class-1", store.upserted[0].ID)
	require.Equal(t, "uuid-1", store.upserted[0].UUID)
	require.Equal(t, created, store.upserted[0].CreatedAt)
}

func TestClassSyncSkipsAdministrativeStatus(t *testing.T) {
	store := &mockClassStore{existing: &models.Class{
		ID:     "class-1",
		Status: models.ClassStatusPending,
	}}
	s := NewAgilixClassSynchronizer(store, &mockCourseResolver{}, &mockClassDocs{}, 0, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:       1,
		Payload:  agilixClassPayload(t, "active"),
		PulledAt: time.Now().UTC(),
	})

	require.Equal(t, OutcomeSkip, result.Outcome)
	require.Equal(t, "administrative_status", result.Reason)
	require.Empty(t, store.upserted)
}

func TestClassSyncSkipsIncomingPending(t *testing.T) {
	store := &mockClassStore{}
	s := NewAgilixClassSynchronizer(store, &mockCourseResolver{}, &mockClassDocs{}, 0, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:       1,
		Payload:  agilixClassPayload(t, "draft"),
		PulledAt: time.Now().UTC(),
	})

	require.Equal(t, OutcomeSkip, result.Outcome)
	require.Equal(t, "incoming_pending", result.Reason)
	require.Empty(t, store.upserted)
}

func TestClassSyncSkipsWhenLocalEditIsNewer(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &mockClassStore{existing: &models.Class{
		ID:        "class-1",
		Status:    models.ClassStatusActive,
		UpdatedAt: base.Add(10 * time.Minute),
	}}
	s := NewAgilixClassSynchronizer(store, &mockCourseResolver{}, &mockClassDocs{}, 0, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:       1,
		Payload:  agilixClassPayload(t, "active"),
		PulledAt: base.Add(5 * time.Minute),
	})

	require.Equal(t, OutcomeSkip, result.Outcome)
	require.Equal(t, "local_newer", result.Reason)
	require.Empty(t, store.upserted)
}

func TestClassSyncConflictGraceToleratesSkew(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &mockClassStore{existing: &models.Class{
		ID:        "class-1",
		UUID:      "uuid-1",
		Status:    models.ClassStatusActive,
		UpdatedAt: base.Add(10 * time.Minute),
	}}
	s := NewAgilixClassSynchronizer(store, &mockCourseResolver{}, &mockClassDocs{}, 15*time.Minute, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:       1,
		Payload:  agilixClassPayload(t, "active"),
		PulledAt: base.Add(5 * time.Minute),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Len(t, store.upserted, 1)
}

func TestClassSyncLeavesCourseUnresolved(t *testing.T) {
	store := &mockClassStore{}
	s := NewAgilixClassSynchronizer(store, &mockCourseResolver{}, &mockClassDocs{}, 0, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:       1,
		Payload:  agilixClassPayload(t, "active"),
		PulledAt: time.Now().UTC(),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Nil(t, store.upserted[0].CourseID)
	require.Equal(t, "ext-course-1", store.upserted[0].CourseExternalID)
}

func TestMapVendorClassStatusUnknownIsPending(t *testing.T) {
	require.Equal(t, models.ClassStatusPending, mapVendorClassStatus("whatever"))
	require.Equal(t, models.ClassStatusActive, mapVendorClassStatus(" Active "))
	require.Equal(t, models.ClassStatusOnGoing, mapVendorClassStatus("in_progress"))
}
