package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

type mockZoneWriter struct {
	updates int
	zones   models.ZoneMap
}

func (m *mockZoneWriter) UpdateZones(_ context.Context, _ string, zones models.ZoneMap) error {
	m.updates++
	m.zones = zones
	return nil
}

type mockSchoolDocStore struct {
	puts int
	last *models.SchoolDocument
}

func (m *mockSchoolDocStore) PutSchool(_ context.Context, doc *models.SchoolDocument) error {
	m.puts++
	m.last = doc
	return nil
}

func agilixDomainPayload(t *testing.T, id, name string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"id": id, "name": name})
	require.NoError(t, err)
	return raw
}

func TestZoneSyncMergesIntoSchool(t *testing.T) {
	schools := &mockZoneWriter{}
	docs := &mockSchoolDocStore{}
	s := NewAgilixZoneSynchronizer(schools, docs, zap.NewNop())
	run := classRunContext()

	result := s.Sync(context.Background(), run, models.SourceRecord{
		ID:      1,
		Payload: agilixDomainPayload(t, "zone-1", "North Campus"),
	})

	require.Equal(t, OutcomeSuccess, result.Outcome)
	require.Equal(t, 1, schools.updates)
	require.Equal(t, []models.Zone{{ID: "zone-1", Title: "North Campus"}}, run.School.Zones[run.LMS.UUID])
	require.Equal(t, run.School.Zones, docs.last.Zones)
}

func TestZoneSyncIdenticalRePullIsIdempotent(t *testing.T) {
	schools := &mockZoneWriter{}
	docs := &mockSchoolDocStore{}
	s := NewAgilixZoneSynchronizer(schools, docs, zap.NewNop())
	run := classRunContext()
	record := models.SourceRecord{ID: 1, Payload: agilixDomainPayload(t, "zone-1", "North Campus")}

	require.Equal(t, OutcomeSuccess, s.Sync(context.Background(), run, record).Outcome)
	require.Equal(t, OutcomeSuccess, s.Sync(context.Background(), run, record).Outcome)

	// The second pull changes nothing, so no second write happens.
	require.Equal(t, 1, schools.updates)
	require.Len(t, run.School.Zones[run.LMS.UUID], 1)
}

func TestZoneSyncRetitledZoneReplacesEntry(t *testing.T) {
	schools := &mockZoneWriter{}
	s := NewAgilixZoneSynchronizer(schools, &mockSchoolDocStore{}, zap.NewNop())
	run := classRunContext()

	s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixDomainPayload(t, "zone-1", "North Campus")})
	s.Sync(context.Background(), run, models.SourceRecord{ID: 2, Payload: agilixDomainPayload(t, "zone-1", "North Campus (renamed)")})

	require.Equal(t, []models.Zone{{ID: "zone-1", Title: "North Campus (renamed)"}}, run.School.Zones[run.LMS.UUID])
}

func TestZoneSyncReservedProgramIsSkipped(t *testing.T) {
	schools := &mockZoneWriter{}
	s := NewEdmentumZoneSynchronizer(schools, &mockSchoolDocStore{}, "reserved-0", zap.NewNop())
	run := classRunContext()
	run.LMS = &models.LMS{ID: "lms-2", UUID: "lms-uuid-2", Name: models.LMSEdmentum}

	payload, err := json.Marshal(map[string]string{"programId": "reserved-0", "programName": "System"})
	require.NoError(t, err)

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: payload})
	require.Equal(t, OutcomeSkip, result.Outcome)
	require.Equal(t, "reserved_program", result.Reason)
	require.Equal(t, 0, schools.updates)
}

func TestZoneSyncMissingIDFailsValidation(t *testing.T) {
	s := NewAgilixZoneSynchronizer(&mockZoneWriter{}, &mockSchoolDocStore{}, zap.NewNop())

	result := s.Sync(context.Background(), classRunContext(), models.SourceRecord{
		ID:      1,
		Payload: agilixDomainPayload(t, "", "Nameless"),
	})
	require.Equal(t, OutcomeFailure, result.Outcome)
	require.Equal(t, ReasonValidation, result.Reason)
}
