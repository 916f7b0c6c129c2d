package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

type mockAssignmentStore struct {
	primary      map[string]string
	reconciled   map[string][]models.ClassAssignment
	reconcileErr error
}

func (m *mockAssignmentStore) PrimaryTeacherUserID(_ context.Context, classID string) (*string, error) {
	if id, ok := m.primary[classID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (m *mockAssignmentStore) SyncRoleMembership(ctx context.Context, classID string, role models.AssignmentRole, desired []models.ClassAssignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.reconcileErr != nil {
		return m.reconcileErr
	}
	if m.reconciled == nil {
		m.reconciled = make(map[string][]models.ClassAssignment)
	}
	m.reconciled[classID+"/"+string(role)] = desired
	return nil
}

type mockUserResolver struct {
	users map[string]*models.User
}

func (m *mockUserResolver) FindByVendorID(_ context.Context, _ models.LMSName, externalID string) (*models.User, error) {
	return m.users[externalID], nil
}

func agilixEnrollmentPayload(t *testing.T, userID, role string, status int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":       "enr-" + userID,
		"courseid": "ext-class-1",
		"userid":   userID,
		"role":     role,
		"status":   status,
	})
	require.NoError(t, err)
	return raw
}

func newAssignmentFixture(store *mockAssignmentStore) (*AssignmentSynchronizer, *RunContext) {
	classes := &mockClassResolver{classes: map[string]*models.Class{
		"ext-class-1": {ID: "class-1"},
	}}
	users := &mockUserResolver{users: map[string]*models.User{
		"t-1": {ID: "usr-t1"},
		"t-2": {ID: "usr-t2"},
		"s-1": {ID: "usr-s1"},
	}}
	s := NewAgilixAssignmentSynchronizer(store, classes, users, zap.NewNop())
	run := classRunContext()
	s.BeginRun(run)
	return s, run
}

func TestAssignmentFirstTeacherBecomesPrimary(t *testing.T) {
	store := &mockAssignmentStore{}
	s, run := newAssignmentFixture(store)

	r1 := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixEnrollmentPayload(t, "t-1", "teacher", 1)})
	r2 := s.Sync(context.Background(), run, models.SourceRecord{ID: 2, Payload: agilixEnrollmentPayload(t, "t-2", "teacher", 1)})
	require.Equal(t, OutcomeSuccess, r1.Outcome)
	require.Equal(t, OutcomeSuccess, r2.Outcome)

	_, err := s.EndRun(context.Background(), run)
	require.NoError(t, err)
	primaries := store.reconciled["class-1/primary_teacher"]
	require.Len(t, primaries, 1)
	require.Equal(t, "usr-t1", primaries[0].UserID)
	secondaries := store.reconciled["class-1/secondary_teacher"]
	require.Len(t, secondaries, 1)
	require.Equal(t, "usr-t2", secondaries[0].UserID)
}

func TestAssignmentPersistedPrimaryIsNotDemoted(t *testing.T) {
	store := &mockAssignmentStore{primary: map[string]string{"class-1": "usr-t2"}}
	s, run := newAssignmentFixture(store)

	// t-1 arrives first this run, but t-2 already holds the primary slot.
	r1 := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixEnrollmentPayload(t, "t-1", "teacher", 1)})
	r2 := s.Sync(context.Background(), run, models.SourceRecord{ID: 2, Payload: agilixEnrollmentPayload(t, "t-2", "teacher", 1)})
	require.Equal(t, OutcomeSuccess, r1.Outcome)
	require.Equal(t, OutcomeSuccess, r2.Outcome)

	_, err := s.EndRun(context.Background(), run)
	require.NoError(t, err)
	primaries := store.reconciled["class-1/primary_teacher"]
	require.Len(t, primaries, 1)
	require.Equal(t, "usr-t2", primaries[0].UserID)
	secondaries := store.reconciled["class-1/secondary_teacher"]
	require.Len(t, secondaries, 1)
	require.Equal(t, "usr-t1", secondaries[0].UserID)
}

func TestAssignmentStudentRoleAndStatusMapping(t *testing.T) {
	store := &mockAssignmentStore{}
	s, run := newAssignmentFixture(store)

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixEnrollmentPayload(t, "s-1", "Student", 4)})
	require.Equal(t, OutcomeSuccess, result.Outcome)

	_, err := s.EndRun(context.Background(), run)
	require.NoError(t, err)
	students := store.reconciled["class-1/student"]
	require.Len(t, students, 1)
	require.Equal(t, "usr-s1", students[0].UserID)
	require.Equal(t, models.AssignmentStatusWithdrawal, students[0].Status)
}

func TestAssignmentUnknownRoleFailsValidation(t *testing.T) {
	s, run := newAssignmentFixture(&mockAssignmentStore{})

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixEnrollmentPayload(t, "s-1", "observer", 1)})
	require.Equal(t, OutcomeFailure, result.Outcome)
	require.Equal(t, ReasonValidation, result.Reason)
}

func TestAssignmentUnknownStatusCodeFailsDecode(t *testing.T) {
	s, run := newAssignmentFixture(&mockAssignmentStore{})

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixEnrollmentPayload(t, "s-1", "student", 99)})
	require.Equal(t, OutcomeFailure, result.Outcome)
	require.Equal(t, ReasonDecode, result.Reason)
}

type cancellingClassResolver struct {
	inner  classResolver
	cancel context.CancelFunc
}

func (c *cancellingClassResolver) FindBySchoolAndExternal(ctx context.Context, schoolID, lmsID, externalID string) (*models.Class, error) {
	c.cancel()
	return c.inner.FindBySchoolAndExternal(ctx, schoolID, lmsID, externalID)
}

func TestAssignmentMembershipFailureKeepsRecordPending(t *testing.T) {
	store := &mockAssignmentStore{reconcileErr: errors.New("tx aborted")}
	classes := &mockClassResolver{classes: map[string]*models.Class{"ext-class-1": {ID: "class-1"}}}
	users := &mockUserResolver{users: map[string]*models.User{"s-1": {ID: "usr-s1"}}}
	s := NewAgilixAssignmentSynchronizer(store, classes, users, zap.NewNop())
	sources := &fakeWatermarkStore{pending: []models.SourceRecord{
		{ID: 1, Payload: agilixEnrollmentPayload(t, "s-1", "student", 1)},
	}}
	runner := newRunnerFixture(sources)

	runner.Run(context.Background(), s, "")

	// The bulk membership write never landed, so the record must not leave
	// the pending rotation as a success.
	require.Equal(t, []markedRecord{{id: 1, success: false}}, sources.marked)
}

func TestAssignmentCancelledRunDoesNotConfirmUnflushedRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &mockAssignmentStore{}
	inner := &mockClassResolver{classes: map[string]*models.Class{"ext-class-1": {ID: "class-1"}}}
	users := &mockUserResolver{users: map[string]*models.User{"s-1": {ID: "usr-s1"}}}
	s := NewAgilixAssignmentSynchronizer(store, &cancellingClassResolver{inner: inner, cancel: cancel}, users, zap.NewNop())
	sources := &fakeWatermarkStore{pending: []models.SourceRecord{
		{ID: 1, Payload: agilixEnrollmentPayload(t, "s-1", "student", 1)},
		{ID: 2, Payload: agilixEnrollmentPayload(t, "s-1", "student", 1)},
	}}
	runner := newRunnerFixture(sources)

	runner.Run(ctx, s, "")

	// Cancellation hit before the flush: record 1 was accumulated but never
	// persisted, record 2 was never reached. Neither records a success.
	require.Equal(t, []markedRecord{{id: 1, success: false}}, sources.marked)
}

func TestAssignmentUnresolvedClassFails(t *testing.T) {
	users := &mockUserResolver{users: map[string]*models.User{"s-1": {ID: "usr-s1"}}}
	s := NewAgilixAssignmentSynchronizer(&mockAssignmentStore{}, &mockClassResolver{}, users, zap.NewNop())
	run := classRunContext()
	s.BeginRun(run)

	result := s.Sync(context.Background(), run, models.SourceRecord{ID: 1, Payload: agilixEnrollmentPayload(t, "s-1", "student", 1)})
	require.Equal(t, OutcomeFailure, result.Outcome)
	require.Equal(t, ReasonResolution, result.Reason)
}
