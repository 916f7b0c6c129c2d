package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sis-sync-api/internal/dto"
	"github.com/noah-isme/sis-sync-api/internal/models"
)

type assignmentStore interface {
	PrimaryTeacherUserID(ctx context.Context, classID string) (*string, error)
	SyncRoleMembership(ctx context.Context, classID string, role models.AssignmentRole, desired []models.ClassAssignment) error
}

type userResolver interface {
	FindByVendorID(ctx context.Context, lms models.LMSName, externalID string) (*models.User, error)
}

// assignmentFields is the vendor-neutral projection of an enrollment record.
type assignmentFields struct {
	ClassExternalID string
	UserExternalID  string
	Role            string
	Status          models.AssignmentStatus
}

type roleKey struct {
	classID string
	role    models.AssignmentRole
}

// AssignmentSynchronizer maps vendor enrollments into class assignments.
// The first teacher seen for a class becomes primary and later ones
// secondary; the persisted assignment table is consulted before the per-run
// set so separate runs agree on who is primary. The final write is a bulk
// set-reconciliation per class+role at end of run.
type AssignmentSynchronizer struct {
	lms    models.LMSName
	table  string
	decode func(json.RawMessage) (assignmentFields, error)

	assignments assignmentStore
	classes     classResolver
	users       userResolver
	logger      *zap.Logger

	// Per-run state, reset by BeginRun.
	primaryByClass map[string]string
	desired        map[roleKey][]models.ClassAssignment
	recordIDs      map[roleKey][]int64
}

// NewAgilixAssignmentSynchronizer maps Agilix enrollments, including their
// numeric status codes.
func NewAgilixAssignmentSynchronizer(assignments assignmentStore, classes classResolver, users userResolver, logger *zap.Logger) *AssignmentSynchronizer {
	return &AssignmentSynchronizer{
		lms:   models.LMSAgilix,
		table: "lms_agilix_enrollments",
		decode: func(raw json.RawMessage) (assignmentFields, error) {
			e, err := dto.DecodeAgilixEnrollment(raw)
			if err != nil {
				return assignmentFields{}, err
			}
			status, ok := dto.AgilixStatusCodes[e.Status]
			if !ok {
				return assignmentFields{}, fmt.Errorf("unknown agilix enrollment status %d", e.Status)
			}
			return assignmentFields{
				ClassExternalID: e.CourseID,
				UserExternalID:  e.UserID,
				Role:            e.Role,
				Status:          status,
			}, nil
		},
		assignments: assignments,
		classes:     classes,
		users:       users,
		logger:      logger,
	}
}

// NewEdmentumAssignmentSynchronizer maps Edmentum enrollments.
func NewEdmentumAssignmentSynchronizer(assignments assignmentStore, classes classResolver, users userResolver, logger *zap.Logger) *AssignmentSynchronizer {
	return &AssignmentSynchronizer{
		lms:   models.LMSEdmentum,
		table: "lms_edmentum_enrollments",
		decode: func(raw json.RawMessage) (assignmentFields, error) {
			e, err := dto.DecodeEdmentumEnrollment(raw)
			if err != nil {
				return assignmentFields{}, err
			}
			return assignmentFields{
				ClassExternalID: e.ClassID,
				UserExternalID:  e.UserID,
				Role:            e.Role,
				Status:          models.AssignmentStatusActive,
			}, nil
		},
		assignments: assignments,
		classes:     classes,
		users:       users,
		logger:      logger,
	}
}

// Job implements Synchronizer.
func (s *AssignmentSynchronizer) Job() models.SyncJob { return models.SyncJobAssignment }

// LMS implements Synchronizer.
func (s *AssignmentSynchronizer) LMS() models.LMSName { return s.lms }

// SourceTable implements Synchronizer.
func (s *AssignmentSynchronizer) SourceTable() string { return s.table }

// BeginRun resets the per-run teacher-ordering and membership state.
func (s *AssignmentSynchronizer) BeginRun(_ *RunContext) {
	s.primaryByClass = make(map[string]string)
	s.desired = make(map[roleKey][]models.ClassAssignment)
	s.recordIDs = make(map[roleKey][]int64)
}

// Sync resolves one enrollment and accumulates it for the end-of-run
// reconciliation.
func (s *AssignmentSynchronizer) Sync(ctx context.Context, run *RunContext, record models.SourceRecord) Result {
	fields, err := s.decode(record.Payload)
	if err != nil {
		return Failure(ReasonDecode, err)
	}

	class, err := s.classes.FindBySchoolAndExternal(ctx, run.School.ID, run.LMS.ID, fields.ClassExternalID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if class == nil {
		return Failure(ReasonResolution, fmt.Errorf("class %s not yet synced", fields.ClassExternalID))
	}

	user, err := s.users.FindByVendorID(ctx, s.lms, fields.UserExternalID)
	if err != nil {
		return Failure(ReasonResolution, err)
	}
	if user == nil {
		return Failure(ReasonResolution, fmt.Errorf("user %s has no canonical record", fields.UserExternalID))
	}

	isStudent, isTeacher := dto.CanonicalRole(fields.Role)
	var role models.AssignmentRole
	switch {
	case isStudent:
		role = models.RoleStudent
	case isTeacher:
		role, err = s.teacherRole(ctx, class.ID, user.ID)
		if err != nil {
			return Failure(ReasonResolution, err)
		}
	default:
		return Failure(ReasonValidation, fmt.Errorf("unknown role %q", fields.Role))
	}

	key := roleKey{classID: class.ID, role: role}
	s.desired[key] = append(s.desired[key], models.ClassAssignment{
		ClassID:    class.ID,
		UserID:     user.ID,
		Assignment: role,
		Status:     fields.Status,
	})
	s.recordIDs[key] = append(s.recordIDs[key], record.ID)
	return Success()
}

// teacherRole decides primary vs secondary. The persisted primary wins so
// reruns never demote an established primary teacher; otherwise the first
// teacher this run saw for the class becomes primary.
func (s *AssignmentSynchronizer) teacherRole(ctx context.Context, classID, userID string) (models.AssignmentRole, error) {
	if chosen, ok := s.primaryByClass[classID]; ok {
		if chosen == userID {
			return models.RolePrimaryTeacher, nil
		}
		return models.RoleSecondaryTeacher, nil
	}
	persisted, err := s.assignments.PrimaryTeacherUserID(ctx, classID)
	if err != nil {
		return "", fmt.Errorf("find primary teacher: %w", err)
	}
	if persisted != nil {
		s.primaryByClass[classID] = *persisted
		if *persisted == userID {
			return models.RolePrimaryTeacher, nil
		}
		return models.RoleSecondaryTeacher, nil
	}
	s.primaryByClass[classID] = userID
	return models.RolePrimaryTeacher, nil
}

// EndRun reconciles each touched class+role membership in bulk. Records
// behind a failed reconciliation are reported back so their watermarks stay
// pending instead of recording a success that never reached the store.
func (s *AssignmentSynchronizer) EndRun(ctx context.Context, _ *RunContext) ([]int64, error) {
	var failed []int64
	var firstErr error
	for key, members := range s.desired {
		if err := s.assignments.SyncRoleMembership(ctx, key.classID, key.role, members); err != nil {
			s.logger.Sugar().Errorw("membership reconciliation failed",
				"class_id", key.classID, "role", key.role, "error", err)
			failed = append(failed, s.recordIDs[key]...)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return failed, firstErr
}
