package dto

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// Edmentum mirror payload shapes.

// EdmentumProgram is an organizational program record.
type EdmentumProgram struct {
	ProgramID   string `json:"programId"`
	ProgramName string `json:"programName"`
}

// Zone maps the program onto the canonical zone tuple.
func (p EdmentumProgram) Zone() models.Zone {
	return models.Zone{ID: p.ProgramID, Title: p.ProgramName}
}

// EdmentumCourse is a course record.
type EdmentumCourse struct {
	CourseID   string `json:"courseId"`
	CourseName string `json:"courseName"`
}

// EdmentumClass is a class record. Timestamps are vendor epoch milliseconds.
type EdmentumClass struct {
	ClassID   string    `json:"classId"`
	ClassName string    `json:"className"`
	ProgramID string    `json:"programId"`
	CourseID  string    `json:"courseId"`
	StartDate int64     `json:"startDate"`
	EndDate   int64     `json:"endDate"`
	Status    string    `json:"status"`
	Weight    FlexFloat `json:"weight"`
}

// EdmentumEnrollment is a user's membership in a class.
type EdmentumEnrollment struct {
	EnrollmentID string `json:"enrollmentId"`
	ClassID      string `json:"classId"`
	UserID       string `json:"userId"`
	Role         string `json:"role"`
}

// EdmentumGrade is a per-student grade record for a class.
type EdmentumGrade struct {
	ClassID        string    `json:"classId"`
	StudentID      string    `json:"studentId"`
	ActualPoints   FlexFloat `json:"actualPoints"`
	PossiblePoints FlexFloat `json:"possiblePoints"`
}

// EdmentumActivityScore is one student's recorded score for one catalog
// activity.
type EdmentumActivityScore struct {
	ActivityID string    `json:"activityId"`
	StudentID  string    `json:"studentId"`
	Score      FlexFloat `json:"score"`
}

// EdmentumActivity arrives as one record per class carrying every student's
// scores; the synchronizer expands it into per-student pseudo-records.
type EdmentumActivity struct {
	ClassID string                  `json:"classId"`
	Scores  []EdmentumActivityScore `json:"scores"`
}

// CanonicalRole maps a vendor role string onto the student/teacher split.
// Unknown roles map to the empty string so callers can reject them.
func CanonicalRole(vendorRole string) (student bool, teacher bool) {
	switch strings.ToLower(strings.TrimSpace(vendorRole)) {
	case "student":
		return true, false
	case "teacher":
		return false, true
	default:
		return false, false
	}
}

// DecodeEdmentumProgram parses a raw mirror payload.
func DecodeEdmentumProgram(raw json.RawMessage) (EdmentumProgram, error) {
	var p EdmentumProgram
	if err := json.Unmarshal(raw, &p); err != nil {
		return EdmentumProgram{}, fmt.Errorf("decode edmentum program: %w", err)
	}
	return p, nil
}

// DecodeEdmentumCourse parses a raw mirror payload.
func DecodeEdmentumCourse(raw json.RawMessage) (EdmentumCourse, error) {
	var c EdmentumCourse
	if err := json.Unmarshal(raw, &c); err != nil {
		return EdmentumCourse{}, fmt.Errorf("decode edmentum course: %w", err)
	}
	return c, nil
}

// DecodeEdmentumClass parses a raw mirror payload.
func DecodeEdmentumClass(raw json.RawMessage) (EdmentumClass, error) {
	var c EdmentumClass
	if err := json.Unmarshal(raw, &c); err != nil {
		return EdmentumClass{}, fmt.Errorf("decode edmentum class: %w", err)
	}
	return c, nil
}

// DecodeEdmentumEnrollment parses a raw mirror payload.
func DecodeEdmentumEnrollment(raw json.RawMessage) (EdmentumEnrollment, error) {
	var e EdmentumEnrollment
	if err := json.Unmarshal(raw, &e); err != nil {
		return EdmentumEnrollment{}, fmt.Errorf("decode edmentum enrollment: %w", err)
	}
	return e, nil
}

// DecodeEdmentumGrade parses a raw mirror payload.
func DecodeEdmentumGrade(raw json.RawMessage) (EdmentumGrade, error) {
	var g EdmentumGrade
	if err := json.Unmarshal(raw, &g); err != nil {
		return EdmentumGrade{}, fmt.Errorf("decode edmentum grade: %w", err)
	}
	return g, nil
}

// DecodeEdmentumActivity parses a raw mirror payload. A malformed score list
// degrades to an empty list rather than failing the record.
func DecodeEdmentumActivity(raw json.RawMessage) (EdmentumActivity, error) {
	var a EdmentumActivity
	if err := json.Unmarshal(raw, &a); err != nil {
		var partial struct {
			ClassID string `json:"classId"`
		}
		if perr := json.Unmarshal(raw, &partial); perr != nil {
			return EdmentumActivity{}, fmt.Errorf("decode edmentum activity: %w", err)
		}
		return EdmentumActivity{ClassID: partial.ClassID}, nil
	}
	return a, nil
}
