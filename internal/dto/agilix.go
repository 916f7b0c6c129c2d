package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

// Agilix mirror payload shapes. Every field access the synchronizers make
// goes through these typed structs; missing fields decode to their zero
// value rather than being probed dynamically.

// AgilixDomain is an organizational domain record.
type AgilixDomain struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Zone maps the domain onto the canonical zone tuple.
func (d AgilixDomain) Zone() models.Zone {
	return models.Zone{ID: d.ID, Title: d.Name}
}

// AgilixCourse is a course resource node.
type AgilixCourse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AgilixClass is a section record. Timestamps are vendor epoch milliseconds.
type AgilixClass struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DomainID  string    `json:"domainid"`
	CourseID  string    `json:"courseid"`
	StartDate int64     `json:"startdate"`
	EndDate   int64     `json:"enddate"`
	Status    string    `json:"status"`
	Weight    FlexFloat `json:"weight"`
}

// AgilixGrades is the embedded achieved/possible pair on enrollments.
// Agilix quotes the numbers.
type AgilixGrades struct {
	Achieved FlexFloat `json:"achieved"`
	Possible FlexFloat `json:"possible"`
}

// AgilixEnrollment is a user's membership in a class, carrying role, the
// numeric vendor status code, and the current grade pair.
type AgilixEnrollment struct {
	ID       string       `json:"id"`
	CourseID string       `json:"courseid"`
	UserID   string       `json:"userid"`
	Role     string       `json:"role"`
	Status   int          `json:"status"`
	Grades   AgilixGrades `json:"grades"`
}

// AgilixActivityItem is one graded item inside an activity record. Items
// whose title starts with "*" are the ones surfaced to the SIS.
type AgilixActivityItem struct {
	ItemID   string    `json:"itemid"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Score    FlexFloat `json:"score"`
	MaxPoint FlexFloat `json:"maxpoints"`
}

// SISRelevant reports whether the item is flagged for SIS consumption.
func (i AgilixActivityItem) SISRelevant() bool {
	return strings.HasPrefix(i.Title, "*")
}

// DisplayName strips the SIS marker from the title.
func (i AgilixActivityItem) DisplayName() string {
	return strings.TrimSpace(strings.TrimPrefix(i.Title, "*"))
}

// AgilixActivity is one student's activity detail for one class.
type AgilixActivity struct {
	CourseID string               `json:"courseid"`
	UserID   string               `json:"userid"`
	Grades   AgilixGrades         `json:"grades"`
	Items    []AgilixActivityItem `json:"items"`
}

// AgilixStatusCodes maps vendor enrollment status codes onto canonical
// assignment statuses.
var AgilixStatusCodes = map[int]models.AssignmentStatus{
	1:  models.AssignmentStatusActive,
	4:  models.AssignmentStatusWithdrawal,
	7:  models.AssignmentStatusCompleted,
	10: models.AssignmentStatusInactive,
}

// MillisToTime converts vendor epoch-millisecond stamps to UTC time. Zero
// input yields nil so absent dates stay NULL.
func MillisToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// DecodeAgilixDomain parses a raw mirror payload.
func DecodeAgilixDomain(raw json.RawMessage) (AgilixDomain, error) {
	var d AgilixDomain
	if err := json.Unmarshal(raw, &d); err != nil {
		return AgilixDomain{}, fmt.Errorf("decode agilix domain: %w", err)
	}
	return d, nil
}

// DecodeAgilixCourse parses a raw mirror payload.
func DecodeAgilixCourse(raw json.RawMessage) (AgilixCourse, error) {
	var c AgilixCourse
	if err := json.Unmarshal(raw, &c); err != nil {
		return AgilixCourse{}, fmt.Errorf("decode agilix course: %w", err)
	}
	return c, nil
}

// DecodeAgilixClass parses a raw mirror payload.
func DecodeAgilixClass(raw json.RawMessage) (AgilixClass, error) {
	var c AgilixClass
	if err := json.Unmarshal(raw, &c); err != nil {
		return AgilixClass{}, fmt.Errorf("decode agilix class: %w", err)
	}
	return c, nil
}

// DecodeAgilixEnrollment parses a raw mirror payload.
func DecodeAgilixEnrollment(raw json.RawMessage) (AgilixEnrollment, error) {
	var e AgilixEnrollment
	if err := json.Unmarshal(raw, &e); err != nil {
		return AgilixEnrollment{}, fmt.Errorf("decode agilix enrollment: %w", err)
	}
	return e, nil
}

// DecodeAgilixActivity parses a raw mirror payload. A malformed embedded
// item list degrades to an empty list rather than failing the record.
func DecodeAgilixActivity(raw json.RawMessage) (AgilixActivity, error) {
	var a AgilixActivity
	if err := json.Unmarshal(raw, &a); err != nil {
		var partial struct {
			CourseID string       `json:"courseid"`
			UserID   string       `json:"userid"`
			Grades   AgilixGrades `json:"grades"`
		}
		if perr := json.Unmarshal(raw, &partial); perr != nil {
			return AgilixActivity{}, fmt.Errorf("decode agilix activity: %w", err)
		}
		return AgilixActivity{CourseID: partial.CourseID, UserID: partial.UserID, Grades: partial.Grades}, nil
	}
	return a, nil
}
