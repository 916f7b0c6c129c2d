package models

// GradeScale is a school's grading configuration.
type GradeScale struct {
	ID           string  `db:"id" json:"id"`
	SchoolID     string  `db:"school_id" json:"school_id"`
	PassingGrade float64 `db:"passing_grade" json:"passing_grade"`
}

// GradeLetter is one bucket of a grade scale, inclusive on both bounds.
type GradeLetter struct {
	ID       string  `db:"id" json:"id"`
	ScaleID  string  `db:"scale_id" json:"scale_id"`
	Letter   string  `db:"letter" json:"letter"`
	MinScore float64 `db:"min_score" json:"min_score"`
	MaxScore float64 `db:"max_score" json:"max_score"`
}

// GradeResult is the outcome of resolving a raw percentage against a class's
// grade scale. A zero ClassID means the class could not be resolved and the
// caller should skip its write.
type GradeResult struct {
	ClassID       string
	GradeLetter   string
	GradeLetterID *string
	IsPass        bool
	Weight        float64
}
