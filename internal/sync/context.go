package sync

import "github.com/noah-isme/sis-sync-api/internal/models"

// RunContext carries the school and LMS context resolved at the start of one
// run. It is threaded explicitly through every Sync call; there is no
// process-wide "current LMS" state, so concurrent runs for different
// school/LMS pairs cannot observe each other's context.
type RunContext struct {
	School    *models.School
	SchoolDoc *models.SchoolDocument
	LMS       *models.LMS
}
