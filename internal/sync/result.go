package sync

import (
	"fmt"

	appErrors "github.com/noah-isme/sis-sync-api/pkg/errors"
)

// Outcome classifies the result of syncing one source record.
type Outcome int

const (
	// OutcomeSuccess: the record's data was applied (or confirmed current).
	OutcomeSuccess Outcome = iota
	// OutcomeSkip: the record was intentionally left alone; the watermark
	// still records a successful attempt so it is not retried immediately.
	OutcomeSkip
	// OutcomeFailure: the record could not be applied; the watermark
	// records a failed attempt and the record rotates to the back of the
	// oldest-first queue.
	OutcomeFailure
)

// Failure reason classes. The runner routes persist failures to the
// notification side-channel.
const (
	ReasonDecode     = "decode"
	ReasonResolution = "resolution"
	ReasonValidation = "validation"
	ReasonPersist    = "persist"
)

// reasonSentinels maps each failure class to its domain sentinel so log and
// notification sites can classify results with errors.Is.
var reasonSentinels = map[string]error{
	ReasonDecode:     appErrors.ErrRecordDecode,
	ReasonResolution: appErrors.ErrRecordResolution,
	ReasonValidation: appErrors.ErrRecordValidation,
	ReasonPersist:    appErrors.ErrPersist,
}

// Result is the structured outcome returned by Synchronizer.Sync. The runner
// is the single place that translates it into a watermark write, so the
// "callback exactly once" invariant lives in one call site instead of every
// branch of every synchronizer.
type Result struct {
	Outcome Outcome
	Reason  string
	Err     error
}

// Success marks the record applied.
func Success() Result {
	return Result{Outcome: OutcomeSuccess}
}

// Skip marks the record intentionally untouched.
func Skip(reason string) Result {
	return Result{Outcome: OutcomeSkip, Reason: reason}
}

// Failure marks the record failed with a reason class. The reason's sentinel
// is attached to the chain.
func Failure(reason string, err error) Result {
	if sentinel, ok := reasonSentinels[reason]; ok {
		if err != nil {
			err = fmt.Errorf("%w: %w", sentinel, err)
		} else {
			err = sentinel
		}
	}
	return Result{Outcome: OutcomeFailure, Reason: reason, Err: err}
}

// Succeeded reports whether the watermark should record a successful
// attempt. Skips count as success: the record was seen and deliberately
// left alone.
func (r Result) Succeeded() bool {
	return r.Outcome != OutcomeFailure
}

// String renders the outcome for logs.
func (r Result) String() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkip:
		return fmt.Sprintf("skip(%s)", r.Reason)
	default:
		if r.Err != nil {
			return fmt.Sprintf("failure(%s): %v", r.Reason, r.Err)
		}
		return fmt.Sprintf("failure(%s)", r.Reason)
	}
}
