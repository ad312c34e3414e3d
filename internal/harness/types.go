package harness

import (
	"errors"
	"fmt"

	"github.com/roach88/splice/internal/timeline"
)

// StepErrorCode categorizes step failures.
type StepErrorCode string

const (
	// ErrCodeRejected: the timeline refused a step expected to succeed.
	ErrCodeRejected StepErrorCode = "REJECTED"

	// ErrCodeUnexpectedSuccess: a step marked "expect: rejected" succeeded.
	ErrCodeUnexpectedSuccess StepErrorCode = "UNEXPECTED_SUCCESS"

	// ErrCodeUnknownClip: a step names a clip alias never defined.
	ErrCodeUnknownClip StepErrorCode = "UNKNOWN_CLIP"

	// ErrCodeUnknownOp: the step operation is not recognized.
	ErrCodeUnknownOp StepErrorCode = "UNKNOWN_OP"

	// ErrCodeInvalidStep: a required step field is missing or malformed.
	ErrCodeInvalidStep StepErrorCode = "INVALID_STEP"
)

// StepError reports a step whose outcome did not match the script.
type StepError struct {
	Code    StepErrorCode
	Message string

	// Step is the zero-based step index.
	Step int

	Details map[string]string
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %s: %s", e.Step, e.Code, e.Message)
}

// IsRejected reports whether err is a step the timeline refused.
func IsRejected(err error) bool {
	var se *StepError
	if errors.As(err, &se) {
		return se.Code == ErrCodeRejected
	}
	return false
}

// IsUnexpectedSuccess reports whether err is a step that should have been
// refused.
func IsUnexpectedSuccess(err error) bool {
	var se *StepError
	if errors.As(err, &se) {
		return se.Code == ErrCodeUnexpectedSuccess
	}
	return false
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Index  int    `json:"index"`
	Op     string `json:"op"`
	OK     bool   `json:"ok"`
	Digest string `json:"digest"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as scripted and every
	// assertion held.
	Pass bool `json:"pass"`

	Steps  []StepResult `json:"steps"`
	Errors []string     `json:"errors,omitempty"`

	// Layout is the final timeline state.
	Layout timeline.Layout `json:"-"`

	// Rendered is the final layout with clips and tracks named by alias.
	Rendered string `json:"layout"`

	// Digest is the final state digest.
	Digest string `json:"digest"`

	// Failure is the step error that stopped the run, if any.
	Failure error `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
