package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateID    = errors.New("duplicate job id")
	ErrInvalidPrompt  = errors.New("invalid prompt")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNoJobAvailable = errors.New("no job available")
)

// FailureKind discriminates how a pipeline failure should be handled.
type FailureKind string

const (
	// FailureTransient failures (rate limits, timeouts) are retried with
	// backoff and, once exhausted, surfaced with a retry hint.
	FailureTransient FailureKind = "transient"
	// FailureStructural failures reproduce on identical inputs; the caller
	// must change the request.
	FailureStructural FailureKind = "structural"
	// FailurePolicy failures are caller-actionable quality gates, distinct
	// from structural errors so the caller knows to amend intent.
	FailurePolicy FailureKind = "policy"
)

// Error codes surfaced on failed jobs.
const (
	ErrCodeGenerationFailed    = "generation_failed"
	ErrCodeDimensionMismatch   = "dimension_mismatch"
	ErrCodeBlackPassAlignment  = "black_pass_alignment"
	ErrCodeNoOpaqueContent     = "no_opaque_content"
	ErrCodeHollowCenterMissing = "hollow_center_missing"
	ErrCodeStorageFailed       = "storage_failed"
	ErrCodeInternal            = "internal_error"
)

// Failure is the typed outcome every pipeline error is converted to before
// crossing the job boundary. Nothing crosses unconverted.
type Failure struct {
	Code       string
	Kind       FailureKind
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (f *Failure) Error() string {
	if f.Message != "" {
		return f.Code + ": " + f.Message
	}
	return f.Code
}

func (f *Failure) Unwrap() error { return f.Cause }

// RetryAfterSeconds returns the retry hint rounded up to whole seconds, or
// zero when the failure is not retryable as-is.
func (f *Failure) RetryAfterSeconds() int {
	if f.Kind != FailureTransient || f.RetryAfter <= 0 {
		return 0
	}
	secs := int((f.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// StructuralFailure builds a non-retryable failure from a cause.
func StructuralFailure(code, message string, cause error) *Failure {
	return &Failure{Code: code, Kind: FailureStructural, Message: message, Cause: cause}
}

// TransientFailure builds a retryable failure with a retry hint.
func TransientFailure(code, message string, retryAfter time.Duration, cause error) *Failure {
	return &Failure{Code: code, Kind: FailureTransient, Message: message, RetryAfter: retryAfter, Cause: cause}
}

// PolicyFailure builds a caller-actionable quality-gate failure.
func PolicyFailure(code, message string) *Failure {
	return &Failure{Code: code, Kind: FailurePolicy, Message: message}
}

// AsFailure extracts a *Failure from err, wrapping unknown errors as
// internal structural failures so the job boundary stays total.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return StructuralFailure(ErrCodeInternal, err.Error(), err)
}
