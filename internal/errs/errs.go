package errs

import (
	"errors"
	"fmt"
	"time"
)

// InvalidInputError rejects a file or request before any job is created.
// It is never retried.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// QuotaExceededError is an admission gate refusal, carrying the specific
// limit that was breached.
type QuotaExceededError struct {
	Limit  string
	Reason string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded (%s): %s", e.Limit, e.Reason)
}

// StageFailure marks a pipeline stage failure inside a worker. The queue
// retries it up to its attempt limit before the job becomes terminal.
type StageFailure struct {
	Stage   string
	Elapsed time.Duration
	Err     error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// IsQuotaExceeded reports whether err wraps a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// StageOf returns the stage name if err wraps a StageFailure, else "".
func StageOf(err error) string {
	var sf *StageFailure
	if errors.As(err, &sf) {
		return sf.Stage
	}
	return ""
}
