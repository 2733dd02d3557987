package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// State is the state of a bounded retry loop.
type State int

const (
	Attempting State = iota
	Succeeded
	FailedPermanently
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case FailedPermanently:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Class says whether an error may be absorbed by a retry or a batch.
type Class int

const (
	// Recoverable errors are retried per file and, once retries are
	// exhausted, recorded as a failed file without aborting the batch.
	Recoverable Class = iota
	// Fatal errors stop the retry loop and abort the batch.
	Fatal
)

func (c Class) String() string {
	if c == Recoverable {
		return "recoverable"
	}
	return "fatal"
}

// ExhaustedError is returned when every attempt ended in a recoverable error.
// It unwraps to the error of the last attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Classify maps an error to its retry class. Timeouts (including exhausted
// timeouts) are Recoverable; everything else, including caller cancellation,
// is Fatal.
func Classify(err error) Class {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return Recoverable
	}
	if IsTimeout(err) {
		return Recoverable
	}
	return Fatal
}

// IsTimeout reports whether err is an I/O timeout. Context deadlines are not
// transfer timeouts and report false.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Retry is the state machine behind a bounded retry loop:
//
//	Attempting(n) -> Succeeded          on success
//	Attempting(n) -> Attempting(n+1)    on a Recoverable error while n < max
//	Attempting(n) -> FailedPermanently  on a Recoverable error when n == max,
//	                                    or on any Fatal error
type Retry struct {
	max     int
	attempt int
	state   State
	err     error

	// OnRetry, if set, is called before moving to the next attempt.
	OnRetry func(attempt int, err error)
}

// NewRetry returns a machine in Attempting(1) allowing maxAttempts in total.
func NewRetry(maxAttempts int) *Retry {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retry{max: maxAttempts, attempt: 1, state: Attempting}
}

// State returns the current state.
func (r *Retry) State() State { return r.state }

// Attempt returns the current attempt number, starting at 1.
func (r *Retry) Attempt() int { return r.attempt }

// Max returns the attempt cap.
func (r *Retry) Max() int { return r.max }

// Err returns the terminal error once the machine is FailedPermanently.
// Fatal errors are returned unchanged; exhausted retries return *ExhaustedError.
func (r *Retry) Err() error { return r.err }

// Record feeds the outcome of the current attempt and returns the new state.
// Calls after a terminal state are ignored.
func (r *Retry) Record(err error) State {
	if r.state != Attempting {
		return r.state
	}

	switch {
	case err == nil:
		r.state = Succeeded
	case Classify(err) == Fatal:
		r.state = FailedPermanently
		r.err = err
	case r.attempt >= r.max:
		r.state = FailedPermanently
		r.err = &ExhaustedError{Attempts: r.attempt, Err: err}
	default:
		if r.OnRetry != nil {
			r.OnRetry(r.attempt, err)
		}
		r.attempt++
	}
	return r.state
}

// Do runs fn until the machine leaves Attempting and returns the terminal
// error, if any. fn receives the attempt number.
func (r *Retry) Do(fn func(attempt int) error) error {
	for r.state == Attempting {
		r.Record(fn(r.attempt))
	}
	return r.err
}
