package analysis

import (
	"fmt"
	"time"
)

// UploadError indicates the submit call was rejected or failed at the
// transport level. Status is the HTTP status when one was received, 0
// for pure network failures.
type UploadError struct {
	Status int
	Detail string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("analysis upload failed: %d - %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("analysis upload failed: %s", e.Detail)
}

func (e *UploadError) Unwrap() error { return e.Err }

// JobFailedError indicates the external job itself reported failure.
type JobFailedError struct {
	JobID  JobID
	Reason string
}

func (e *JobFailedError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "Unknown error"
	}
	return fmt.Sprintf("analysis processing failed: %s", reason)
}

// PollTimeoutError indicates the attempt budget ran out before the job
// reached a terminal state.
type PollTimeoutError struct {
	JobID    JobID
	Attempts int
	Elapsed  time.Duration
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("analysis timeout after %d poll attempts (%s)", e.Attempts, e.Elapsed)
}
