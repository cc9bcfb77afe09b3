package scans

import "fmt"

// TransientIOError marks a store or blob access failure that is worth
// retrying on a later batch run. When it happens during selection there
// is nothing to process and the whole batch aborts.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// PersistenceError marks a failed write of analysis results or the
// derived clinical record. The scan must not stay half-committed, so
// the pipeline routes it through the retry policy like any other
// failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
