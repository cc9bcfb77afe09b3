package processor

import "time"

// Clock abstraction so time-dependent behavior stays testable.
type Clock interface {
	Now() time.Time
}

// SystemClock default implementation, uses time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
