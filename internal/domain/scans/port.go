package scans

import (
	"context"
	"time"
)

// Repository port (interface for scan persistence)
type Repository interface {
	// FetchEligible returns pending scans with retry_count below
	// MaxRetries, oldest first, capped at limit. Read-only.
	FetchEligible(ctx context.Context, limit int) ([]*ScanRecord, error)

	// Claim performs the conditional status transition that grants
	// exclusive ownership of a processing attempt. It returns false
	// (no error) when the scan was not in the expected status, which
	// means another worker got there first.
	Claim(ctx context.Context, id ScanID, expected, next Status) (bool, error)

	// RecordFailure increments nothing itself: the caller passes the
	// new retry count and the status it decided on, plus the message
	// to surface on the record.
	RecordFailure(ctx context.Context, id ScanID, status Status, retryCount int, message string, at time.Time) error

	Insert(ctx context.Context, s *ScanRecord) error
	Get(ctx context.Context, id ScanID) (*ScanRecord, error)
	Latest(ctx context.Context, limit int) ([]*ScanRecord, error)
}
