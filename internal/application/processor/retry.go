package processor

import (
	"context"
	"time"

	"github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

// RetryPolicy decides, on any pipeline failure, whether a scan goes
// back to the queue or is parked terminally. No backoff is applied
// here; spacing between attempts is however often the batch trigger
// fires.
type RetryPolicy struct {
	MaxRetries int
}

// Apply bumps the retry count and writes the outcome. The returned
// status is pending while the new count stays under the ceiling,
// failed once it reaches it.
func (p *RetryPolicy) Apply(ctx context.Context, repo scans.Repository, scan *scans.ScanRecord, cause error, at time.Time) (scans.Status, error) {
	max := p.MaxRetries
	if max <= 0 {
		max = scans.MaxRetries
	}

	next := scans.StatusPending
	count := scan.RetryCount + 1
	if count >= max {
		next = scans.StatusFailed
	}

	if err := repo.RecordFailure(ctx, scan.ID, next, count, cause.Error(), at); err != nil {
		return next, &scans.PersistenceError{Op: "record failure", Err: err}
	}
	return next, nil
}
