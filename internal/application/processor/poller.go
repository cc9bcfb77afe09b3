package processor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
)

// JobPoller drives one submitted job to a terminal outcome. The only
// suspension point in the pipeline lives here: the wait between polls
// blocks on a timer and the context, never the CPU.
type JobPoller struct {
	Gateway  analysis.Gateway
	Interval time.Duration
	// MaxAttempts bounds the poll loop (default budget: 60 * 10s).
	MaxAttempts int
	// CountTransient charges transport-level poll failures against the
	// shared attempt budget. When false they draw from a separate
	// budget of MaxAttempts before the poller gives up.
	CountTransient bool
	Log            zerolog.Logger
}

// Await polls until the job completes, fails, or the attempt budget
// runs out. A transport error on an individual poll is transient: it
// never terminates the job by itself.
func (p *JobPoller) Await(ctx context.Context, id analysis.JobID) (*analysis.Result, error) {
	start := time.Now()
	attempts := 0
	transient := 0

	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	for attempts < p.MaxAttempts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		status, err := p.Gateway.Poll(ctx, id)
		if err != nil {
			p.Log.Warn().Err(err).Str("job_id", string(id)).Msg("Status check failed")
			if p.CountTransient {
				attempts++
			} else {
				transient++
				if transient >= p.MaxAttempts {
					return nil, &analysis.PollTimeoutError{JobID: id, Attempts: attempts + transient, Elapsed: time.Since(start)}
				}
			}
			timer.Reset(p.Interval)
			continue
		}
		attempts++

		switch status.State {
		case analysis.JobCompleted:
			p.Log.Info().Str("job_id", string(id)).Int("attempts", attempts).Msg("Analysis complete")
			return status.Result, nil
		case analysis.JobFailed:
			return nil, &analysis.JobFailedError{JobID: id, Reason: status.Reason}
		default:
			// queued or still processing
			p.Log.Debug().
				Str("job_id", string(id)).
				Str("state", string(status.State)).
				Int("attempt", attempts).
				Int("max", p.MaxAttempts).
				Msg("Polling status")
		}
		timer.Reset(p.Interval)
	}

	return nil, &analysis.PollTimeoutError{JobID: id, Attempts: attempts, Elapsed: time.Since(start)}
}
