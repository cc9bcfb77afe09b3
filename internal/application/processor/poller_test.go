package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
)

func newTestPoller(gw analysis.Gateway, maxAttempts int, countTransient bool) *JobPoller {
	return &JobPoller{
		Gateway:        gw,
		Interval:       time.Millisecond,
		MaxAttempts:    maxAttempts,
		CountTransient: countTransient,
		Log:            zerolog.Nop(),
	}
}

func TestJobPoller_CompletesAfterProcessing(t *testing.T) {
	polls := 0
	gw := &mockGateway{
		pollFunc: func(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
			polls++
			if polls < 3 {
				return analysis.JobStatus{State: analysis.JobProcessing}, nil
			}
			return analysis.JobStatus{
				State:  analysis.JobCompleted,
				Result: &analysis.Result{Findings: []string{"f1"}},
			}, nil
		},
	}

	res, err := newTestPoller(gw, 60, true).Await(context.Background(), "J1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"f1"}, res.Findings)
	assert.Equal(t, 3, polls)
}

func TestJobPoller_JobFailure(t *testing.T) {
	gw := &mockGateway{
		pollFunc: func(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
			return analysis.JobStatus{State: analysis.JobFailed, Reason: "segmentation error"}, nil
		},
	}

	_, err := newTestPoller(gw, 60, true).Await(context.Background(), "J1")
	require.Error(t, err)

	var jfe *analysis.JobFailedError
	require.ErrorAs(t, err, &jfe)
	assert.Equal(t, "segmentation error", jfe.Reason)
	assert.Contains(t, err.Error(), "segmentation error")
}

func TestJobPoller_TimeoutWhenNeverTerminal(t *testing.T) {
	polls := 0
	gw := &mockGateway{
		pollFunc: func(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
			polls++
			return analysis.JobStatus{State: analysis.JobQueued}, nil
		},
	}

	_, err := newTestPoller(gw, 5, true).Await(context.Background(), "J1")
	require.Error(t, err)

	var toe *analysis.PollTimeoutError
	require.ErrorAs(t, err, &toe)
	assert.Equal(t, 5, toe.Attempts)
	assert.Equal(t, 5, polls, "loop must stop at the attempt ceiling")
}

func TestJobPoller_TransientFailuresShareBudget(t *testing.T) {
	polls := 0
	gw := &mockGateway{
		pollFunc: func(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
			polls++
			return analysis.JobStatus{}, errors.New("status check failed: 503")
		},
	}

	_, err := newTestPoller(gw, 4, true).Await(context.Background(), "J1")
	require.Error(t, err)

	var toe *analysis.PollTimeoutError
	require.ErrorAs(t, err, &toe)
	assert.Equal(t, 4, polls, "transient failures consume the shared budget")
}

func TestJobPoller_TransientFailuresSeparateBudget(t *testing.T) {
	// With CountTransient off, transport errors draw from their own
	// budget and a later completion still wins.
	polls := 0
	gw := &mockGateway{
		pollFunc: func(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
			polls++
			if polls <= 3 {
				return analysis.JobStatus{}, errors.New("connection refused")
			}
			return analysis.JobStatus{
				State:  analysis.JobCompleted,
				Result: &analysis.Result{},
			}, nil
		},
	}

	// MaxAttempts=2 would have timed out under the shared policy after
	// two transport errors.
	res, err := newTestPoller(gw, 2, false).Await(context.Background(), "J1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 4, polls)
}

func TestJobPoller_SeparateBudgetExhaustion(t *testing.T) {
	gw := &mockGateway{
		pollFunc: func(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
			return analysis.JobStatus{}, errors.New("connection refused")
		},
	}

	_, err := newTestPoller(gw, 3, false).Await(context.Background(), "J1")
	require.Error(t, err)

	var toe *analysis.PollTimeoutError
	require.ErrorAs(t, err, &toe)
}

func TestJobPoller_Cancellation(t *testing.T) {
	gw := &mockGateway{
		pollFunc: func(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
			return analysis.JobStatus{State: analysis.JobProcessing}, nil
		},
	}
	p := newTestPoller(gw, 60, true)
	p.Interval = time.Hour // the wait itself must be interruptible

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Await(ctx, "J1")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not observe cancellation")
	}
}
