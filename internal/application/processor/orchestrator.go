package processor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
	"github.com/MindMate-tech/mri-processor/internal/domain/patients"
	"github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

// Per-item outcome values in a BatchResult.
const (
	ItemSuccess = "success"
	ItemFailed  = "failed"
	ItemSkipped = "skipped"
)

// ItemResult is one scan's outcome within a batch.
type ItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates one trigger invocation.
type BatchResult struct {
	Processed int          `json:"processed"`
	Success   int          `json:"success"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Results   []ItemResult `json:"results"`
}

// BatchOrchestrator is the top-level driver: select eligible scans,
// claim each, run the pipeline in isolation, aggregate outcomes.
type BatchOrchestrator struct {
	Scans        scans.Repository
	Patients     patients.Repository
	Blobs        BlobStore
	Gateway      analysis.Gateway
	Poller       *JobPoller
	Retry        *RetryPolicy
	Materializer *ResultMaterializer
	Clock        Clock
	Log          zerolog.Logger
}

// RunBatch processes up to limit eligible scans sequentially. A nil
// error with per-item failures inside is normal; RunBatch itself only
// errors when the queue cannot be read at all.
func (o *BatchOrchestrator) RunBatch(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	pending, err := o.Scans.FetchEligible(ctx, limit)
	if err != nil {
		return nil, &scans.TransientIOError{Op: "fetch eligible scans", Err: err}
	}

	result := &BatchResult{Results: []ItemResult{}}
	if len(pending) == 0 {
		o.Log.Info().Msg("No pending scans to process")
		return result, nil
	}
	o.Log.Info().Int("count", len(pending)).Msg("Found pending scans")

	for _, scan := range pending {
		item := o.processOne(ctx, scan)
		result.Results = append(result.Results, item)
		switch item.Status {
		case ItemSuccess:
			result.Success++
			result.Processed++
		case ItemFailed:
			result.Failed++
			result.Processed++
		case ItemSkipped:
			result.Skipped++
		}
	}

	o.Log.Info().
		Int("processed", result.Processed).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("Batch completed")
	return result, nil
}

// processOne runs the full pipeline for a single scan. Nothing escapes:
// every failure is routed through the retry policy and reported in the
// item, so one scan can never abort its siblings.
func (o *BatchOrchestrator) processOne(ctx context.Context, scan *scans.ScanRecord) ItemResult {
	log := o.Log.With().Str("scan_id", string(scan.ID)).Str("file", scan.OriginalFilename).Logger()

	claimed, err := o.Scans.Claim(ctx, scan.ID, scans.StatusPending, scans.StatusProcessing)
	if err != nil {
		// Can't prove ownership, so don't touch retry state either.
		log.Error().Err(err).Msg("Claim failed")
		return ItemResult{ID: string(scan.ID), Status: ItemFailed, Error: err.Error()}
	}
	if !claimed {
		log.Info().Msg("Scan already claimed by another worker, skipping")
		return ItemResult{ID: string(scan.ID), Status: ItemSkipped}
	}

	log.Info().Msg("Processing scan")

	if err := o.runPipeline(ctx, scan, log); err != nil {
		log.Error().Err(err).Msg("Failed to process scan")
		status, perr := o.Retry.Apply(ctx, o.Scans, scan, err, o.Clock.Now())
		if perr != nil {
			log.Error().Err(perr).Msg("Failed to record retry state")
		} else {
			log.Info().Str("status", string(status)).Int("retry_count", scan.RetryCount+1).Msg("Retry state recorded")
		}
		return ItemResult{ID: string(scan.ID), Status: ItemFailed, Error: err.Error()}
	}

	return ItemResult{ID: string(scan.ID), Status: ItemSuccess}
}

func (o *BatchOrchestrator) runPipeline(ctx context.Context, scan *scans.ScanRecord, log zerolog.Logger) error {
	body, size, err := o.Blobs.Fetch(ctx, scan.StoragePath)
	if err != nil {
		return &scans.TransientIOError{Op: fmt.Sprintf("download %s", scan.StoragePath), Err: err}
	}
	defer body.Close()
	log.Info().Int64("bytes", size).Msg("Downloaded scan file")

	// Patient lookup is best-effort: missing demographics fall back to
	// the documented defaults rather than failing the scan.
	patient, err := o.Patients.Get(ctx, scan.PatientID)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", scan.PatientID).Msg("Patient lookup failed, using defaults")
		patient = nil
	}
	age, sex := patient.Demographics(o.Clock.Now())
	log.Info().Int("age", age).Str("sex", sex).Msg("Resolved patient demographics")

	jobID, err := o.Gateway.Submit(ctx, analysis.SubmitRequest{
		File:     body,
		FileName: scan.OriginalFilename,
		MimeType: scan.MimeType,
		Age:      age,
		Sex:      sex,
	})
	if err != nil {
		return err
	}
	log.Info().Str("job_id", string(jobID)).Msg("Job queued")

	res, err := o.Poller.Await(ctx, jobID)
	if err != nil {
		return err
	}

	return o.Materializer.Materialize(ctx, scan, patient, jobID, res, age, sex)
}
