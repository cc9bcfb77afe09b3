package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MindMate-tech/mri-processor/internal/application/processor"
	"github.com/MindMate-tech/mri-processor/internal/config"
	"github.com/MindMate-tech/mri-processor/internal/domain/ai"
	"github.com/MindMate-tech/mri-processor/internal/domain/patients"
	"github.com/MindMate-tech/mri-processor/internal/domain/scans"
	openaiclient "github.com/MindMate-tech/mri-processor/internal/infra/ai/openai"
	"github.com/MindMate-tech/mri-processor/internal/infra/analysis/assemblynet"
	mysqldb "github.com/MindMate-tech/mri-processor/internal/infra/db/mysql"
	postgresdb "github.com/MindMate-tech/mri-processor/internal/infra/db/postgres"
	minioStore "github.com/MindMate-tech/mri-processor/internal/infra/storage"
	"github.com/MindMate-tech/mri-processor/internal/logger"
)

// Standalone batch worker: runs the same pipeline as the HTTP trigger
// on a fixed interval, for deployments without an external cron.
func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info().Msg("signal received, stopping worker")
		cancel()
	}()

	orchestrator, cleanup, err := build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("worker init error")
	}
	defer cleanup()

	interval := time.Duration(cfg.Worker.IntervalMinutes) * time.Minute
	log.Info().Dur("interval", interval).Msg("Starting batch worker")

	if cfg.Worker.RunOnStart {
		runOnce(ctx, orchestrator, cfg.Cron.BatchLimit)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Batch worker stopped")
			return
		case <-ticker.C:
			runOnce(ctx, orchestrator, cfg.Cron.BatchLimit)
		}
	}
}

func runOnce(ctx context.Context, o *processor.BatchOrchestrator, limit int) {
	log := logger.Get()
	start := time.Now()

	result, err := o.RunBatch(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("Batch run failed")
		return
	}
	log.Info().
		Int("processed", result.Processed).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Batch run finished")
}

func build(ctx context.Context, cfg *config.Config) (*processor.BatchOrchestrator, func(), error) {
	var (
		scanRepo    scans.Repository
		patientRepo patients.Repository
		resultStore processor.ResultStore
		cleanup     func()
	)

	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresdb.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		repo := postgresdb.NewScanRepository(db)
		scanRepo, patientRepo, resultStore = repo, postgresdb.NewPatientRepository(db), repo
		cleanup = func() { db.Close() }
	default:
		db, err := mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		repo := mysqldb.NewScanRepository(db)
		scanRepo, patientRepo, resultStore = repo, mysqldb.NewPatientRepository(db), repo
		cleanup = func() { db.Close() }
	}

	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	gateway := assemblynet.NewClient(cfg.Analysis.BaseURL,
		time.Duration(cfg.Analysis.RequestTimeoutSeconds)*time.Second)

	var summarizer ai.Summarizer
	if cfg.OpenAI.APIKey != "" {
		summarizer = openaiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	log := logger.Get()
	clock := processor.SystemClock{}

	return &processor.BatchOrchestrator{
		Scans:    scanRepo,
		Patients: patientRepo,
		Blobs:    store,
		Gateway:  gateway,
		Poller: &processor.JobPoller{
			Gateway:        gateway,
			Interval:       cfg.PollInterval(),
			MaxAttempts:    cfg.Analysis.MaxPollAttempts,
			CountTransient: cfg.CountTransientPolls(),
			Log:            log,
		},
		Retry: &processor.RetryPolicy{MaxRetries: scans.MaxRetries},
		Materializer: &processor.ResultMaterializer{
			Results:    resultStore,
			Summarizer: summarizer,
			Clock:      clock,
			Log:        log,
		},
		Clock: clock,
		Log:   log,
	}, cleanup, nil
}
