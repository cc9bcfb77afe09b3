package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MindMate-tech/mri-processor/internal/application/intake"
	"github.com/MindMate-tech/mri-processor/internal/application/processor"
	"github.com/MindMate-tech/mri-processor/internal/config"
	"github.com/MindMate-tech/mri-processor/internal/domain/ai"
	"github.com/MindMate-tech/mri-processor/internal/domain/patients"
	"github.com/MindMate-tech/mri-processor/internal/domain/records"
	"github.com/MindMate-tech/mri-processor/internal/domain/scans"
	openaiclient "github.com/MindMate-tech/mri-processor/internal/infra/ai/openai"
	"github.com/MindMate-tech/mri-processor/internal/infra/analysis/assemblynet"
	mysqldb "github.com/MindMate-tech/mri-processor/internal/infra/db/mysql"
	postgresdb "github.com/MindMate-tech/mri-processor/internal/infra/db/postgres"
	"github.com/MindMate-tech/mri-processor/internal/infra/httpserver"
	minioStore "github.com/MindMate-tech/mri-processor/internal/infra/storage"
	"github.com/MindMate-tech/mri-processor/internal/logger"
)

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

	ctx := context.Background()

	db, scanRepo, patientRepo, recordRepo, resultStore, err := connectStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect error")
	}
	defer db.Close()

	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio init error")
	}

	gateway := assemblynet.NewClient(cfg.Analysis.BaseURL,
		time.Duration(cfg.Analysis.RequestTimeoutSeconds)*time.Second)

	var summarizer ai.Summarizer
	if cfg.OpenAI.APIKey != "" {
		summarizer = openaiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	orchestrator := buildOrchestrator(cfg, scanRepo, patientRepo, resultStore, store, gateway, summarizer)

	intakeSvc := &intake.Service{
		Repo:  scanRepo,
		Clock: processor.SystemClock{},
	}

	handler := httpserver.NewRouter(httpserver.Config{
		Intake:       intakeSvc,
		Patients:     patientRepo,
		Records:      recordRepo,
		Orchestrator: orchestrator,
		DB:           db,
		BatchLimit:   cfg.Cron.BatchLimit,
		CronSecret:   cfg.Cron.Secret,
		RateLimit:    cfg.Server.RateLimitPerSecond,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // a batch can poll for a long time
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

// connectStore picks the configured driver and returns the shared
// handle plus the repositories bound to it.
func connectStore(ctx context.Context, cfg *config.Config) (*sql.DB, scans.Repository, patients.Repository, records.Repository, processor.ResultStore, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresdb.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		repo := postgresdb.NewScanRepository(db)
		return db, repo, postgresdb.NewPatientRepository(db), postgresdb.NewRecordRepository(db), repo, nil
	default:
		db, err := mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		repo := mysqldb.NewScanRepository(db)
		return db, repo, mysqldb.NewPatientRepository(db), mysqldb.NewRecordRepository(db), repo, nil
	}
}

func buildOrchestrator(
	cfg *config.Config,
	scanRepo scans.Repository,
	patientRepo patients.Repository,
	resultStore processor.ResultStore,
	blobs processor.BlobStore,
	gateway *assemblynet.Client,
	summarizer ai.Summarizer,
) *processor.BatchOrchestrator {
	log := logger.Get()
	clock := processor.SystemClock{}

	return &processor.BatchOrchestrator{
		Scans:    scanRepo,
		Patients: patientRepo,
		Blobs:    blobs,
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
	}
}
