package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/MindMate-tech/mri-processor/internal/application/intake"
	"github.com/MindMate-tech/mri-processor/internal/application/processor"
	domain "github.com/MindMate-tech/mri-processor/internal/domain/scans"
	"github.com/MindMate-tech/mri-processor/internal/middleware"

	patientsdomain "github.com/MindMate-tech/mri-processor/internal/domain/patients"
	recordsdomain "github.com/MindMate-tech/mri-processor/internal/domain/records"
)

type Router struct {
	intakeSvc    *intake.Service
	patients     patientsdomain.Repository
	records      recordsdomain.Repository
	orchestrator *processor.BatchOrchestrator
	batchLimit   int
}

// Config wires the router's collaborators. DB is used only for the
// readiness probe; nil disables the database check.
type Config struct {
	Intake       *intake.Service
	Patients     patientsdomain.Repository
	Records      recordsdomain.Repository
	Orchestrator *processor.BatchOrchestrator
	DB           *sql.DB
	BatchLimit   int
	CronSecret   string
	// RateLimit is requests per second per client IP; 0 disables.
	RateLimit int
}

func NewRouter(cfg Config) http.Handler {
	r := &Router{
		intakeSvc:    cfg.Intake,
		patients:     cfg.Patients,
		records:      cfg.Records,
		orchestrator: cfg.Orchestrator,
		batchLimit:   cfg.BatchLimit,
	}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	mux.Use(middleware.RequestLogging)
	if cfg.RateLimit > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit*2, cfg.RateLimit))
	}

	mux.Get("/health", middleware.LivenessHandler)
	checkers := map[string]middleware.HealthChecker{}
	if cfg.DB != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: cfg.DB}
	}
	mux.Get("/ready", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.With(middleware.CronAuth(cfg.CronSecret)).
			Get("/cron/process-mri", r.wrap(r.handleProcessBatch))

		rt.Post("/mri/save-metadata", r.wrap(r.handleSaveMetadata))
		rt.Get("/scans/latest", r.wrap(r.handleLatestScans))
		rt.Get("/scans/{id}", r.wrap(r.handleGetScan))
		rt.Get("/patients", r.wrap(r.handleListPatients))
		rt.Get("/patients/{id}", r.wrap(r.handleGetPatient))
		rt.Get("/patients/{id}/records", r.wrap(r.handleListPatientRecords))
		rt.Post("/records", r.wrap(r.handleCreateRecord))
		rt.Get("/health/database", r.wrap(r.handleDatabaseHealth))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var verr *intake.ValidationError
			switch {
			case errors.Is(err, sql.ErrNoRows):
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			case errors.As(err, &verr):
				writeJSON(w, http.StatusBadRequest, map[string]string{"message": verr.Message})
			default:
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GET /api/cron/process-mri
// The background processor trigger: selects eligible scans and drives
// each through the analysis pipeline. Runs synchronously; the caller's
// own timeout bounds how long a batch may take.
func (r *Router) handleProcessBatch(w http.ResponseWriter, req *http.Request) error {
	start := time.Now()

	result, err := r.orchestrator.RunBatch(req.Context(), r.batchLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "Database error",
			"detail": err.Error(),
		})
		return nil
	}

	middleware.RecordBatch(result.Processed, result.Success, result.Failed, result.Skipped)

	writeJSON(w, http.StatusOK, map[string]any{
		"processed":   result.Processed,
		"success":     result.Success,
		"failed":      result.Failed,
		"duration_ms": time.Since(start).Milliseconds(),
		"results":     result.Results,
	})
	return nil
}

// POST /api/mri/save-metadata
func (r *Router) handleSaveMetadata(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		BlobURL   string `json:"blobUrl"`
		Filename  string `json:"filename"`
		FileSize  int64  `json:"fileSize"`
		MimeType  string `json:"mimeType"`
		PatientID string `json:"patientId"`
		DoctorID  string `json:"doctorId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &intake.ValidationError{Message: "invalid request body"}
	}

	scan, err := r.intakeSvc.SaveMetadata(req.Context(), intake.SaveMetadataCommand{
		PatientID: body.PatientID,
		DoctorID:  body.DoctorID,
		BlobPath:  body.BlobURL,
		Filename:  body.Filename,
		FileSize:  body.FileSize,
		MimeType:  body.MimeType,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{"scan": scan})
	return nil
}

// GET /api/scans/latest?limit=20
func (r *Router) handleLatestScans(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.intakeSvc.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /api/scans/{id}
func (r *Router) handleGetScan(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")

	scan, err := r.intakeSvc.Get(req.Context(), domain.ScanID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, scan)
	return nil
}

// GET /api/patients
func (r *Router) handleListPatients(w http.ResponseWriter, req *http.Request) error {
	list, err := r.patients.List(req.Context())
	if err != nil {
		return err
	}
	out := make([]map[string]any, 0, len(list))
	for _, p := range list {
		out = append(out, patientView(p))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

// GET /api/patients/{id}
func (r *Router) handleGetPatient(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")

	p, err := r.patients.Get(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, patientView(p))
	return nil
}

// GET /api/patients/{id}/records?limit=20
func (r *Router) handleListPatientRecords(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.records.ListByPatient(req.Context(), id, limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*recordsdomain.DerivedClinicalRecord{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// POST /api/records
// Manual record entry, the doctor-note counterpart to the derived
// records the processor writes.
func (r *Router) handleCreateRecord(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		PatientID     string `json:"patientId"`
		DoctorID      string `json:"doctorId"`
		ScanID        string `json:"scanId"`
		RecordType    string `json:"recordType"`
		Summary       string `json:"summary"`
		DetailedNotes string `json:"detailedNotes"`
		Content       string `json:"content"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &intake.ValidationError{Message: "invalid request body"}
	}
	if body.PatientID == "" {
		return &intake.ValidationError{Message: "patientId is required."}
	}
	if body.Summary == "" {
		return &intake.ValidationError{Message: "summary is required."}
	}
	recordType := body.RecordType
	if recordType == "" {
		recordType = recordsdomain.RecordTypeDoctorNote
	}

	rec := &recordsdomain.DerivedClinicalRecord{
		ID:            recordsdomain.RecordID(uuid.New().String()),
		PatientID:     body.PatientID,
		DoctorID:      body.DoctorID,
		ScanID:        body.ScanID,
		RecordType:    recordType,
		Summary:       body.Summary,
		DetailedNotes: body.DetailedNotes,
		Content:       body.Content,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.records.Insert(req.Context(), rec); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": rec})
	return nil
}

// patientView coalesces the legacy gender column into one field the
// dashboard expects.
func patientView(p *patientsdomain.Patient) map[string]any {
	gender := p.Gender
	if gender == "" {
		gender = p.Sex
	}
	return map[string]any{
		"patient_id": p.PatientID,
		"name":       p.Name,
		"dob":        p.DOB,
		"gender":     gender,
		"created_at": p.CreatedAt,
	}
}

// GET /api/health/database
func (r *Router) handleDatabaseHealth(w http.ResponseWriter, req *http.Request) error {
	count, err := r.patients.Count(req.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Database query failed",
			"error":   err.Error(),
		})
		return nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"database":     "connected",
		"patientCount": count,
		"timestamp":    time.Now().UTC(),
	})
	return nil
}
