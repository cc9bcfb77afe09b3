package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MindMate-tech/mri-processor/internal/domain/records"
	domain "github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

const scanColumns = `id, patient_id, uploaded_by, storage_path, original_filename,
       file_size_bytes, mime_type, status, retry_count, error_message,
       analysis, created_at, updated_at, processed_at`

// FetchEligible selects the processing queue: pending rows under the
// retry ceiling, oldest first so no scan starves.
func (r *ScanRepository) FetchEligible(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	q := `
SELECT ` + scanColumns + `
FROM mri_scans
WHERE status = ? AND retry_count < ?
ORDER BY created_at ASC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, domain.StatusPending, domain.MaxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScans(rows)
}

// Claim is the compare-and-swap that grants ownership: the UPDATE only
// lands when the row is still in the expected status, so overlapping
// batch runs cannot both win.
func (r *ScanRepository) Claim(ctx context.Context, id domain.ScanID, expected, next domain.Status) (bool, error) {
	const q = `
UPDATE mri_scans
SET status = ?, updated_at = ?
WHERE id = ? AND status = ?;`
	res, err := r.db.ExecContext(ctx, q, next, time.Now().UTC(), id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordFailure writes the retry outcome decided by the policy.
func (r *ScanRepository) RecordFailure(ctx context.Context, id domain.ScanID, status domain.Status, retryCount int, message string, at time.Time) error {
	const q = `
UPDATE mri_scans
SET status = ?, retry_count = ?, error_message = ?, updated_at = ?
WHERE id = ?;`
	_, err := r.db.ExecContext(ctx, q, status, retryCount, message, at, id)
	return err
}

// Insert creates the intake row.
func (r *ScanRepository) Insert(ctx context.Context, s *domain.ScanRecord) error {
	const q = `
INSERT INTO mri_scans
(id, patient_id, uploaded_by, storage_path, original_filename,
 file_size_bytes, mime_type, status, retry_count, error_message,
 analysis, created_at, updated_at, processed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?);`
	analysisJSON, err := marshalAnalysis(s.Analysis)
	if err != nil {
		return err
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err = r.db.ExecContext(ctx, q,
		s.ID, s.PatientID, nullString(s.UploadedBy), s.StoragePath, s.OriginalFilename,
		s.FileSizeBytes, s.MimeType, s.Status, s.RetryCount, nullString(s.ErrorMessage),
		analysisJSON, created, updated, nullTime(s.ProcessedAt),
	)
	return err
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	q := `
SELECT ` + scanColumns + `
FROM mri_scans
WHERE id = ? LIMIT 1;`
	return scanOne(r.db.QueryRowContext(ctx, q, id))
}

// Latest scans, newest first
func (r *ScanRepository) Latest(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
SELECT ` + scanColumns + `
FROM mri_scans
ORDER BY created_at DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScans(rows)
}

// SaveResult marks the scan completed and inserts its derived record in
// a single transaction, so neither write exists without the other.
func (r *ScanRepository) SaveResult(ctx context.Context, id domain.ScanID, a *domain.Analysis, processedAt time.Time, rec *records.DerivedClinicalRecord) error {
	analysisJSON, err := marshalAnalysis(a)
	if err != nil {
		return err
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const updateScan = `
UPDATE mri_scans
SET status = ?, analysis = ?, error_message = NULL, processed_at = ?, updated_at = ?
WHERE id = ?;`
	res, err := tx.ExecContext(ctx, updateScan,
		domain.StatusCompleted, analysisJSON, processedAt, processedAt, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n != 1 {
		return fmt.Errorf("scan %s not found for completion", id)
	}

	const insertRecord = `
INSERT INTO doctor_records
(id, patient_id, doctor_id, mri_scan_id, record_type,
 summary, detailed_notes, content, metadata, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?);`
	if _, err := tx.ExecContext(ctx, insertRecord,
		rec.ID, rec.PatientID, nullString(rec.DoctorID), rec.ScanID, rec.RecordType,
		rec.Summary, rec.DetailedNotes, rec.Content, string(metaJSON), rec.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func collectScans(rows *sql.Rows) ([]*domain.ScanRecord, error) {
	var out []*domain.ScanRecord
	for rows.Next() {
		s, err := scanRecordFrom(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanOne(row *sql.Row) (*domain.ScanRecord, error) {
	return scanRecordFrom(row.Scan)
}

// scanRecordFrom decodes one row; scan is either sql.Row.Scan or
// sql.Rows.Scan.
func scanRecordFrom(scan func(dest ...any) error) (*domain.ScanRecord, error) {
	var (
		s          domain.ScanRecord
		uploadedBy sql.NullString
		errMsg     sql.NullString
		analysis   sql.NullString
		processed  sql.NullTime
	)
	if err := scan(
		&s.ID, &s.PatientID, &uploadedBy, &s.StoragePath, &s.OriginalFilename,
		&s.FileSizeBytes, &s.MimeType, &s.Status, &s.RetryCount, &errMsg,
		&analysis, &s.CreatedAt, &s.UpdatedAt, &processed,
	); err != nil {
		return nil, err
	}
	s.UploadedBy = uploadedBy.String
	s.ErrorMessage = errMsg.String
	if processed.Valid {
		t := processed.Time
		s.ProcessedAt = &t
	}
	if analysis.Valid && analysis.String != "" {
		var a domain.Analysis
		if err := json.Unmarshal([]byte(analysis.String), &a); err == nil {
			s.Analysis = &a
		}
	}
	return &s, nil
}
