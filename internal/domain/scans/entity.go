package scans

import (
	"time"

	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
)

// ID type for ScanRecord
type ScanID string

// Status enum
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// MaxRetries is the terminal retry ceiling: a scan whose retry count
// reaches it is never selected again.
const MaxRetries = 3

// Analysis is the structured payload persisted onto a scan once the
// external volumetric job completes.
type Analysis struct {
	JobID           string               `json:"job_id"`
	Model           string               `json:"model"`
	PatientAge      int                  `json:"patient_age"`
	PatientSex      string               `json:"patient_sex"`
	VolumetricData  analysis.Volumetrics `json:"volumetric_data"`
	Findings        []string             `json:"findings"`
	StructuralFlags []string             `json:"structural_flags,omitempty"`
	PDFReportURL    string               `json:"pdf_report_url,omitempty"`
	CSVReportURL    string               `json:"csv_report_url,omitempty"`
	ProcessedAt     time.Time            `json:"processed_at"`
}

// Aggregate Root: ScanRecord, one uploaded imaging study.
type ScanRecord struct {
	ID               ScanID     `json:"id"`
	PatientID        string     `json:"patient_id"`
	UploadedBy       string     `json:"uploaded_by,omitempty"`
	StoragePath      string     `json:"storage_path"`
	OriginalFilename string     `json:"original_filename"`
	FileSizeBytes    int64      `json:"file_size_bytes,omitempty"`
	MimeType         string     `json:"mime_type,omitempty"`
	Status           Status     `json:"status"`
	RetryCount       int        `json:"retry_count"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	Analysis         *Analysis  `json:"analysis,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// Eligible reports whether the scan may enter a processing attempt.
func (s *ScanRecord) Eligible() bool {
	return s.Status == StatusPending && s.RetryCount < MaxRetries
}
