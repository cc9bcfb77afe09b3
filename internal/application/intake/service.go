package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MindMate-tech/mri-processor/internal/application/processor"
	domain "github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

// Service implements the intake and read use-cases around scans. The
// orchestrator owns everything after intake.
type Service struct {
	Repo  domain.Repository
	Clock processor.Clock
}

// SaveMetadataCommand registers an already-uploaded scan blob.
type SaveMetadataCommand struct {
	PatientID string
	DoctorID  string
	BlobPath  string
	Filename  string
	FileSize  int64
	MimeType  string
}

// ValidationError marks a rejected intake request; the HTTP layer maps
// it to 400.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// fileExtensions accepted at intake, matching what the upload token
// issuer allows.
var fileExtensions = []string{".dcm", ".nii", ".nii.gz", ".zip"}

// SaveMetadata validates the intake request and creates the pending
// scan record the processor will later pick up.
func (s *Service) SaveMetadata(ctx context.Context, cmd SaveMetadataCommand) (*domain.ScanRecord, error) {
	if cmd.PatientID == "" {
		return nil, &ValidationError{Message: "patientId is required."}
	}
	if cmd.BlobPath == "" || cmd.Filename == "" {
		return nil, &ValidationError{Message: "blobUrl and filename are required."}
	}
	lower := strings.ToLower(cmd.Filename)
	valid := false
	for _, ext := range fileExtensions {
		if strings.HasSuffix(lower, ext) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, &ValidationError{Message: "Invalid file type. Only DICOM, NIfTI, and ZIP files are allowed."}
	}

	now := s.Clock.Now()
	mime := cmd.MimeType
	if mime == "" {
		mime = "application/x-gzip"
	}

	scan := &domain.ScanRecord{
		ID:               domain.ScanID(uuid.New().String()),
		PatientID:        cmd.PatientID,
		UploadedBy:       cmd.DoctorID,
		StoragePath:      cmd.BlobPath,
		OriginalFilename: cmd.Filename,
		FileSizeBytes:    cmd.FileSize,
		MimeType:         mime,
		Status:           domain.StatusPending,
		RetryCount:       0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Insert(ctx, scan); err != nil {
		return nil, fmt.Errorf("insert scan record: %w", err)
	}
	return scan, nil
}

// Latest returns the N most recent scans.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	return s.Repo.Latest(ctx, limit)
}

// Get returns one scan by id.
func (s *Service) Get(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	return s.Repo.Get(ctx, id)
}
