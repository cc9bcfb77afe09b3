package processor

import (
	"context"
	"io"
	"time"

	"github.com/MindMate-tech/mri-processor/internal/domain/records"
	"github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

// BlobStore fetches the uploaded scan file for submission to the
// analysis service. path is the object key stamped on the scan at
// intake.
type BlobStore interface {
	Fetch(ctx context.Context, path string) (io.ReadCloser, int64, error)
}

// ResultStore persists a completed analysis and its derived clinical
// record as one unit. Implementations back this with a transaction;
// when one side fails the scan must not remain marked completed.
type ResultStore interface {
	SaveResult(ctx context.Context, id scans.ScanID, a *scans.Analysis, processedAt time.Time, rec *records.DerivedClinicalRecord) error
}
