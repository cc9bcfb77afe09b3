package processor

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
	"github.com/MindMate-tech/mri-processor/internal/domain/patients"
	"github.com/MindMate-tech/mri-processor/internal/domain/records"
	"github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

type mockScanRepo struct {
	fetchFunc func(ctx context.Context, limit int) ([]*scans.ScanRecord, error)
	claimFunc func(ctx context.Context, id scans.ScanID, expected, next scans.Status) (bool, error)

	failures []failureCall
}

type failureCall struct {
	ID         scans.ScanID
	Status     scans.Status
	RetryCount int
	Message    string
}

func (m *mockScanRepo) FetchEligible(ctx context.Context, limit int) ([]*scans.ScanRecord, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockScanRepo) Claim(ctx context.Context, id scans.ScanID, expected, next scans.Status) (bool, error) {
	if m.claimFunc != nil {
		return m.claimFunc(ctx, id, expected, next)
	}
	return true, nil
}

func (m *mockScanRepo) RecordFailure(ctx context.Context, id scans.ScanID, status scans.Status, retryCount int, message string, at time.Time) error {
	m.failures = append(m.failures, failureCall{ID: id, Status: status, RetryCount: retryCount, Message: message})
	return nil
}

func (m *mockScanRepo) Insert(ctx context.Context, s *scans.ScanRecord) error { return nil }

func (m *mockScanRepo) Get(ctx context.Context, id scans.ScanID) (*scans.ScanRecord, error) {
	return nil, nil
}

func (m *mockScanRepo) Latest(ctx context.Context, limit int) ([]*scans.ScanRecord, error) {
	return nil, nil
}

type mockPatientRepo struct {
	getFunc func(ctx context.Context, id string) (*patients.Patient, error)
}

func (m *mockPatientRepo) Get(ctx context.Context, id string) (*patients.Patient, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockPatientRepo) List(ctx context.Context) ([]*patients.Patient, error) { return nil, nil }
func (m *mockPatientRepo) Count(ctx context.Context) (int, error)                { return 0, nil }

type mockBlobStore struct {
	fetchFunc func(ctx context.Context, path string) (io.ReadCloser, int64, error)
}

func (m *mockBlobStore) Fetch(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, path)
	}
	return io.NopCloser(bytes.NewReader([]byte("nifti-bytes"))), 11, nil
}

type mockGateway struct {
	submitFunc func(ctx context.Context, req analysis.SubmitRequest) (analysis.JobID, error)
	pollFunc   func(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error)
}

func (m *mockGateway) Submit(ctx context.Context, req analysis.SubmitRequest) (analysis.JobID, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, req)
	}
	return "job-1", nil
}

func (m *mockGateway) Poll(ctx context.Context, id analysis.JobID) (analysis.JobStatus, error) {
	if m.pollFunc != nil {
		return m.pollFunc(ctx, id)
	}
	return analysis.JobStatus{State: analysis.JobCompleted, Result: &analysis.Result{VolumetricData: analysis.Volumetrics{}}}, nil
}

type savedResult struct {
	ID          scans.ScanID
	Analysis    *scans.Analysis
	ProcessedAt time.Time
	Record      *records.DerivedClinicalRecord
}

type mockResultStore struct {
	saveFunc func(ctx context.Context, id scans.ScanID, a *scans.Analysis, processedAt time.Time, rec *records.DerivedClinicalRecord) error

	saved []savedResult
}

func (m *mockResultStore) SaveResult(ctx context.Context, id scans.ScanID, a *scans.Analysis, processedAt time.Time, rec *records.DerivedClinicalRecord) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, id, a, processedAt, rec); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, savedResult{ID: id, Analysis: a, ProcessedAt: processedAt, Record: rec})
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }
