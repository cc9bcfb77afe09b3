package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MindMate-tech/mri-processor/internal/domain/ai"
	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
	"github.com/MindMate-tech/mri-processor/internal/domain/patients"
	"github.com/MindMate-tech/mri-processor/internal/domain/records"
	"github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

type fakeSummarizer struct {
	narrative string
	err       error
}

func (f *fakeSummarizer) Narrative(ctx context.Context, req ai.NarrativeRequest) (string, error) {
	return f.narrative, f.err
}

func TestStructuralFlags(t *testing.T) {
	tests := []struct {
		name string
		vols analysis.Volumetrics
		want []string
	}{
		{
			name: "hippocampus_below_threshold",
			vols: analysis.Volumetrics{"hippocampus": {VolumeMM3: 6000}},
			want: []string{FlagHippocampalAtrophy},
		},
		{
			name: "ventricles_above_threshold",
			vols: analysis.Volumetrics{"ventricles": {VolumeMM3: 65000}},
			want: []string{FlagVentricularEnlargement},
		},
		{
			name: "both_flags",
			vols: analysis.Volumetrics{
				"hippocampus": {VolumeMM3: 6500},
				"ventricles":  {VolumeMM3: 70000},
			},
			want: []string{FlagHippocampalAtrophy, FlagVentricularEnlargement},
		},
		{
			name: "normal_volumes",
			vols: analysis.Volumetrics{
				"hippocampus": {VolumeMM3: 7500},
				"ventricles":  {VolumeMM3: 40000},
			},
			want: nil,
		},
		{
			name: "zero_hippocampus_not_flagged",
			vols: analysis.Volumetrics{"hippocampus": {VolumeMM3: 0}},
			want: nil,
		},
		{
			name: "missing_structures",
			vols: analysis.Volumetrics{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StructuralFlags(tt.vols))
		})
	}
}

func testScan() *scans.ScanRecord {
	return &scans.ScanRecord{
		ID:               "S1",
		PatientID:        "p-1",
		UploadedBy:       "d-1",
		OriginalFilename: "brain.nii.gz",
		Status:           scans.StatusProcessing,
		CreatedAt:        time.Date(2025, 5, 30, 8, 0, 0, 0, time.UTC),
	}
}

func TestMaterialize_PersistsAnalysisAndRecord(t *testing.T) {
	results := &mockResultStore{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &ResultMaterializer{
		Results: results,
		Clock:   fixedClock{now: now},
		Log:     zerolog.Nop(),
	}

	res := &analysis.Result{
		VolumetricData: analysis.Volumetrics{"hippocampus": {VolumeMM3: 6000}},
		Findings:       []string{"mild recall deficit"},
		PDFReportURL:   "https://reports/j1.pdf",
	}
	patient := &patients.Patient{PatientID: "p-1", Name: "Jane Roe"}

	err := m.Materialize(context.Background(), testScan(), patient, "J1", res, 64, "Female")
	require.NoError(t, err)
	require.Len(t, results.saved, 1)

	saved := results.saved[0]
	assert.Equal(t, now, saved.ProcessedAt)
	assert.Equal(t, ModelName, saved.Analysis.Model)
	assert.Equal(t, 64, saved.Analysis.PatientAge)
	assert.Equal(t, "Female", saved.Analysis.PatientSex)
	assert.Equal(t, []string{"mild recall deficit", FlagHippocampalAtrophy}, saved.Analysis.Findings)
	assert.Equal(t, []string{FlagHippocampalAtrophy}, saved.Analysis.StructuralFlags)
	assert.Equal(t, "https://reports/j1.pdf", saved.Analysis.PDFReportURL)

	rec := saved.Record
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "p-1", rec.PatientID)
	assert.Equal(t, "d-1", rec.DoctorID)
	assert.Equal(t, "S1", rec.ScanID)
	assert.Equal(t, records.RecordTypeMRISummary, rec.RecordType)
	assert.Equal(t, "MRI analysis completed: 1 findings, 1 structural observations", rec.Summary)
	assert.Contains(t, rec.DetailedNotes, "Key Findings:")
	assert.Contains(t, rec.DetailedNotes, "1. mild recall deficit")
	assert.Contains(t, rec.DetailedNotes, "Structural Observations:")
	assert.Contains(t, rec.DetailedNotes, FlagHippocampalAtrophy)
	assert.Contains(t, rec.Content, "Jane Roe")
	assert.Contains(t, rec.Content, "Age: 64 years | Sex: Female")
	assert.Contains(t, rec.Content, "Full Report: https://reports/j1.pdf")
	assert.Equal(t, "J1", rec.Metadata.JobID)
}

func TestMaterialize_UnknownPatientName(t *testing.T) {
	results := &mockResultStore{}
	m := &ResultMaterializer{
		Results: results,
		Clock:   fixedClock{now: time.Now()},
		Log:     zerolog.Nop(),
	}

	err := m.Materialize(context.Background(), testScan(), nil, "J1", &analysis.Result{VolumetricData: analysis.Volumetrics{}}, 50, "Male")
	require.NoError(t, err)
	require.Len(t, results.saved, 1)
	assert.Contains(t, results.saved[0].Record.Content, "Patient: Unknown")
}

func TestMaterialize_SummarizerNarrativeAppended(t *testing.T) {
	results := &mockResultStore{}
	m := &ResultMaterializer{
		Results:    results,
		Summarizer: &fakeSummarizer{narrative: "Volumes are mildly reduced."},
		Clock:      fixedClock{now: time.Now()},
		Log:        zerolog.Nop(),
	}

	err := m.Materialize(context.Background(), testScan(), nil, "J1", &analysis.Result{VolumetricData: analysis.Volumetrics{}}, 50, "Male")
	require.NoError(t, err)
	assert.Contains(t, results.saved[0].Record.Content, "Volumes are mildly reduced.")
}

func TestMaterialize_SummarizerFailureIgnored(t *testing.T) {
	results := &mockResultStore{}
	m := &ResultMaterializer{
		Results:    results,
		Summarizer: &fakeSummarizer{err: errors.New("quota exceeded")},
		Clock:      fixedClock{now: time.Now()},
		Log:        zerolog.Nop(),
	}

	err := m.Materialize(context.Background(), testScan(), nil, "J1", &analysis.Result{VolumetricData: analysis.Volumetrics{}}, 50, "Male")
	require.NoError(t, err, "narrative failures must never fail the materialization")
	require.Len(t, results.saved, 1)
}

func TestMaterialize_SaveFailureIsPersistenceError(t *testing.T) {
	results := &mockResultStore{
		saveFunc: func(ctx context.Context, id scans.ScanID, a *scans.Analysis, processedAt time.Time, rec *records.DerivedClinicalRecord) error {
			return errors.New("duplicate key")
		},
	}
	m := &ResultMaterializer{
		Results: results,
		Clock:   fixedClock{now: time.Now()},
		Log:     zerolog.Nop(),
	}

	err := m.Materialize(context.Background(), testScan(), nil, "J1", &analysis.Result{VolumetricData: analysis.Volumetrics{}}, 50, "Male")
	require.Error(t, err)

	var perr *scans.PersistenceError
	assert.ErrorAs(t, err, &perr)
}
