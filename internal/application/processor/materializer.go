package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MindMate-tech/mri-processor/internal/domain/ai"
	"github.com/MindMate-tech/mri-processor/internal/domain/analysis"
	"github.com/MindMate-tech/mri-processor/internal/domain/patients"
	"github.com/MindMate-tech/mri-processor/internal/domain/records"
	"github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

// ModelName is stamped into every persisted analysis and derived record.
const ModelName = "AssemblyNet-1.0.0"

// Volume thresholds (mm3) for the deterministic structural flags.
const (
	hippocampusAtrophyBelow = 7000
	ventriclesEnlargedAbove = 60000
)

// Flag texts surfaced in the stored analysis and the derived record.
const (
	FlagHippocampalAtrophy     = "Possible hippocampal atrophy detected"
	FlagVentricularEnlargement = "Ventricular enlargement noted"
)

// ResultMaterializer turns one completed job payload into the persisted
// analysis fields and exactly one derived clinical record.
type ResultMaterializer struct {
	Results ResultStore
	// Summarizer is optional. When present its narrative is appended to
	// the record content; a failing call is logged and ignored because
	// it must never fail the materialization.
	Summarizer ai.Summarizer
	Clock      Clock
	Log        zerolog.Logger
}

// StructuralFlags applies the fixed threshold rules to the measured
// volumes. A missing structure produces no flag.
func StructuralFlags(vols analysis.Volumetrics) []string {
	var flags []string
	if h, ok := vols["hippocampus"]; ok && h.VolumeMM3 > 0 && h.VolumeMM3 < hippocampusAtrophyBelow {
		flags = append(flags, FlagHippocampalAtrophy)
	}
	if v, ok := vols["ventricles"]; ok && v.VolumeMM3 > ventriclesEnlargedAbove {
		flags = append(flags, FlagVentricularEnlargement)
	}
	return flags
}

// Materialize persists the analysis onto the scan, marks it completed
// and inserts the derived record. The two writes go through ResultStore
// as one unit; any error is a pipeline failure for the retry policy.
func (m *ResultMaterializer) Materialize(ctx context.Context, scan *scans.ScanRecord, patient *patients.Patient, jobID analysis.JobID, res *analysis.Result, age int, sex string) error {
	now := m.Clock.Now()
	flags := StructuralFlags(res.VolumetricData)

	findings := make([]string, 0, len(res.Findings)+len(flags))
	findings = append(findings, res.Findings...)
	findings = append(findings, flags...)

	a := &scans.Analysis{
		JobID:           string(jobID),
		Model:           ModelName,
		PatientAge:      age,
		PatientSex:      sex,
		VolumetricData:  res.VolumetricData,
		Findings:        findings,
		StructuralFlags: flags,
		PDFReportURL:    res.PDFReportURL,
		CSVReportURL:    res.CSVReportURL,
		ProcessedAt:     now,
	}

	notes := buildNotes(res.Findings, flags)

	patientName := "Unknown"
	if patient != nil && patient.Name != "" {
		patientName = patient.Name
	}
	content := buildContent(scan, patientName, age, sex, notes, res.PDFReportURL)

	if m.Summarizer != nil {
		narrative, err := m.Summarizer.Narrative(ctx, ai.NarrativeRequest{
			PatientName: patientName,
			Age:         age,
			Sex:         sex,
			Findings:    res.Findings,
			Flags:       flags,
		})
		if err != nil {
			m.Log.Warn().Err(err).Str("scan_id", string(scan.ID)).Msg("Narrative generation failed, keeping deterministic summary")
		} else if narrative != "" {
			content += "\n\nClinical Narrative:\n" + narrative
		}
	}

	rec := &records.DerivedClinicalRecord{
		ID:         records.RecordID(uuid.New().String()),
		PatientID:  scan.PatientID,
		DoctorID:   scan.UploadedBy,
		ScanID:     string(scan.ID),
		RecordType: records.RecordTypeMRISummary,
		Summary: fmt.Sprintf("MRI analysis completed: %d findings, %d structural observations",
			len(res.Findings), len(flags)),
		DetailedNotes: notes,
		Content:       content,
		Metadata: records.Metadata{
			Model:          ModelName,
			JobID:          string(jobID),
			VolumetricData: res.VolumetricData,
			PatientAge:     age,
			PatientSex:     sex,
		},
		CreatedAt: now,
	}

	if err := m.Results.SaveResult(ctx, scan.ID, a, now, rec); err != nil {
		return &scans.PersistenceError{Op: "save analysis result", Err: err}
	}
	return nil
}

func buildNotes(findings, flags []string) string {
	var b strings.Builder
	b.WriteString("MRI volumetric analysis completed using AssemblyNet.")

	if len(findings) > 0 {
		b.WriteString("\n\nKey Findings:")
		for i, f := range findings {
			fmt.Fprintf(&b, "\n%d. %s", i+1, f)
		}
	}
	if len(flags) > 0 {
		b.WriteString("\n\nStructural Observations:")
		for i, f := range flags {
			fmt.Fprintf(&b, "\n%d. %s", i+1, f)
		}
	}
	return b.String()
}

func buildContent(scan *scans.ScanRecord, patientName string, age int, sex, notes, pdfURL string) string {
	var b strings.Builder
	b.WriteString("MRI Volumetric Analysis (AssemblyNet)\n")
	fmt.Fprintf(&b, "Patient: %s\n", patientName)
	fmt.Fprintf(&b, "Age: %d years | Sex: %s\n", age, sex)
	fmt.Fprintf(&b, "Scan Date: %s\n", scan.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "File: %s\n", scan.OriginalFilename)
	b.WriteString("\n")
	b.WriteString(notes)
	if pdfURL != "" {
		fmt.Fprintf(&b, "\n\nFull Report: %s", pdfURL)
	}
	return b.String()
}
