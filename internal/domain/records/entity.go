package records

import "time"

// RecordID identifier type
type RecordID string

// Record types written into doctor_records. The chat surface filters
// on mri_summary; doctor_note is the manually entered kind.
const (
	RecordTypeMRISummary = "mri_summary"
	RecordTypeDoctorNote = "doctor_note"
)

// DerivedClinicalRecord is the summary artifact produced from one
// completed analysis, consumed by downstream presentation features.
type DerivedClinicalRecord struct {
	ID            RecordID  `json:"id"`
	PatientID     string    `json:"patient_id"`
	DoctorID      string    `json:"doctor_id,omitempty"`
	ScanID        string    `json:"mri_scan_id"`
	RecordType    string    `json:"record_type"`
	Summary       string    `json:"summary"`
	DetailedNotes string    `json:"detailed_notes"`
	Content       string    `json:"content"`
	Metadata      Metadata  `json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
}

// Metadata carries the raw analysis context alongside the record so the
// chat surface doesn't have to join back to the scan row.
type Metadata struct {
	Model          string `json:"model"`
	JobID          string `json:"job_id"`
	VolumetricData any    `json:"volumetric_data"`
	PatientAge     int    `json:"patient_age"`
	PatientSex     string `json:"patient_sex"`
}
