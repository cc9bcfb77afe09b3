package analysis

// JobID is the external service's opaque handle for one computation.
type JobID string

// JobState enum, mirrors the wire values of the analysis service.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether no further polling can change the state.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// StructureVolume is one measured brain structure.
type StructureVolume struct {
	VolumeMM3  float64 `json:"volume_mm3"`
	Normalized float64 `json:"normalized,omitempty"`
}

// Volumetrics maps structure name (e.g. "hippocampus", "ventricles")
// to its measured volume.
type Volumetrics map[string]StructureVolume

// Result is the payload of a completed job.
type Result struct {
	VolumetricData Volumetrics `json:"volumetric_data"`
	Findings       []string    `json:"findings"`
	PDFReportURL   string      `json:"pdf_report_url,omitempty"`
	CSVReportURL   string      `json:"csv_report_url,omitempty"`
}

// JobStatus is the decoded outcome of one poll. It is a tagged union:
// Result is non-nil only when State is JobCompleted, Reason is set only
// when State is JobFailed. Decoding happens once, at the gateway
// boundary; nothing downstream touches raw JSON.
type JobStatus struct {
	State  JobState
	Result *Result
	Reason string
}
