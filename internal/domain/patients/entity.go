package patients

import "time"

// Patient holds the demographics the analysis model and the derived
// record need. rows are owned by the intake side; this core only reads.
type Patient struct {
	PatientID string     `json:"patient_id"`
	Name      string     `json:"name"`
	DOB       *time.Time `json:"dob,omitempty"`
	Sex       string     `json:"sex,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Defaults used when a patient row is missing or incomplete.
const (
	DefaultAge = 50
	DefaultSex = "Male"
)

// Demographics resolves age and sex for the analysis submission. Age is
// computed from DOB against now; sex falls back through the legacy
// gender column before defaulting.
func (p *Patient) Demographics(now time.Time) (int, string) {
	if p == nil {
		return DefaultAge, DefaultSex
	}
	sex := p.Sex
	if sex == "" {
		sex = p.Gender
	}
	if sex == "" {
		sex = DefaultSex
	}
	age := DefaultAge
	if p.DOB != nil {
		age = now.Year() - p.DOB.Year()
		if now.Month() < p.DOB.Month() ||
			(now.Month() == p.DOB.Month() && now.Day() < p.DOB.Day()) {
			age--
		}
	}
	return age, sex
}
