package records

import "context"

// Repository defines persistence for derived clinical records
type Repository interface {
	Insert(ctx context.Context, r *DerivedClinicalRecord) error
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*DerivedClinicalRecord, error)
}
