package patients

import "context"

// Repository port (read-only; patients are created outside this core)
type Repository interface {
	Get(ctx context.Context, patientID string) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	Count(ctx context.Context) (int, error)
}
