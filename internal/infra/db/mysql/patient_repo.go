package mysql

import (
	"context"
	"database/sql"

	domain "github.com/MindMate-tech/mri-processor/internal/domain/patients"
)

type PatientRepository struct {
	db *sql.DB
}

func NewPatientRepository(db *sql.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Get(ctx context.Context, patientID string) (*domain.Patient, error) {
	const q = `
SELECT patient_id, name, dob, sex, gender, created_at
FROM patients
WHERE patient_id = ? LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, patientID)
	return patientFrom(row.Scan)
}

// List returns all patients, newest first.
func (r *PatientRepository) List(ctx context.Context) ([]*domain.Patient, error) {
	const q = `
SELECT patient_id, name, dob, sex, gender, created_at
FROM patients
ORDER BY created_at DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Patient
	for rows.Next() {
		p, err := patientFrom(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PatientRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients;`).Scan(&n)
	return n, err
}

func patientFrom(scan func(dest ...any) error) (*domain.Patient, error) {
	var (
		p      domain.Patient
		dob    sql.NullTime
		sex    sql.NullString
		gender sql.NullString
	)
	if err := scan(&p.PatientID, &p.Name, &dob, &sex, &gender, &p.CreatedAt); err != nil {
		return nil, err
	}
	if dob.Valid {
		t := dob.Time
		p.DOB = &t
	}
	p.Sex = sex.String
	p.Gender = gender.String
	return &p, nil
}
