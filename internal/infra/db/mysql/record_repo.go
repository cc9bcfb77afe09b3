package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	domain "github.com/MindMate-tech/mri-processor/internal/domain/records"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Insert(ctx context.Context, rec *domain.DerivedClinicalRecord) error {
	const q = `
INSERT INTO doctor_records
(id, patient_id, doctor_id, mri_scan_id, record_type,
 summary, detailed_notes, content, metadata, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?);`
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, rec.PatientID, nullString(rec.DoctorID), rec.ScanID, rec.RecordType,
		rec.Summary, rec.DetailedNotes, rec.Content, string(meta), rec.CreatedAt,
	)
	return err
}

func (r *RecordRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.DerivedClinicalRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, patient_id, doctor_id, mri_scan_id, record_type,
       summary, detailed_notes, content, metadata, created_at
FROM doctor_records
WHERE patient_id = ?
ORDER BY created_at DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.DerivedClinicalRecord
	for rows.Next() {
		var (
			rec    domain.DerivedClinicalRecord
			doctor sql.NullString
			meta   sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.PatientID, &doctor, &rec.ScanID, &rec.RecordType,
			&rec.Summary, &rec.DetailedNotes, &rec.Content, &meta, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.DoctorID = doctor.String
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &rec.Metadata)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
