package mysql

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/MindMate-tech/mri-processor/internal/domain/scans"
)

// nullString maps "" to NULL so optional columns stay NULL-able
func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// marshalAnalysis serializes the analysis payload, NULL when absent
func marshalAnalysis(a *domain.Analysis) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
