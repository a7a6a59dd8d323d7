package models

import "database/sql"

// AdditionalInfo represents the additional_info table
type AdditionalInfo struct {
	ID              int64          `db:"id" json:"id"`
	ApplicantID     int64          `db:"applicant_id" json:"applicant_id"`
	DepartmentVisit sql.NullTime   `db:"department_visit" json:"department_visit,omitempty"`
	Notes           sql.NullString `db:"notes" json:"notes,omitempty"`
	SourceID        sql.NullInt64  `db:"source_id" json:"source_id,omitempty"`
	DormitoryNeeded bool           `db:"dormitory_needed" json:"dormitory_needed"`
}
