package models

import "database/sql"

// ApplicationDetails represents the application_details table. Only the base
// rating is stored; bonus points come from the referenced benefit.
type ApplicationDetails struct {
	ID             int64         `db:"id" json:"id"`
	ApplicantID    int64         `db:"applicant_id" json:"applicant_id"`
	Code           string        `db:"code" json:"code"`
	BaseRating     float64       `db:"base_rating" json:"base_rating"`
	HasOriginal    bool          `db:"has_original" json:"has_original"`
	SubmissionDate sql.NullTime  `db:"submission_date" json:"submission_date,omitempty"`
	BenefitID      sql.NullInt64 `db:"benefit_id" json:"benefit_id,omitempty"`
}
