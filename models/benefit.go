package models

// Benefit represents the benefit table. BonusPoints belongs to the benefit
// definition: changing it changes the total rating of every applicant holding
// the benefit.
type Benefit struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	BonusPoints int    `db:"bonus_points" json:"bonus_points"`
}

// BenefitLink represents one row of the applicant_benefit association table
type BenefitLink struct {
	ApplicantID int64 `db:"applicant_id" json:"applicant_id"`
	BenefitID   int64 `db:"benefit_id" json:"benefit_id"`
}
