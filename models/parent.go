package models

// DefaultRelation is stored when the relation to the applicant is not given.
const DefaultRelation = "Родитель"

// Parent represents the parent table
type Parent struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Phone    string `db:"phone" json:"phone"`
	Relation string `db:"relation" json:"relation"`
}
