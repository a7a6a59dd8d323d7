package models

// InformationSource represents the information_source table
type InformationSource struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
