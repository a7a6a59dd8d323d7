package models

// Region represents the region table
type Region struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
