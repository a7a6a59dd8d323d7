package models

// City represents the city table
type City struct {
	ID       int64   `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	RegionID int64   `db:"region_id" json:"region_id"`
	Region   *Region `db:"-" json:"region,omitempty"`
}
