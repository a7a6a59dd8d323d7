package models

// Institution represents the institution table. An institution is scoped to the
// city it is located in, so two schools with the same name in different cities
// are distinct rows.
type Institution struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	CityID int64  `db:"city_id" json:"city_id"`
	City   *City  `db:"-" json:"city,omitempty"`
}
