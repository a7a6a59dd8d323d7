package models

import "strings"

// NaturalKey identifies a reference row independently of its surrogate id.
// Scope holds the owning row for scoped dimensions (region of a city, city of
// an institution) and is zero otherwise. Phone is only used by parents.
type NaturalKey struct {
	Name  string
	Phone string
	Scope int64
}

func normalize(s string) string {
	return strings.TrimSpace(s)
}

// Empty reports whether the key carries no name.
func (k NaturalKey) Empty() bool {
	return k.Name == ""
}

// KeyOfRegion returns the natural key of a region.
func KeyOfRegion(r Region) NaturalKey {
	return NaturalKey{Name: normalize(r.Name)}
}

// KeyOfCity returns the natural key of a city: name within its region.
func KeyOfCity(c City) NaturalKey {
	return NaturalKey{Name: normalize(c.Name), Scope: c.RegionID}
}

// KeyOfInstitution returns the natural key of an institution: name within its city.
func KeyOfInstitution(i Institution) NaturalKey {
	return NaturalKey{Name: normalize(i.Name), Scope: i.CityID}
}

// KeyOfParent returns the natural key of a parent: name and phone.
func KeyOfParent(p Parent) NaturalKey {
	return NaturalKey{Name: normalize(p.Name), Phone: normalize(p.Phone)}
}

// KeyOfBenefit returns the natural key of a benefit.
func KeyOfBenefit(b Benefit) NaturalKey {
	return NaturalKey{Name: normalize(b.Name)}
}

// KeyOfInformationSource returns the natural key of an information source.
func KeyOfInformationSource(s InformationSource) NaturalKey {
	return NaturalKey{Name: normalize(s.Name)}
}
