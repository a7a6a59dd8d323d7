package models

import (
	"database/sql"
	"fmt"
	"strings"
)

// Applicant represents the applicant table together with its one-to-one
// detail rows. The resolved references are filled by snapshot reads and are
// never written back.
type Applicant struct {
	ID            int64          `db:"id" json:"id"`
	LastName      string         `db:"last_name" json:"last_name"`
	FirstName     string         `db:"first_name" json:"first_name"`
	Patronymic    sql.NullString `db:"patronymic" json:"patronymic,omitempty"`
	Phone         string         `db:"phone" json:"phone"`
	VK            sql.NullString `db:"vk" json:"vk,omitempty"`
	CityID        sql.NullInt64  `db:"city_id" json:"city_id,omitempty"`
	InstitutionID sql.NullInt64  `db:"institution_id" json:"institution_id,omitempty"`
	ParentID      sql.NullInt64  `db:"parent_id" json:"parent_id,omitempty"`

	Details ApplicationDetails `db:"-" json:"details"`
	Info    AdditionalInfo     `db:"-" json:"info"`

	// BenefitIDs lists the association rows held by the applicant, ascending.
	BenefitIDs []int64 `db:"-" json:"benefit_ids,omitempty"`

	City        *City              `db:"-" json:"city,omitempty"`
	Region      *Region            `db:"-" json:"region,omitempty"`
	Institution *Institution       `db:"-" json:"institution,omitempty"`
	Parent      *Parent            `db:"-" json:"parent,omitempty"`
	Benefit     *Benefit           `db:"-" json:"benefit,omitempty"`
	Source      *InformationSource `db:"-" json:"source,omitempty"`
}

// TotalRating is the base rating plus the bonus points of the applicant's
// benefit. It is always derived and never stored.
func (a *Applicant) TotalRating() float64 {
	if a.Benefit == nil {
		return a.Details.BaseRating
	}
	return a.Details.BaseRating + float64(a.Benefit.BonusPoints)
}

// HasOriginalDocuments reports whether the applicant submitted originals.
func (a *Applicant) HasOriginalDocuments() bool {
	return a.Details.HasOriginal
}

// FullName joins last name, first name and patronymic.
func (a *Applicant) FullName() string {
	parts := []string{a.LastName, a.FirstName}
	if a.Patronymic.Valid && strings.TrimSpace(a.Patronymic.String) != "" {
		parts = append(parts, a.Patronymic.String)
	}
	return strings.Join(parts, " ")
}

// CityName returns the resolved city name or an empty string.
func (a *Applicant) CityName() string {
	if a.City == nil {
		return ""
	}
	return a.City.Name
}

// RegionName returns the resolved region name or an empty string.
func (a *Applicant) RegionName() string {
	if a.Region == nil {
		return ""
	}
	return a.Region.Name
}

// BenefitName returns the resolved benefit name or an empty string.
func (a *Applicant) BenefitName() string {
	if a.Benefit == nil {
		return ""
	}
	return a.Benefit.Name
}

// SourceName returns the resolved information source name or an empty string.
func (a *Applicant) SourceName() string {
	if a.Source == nil {
		return ""
	}
	return a.Source.Name
}

// Validate checks the fields required by the applicant table.
func (a *Applicant) Validate() error {
	if strings.TrimSpace(a.LastName) == "" {
		return fmt.Errorf("last name is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(a.FirstName) == "" {
		return fmt.Errorf("first name is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(a.Phone) == "" {
		return fmt.Errorf("phone is required: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(a.Details.Code) == "" {
		return fmt.Errorf("program code is required: %w", ErrInvalidArgument)
	}
	if a.Details.BaseRating < 0 {
		return fmt.Errorf("base rating %.2f is negative: %w", a.Details.BaseRating, ErrInvalidArgument)
	}
	return nil
}
