package registry

import (
	"fmt"
	"strings"

	"github.com/nonsonwune/applicant_registry/models"
)

// FilterField names the attribute Filter matches on.
type FilterField string

const (
	// FilterCity matches the city name exactly, ignoring case.
	FilterCity FilterField = "city"
	// FilterDormitory and FilterOriginals take a yes/no value.
	FilterDormitory FilterField = "dormitory"
	FilterOriginals FilterField = "originals"
	// FilterBenefit and FilterInstitution match a substring, ignoring case.
	FilterBenefit     FilterField = "benefit"
	FilterInstitution FilterField = "institution"
)

// FilterFields lists the fields in menu order.
var FilterFields = []FilterField{FilterCity, FilterDormitory, FilterOriginals, FilterBenefit, FilterInstitution}

// Label is the Russian name of the field.
func (f FilterField) Label() string {
	switch f {
	case FilterCity:
		return "Город"
	case FilterDormitory:
		return "Общежитие"
	case FilterOriginals:
		return "Оригинал документов"
	case FilterBenefit:
		return "Льгота"
	case FilterInstitution:
		return "Учебное заведение"
	}
	return string(f)
}

// Filter returns the applicants whose field matches value, in list order.
func (r *Registry) Filter(field FilterField, value string) ([]models.Applicant, error) {
	match, err := matcher(field, strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Applicant
	for i := range r.applicants {
		if match(&r.applicants[i]) {
			out = append(out, r.applicants[i])
		}
	}
	return out, nil
}

func matcher(field FilterField, value string) (func(*models.Applicant) bool, error) {
	lower := strings.ToLower(value)
	switch field {
	case FilterCity:
		return func(a *models.Applicant) bool { return strings.EqualFold(a.CityName(), value) }, nil
	case FilterBenefit:
		return func(a *models.Applicant) bool {
			return strings.Contains(strings.ToLower(a.BenefitName()), lower)
		}, nil
	case FilterInstitution:
		return func(a *models.Applicant) bool {
			var name string
			if a.Institution != nil {
				name = a.Institution.Name
			}
			return strings.Contains(strings.ToLower(name), lower)
		}, nil
	case FilterDormitory, FilterOriginals:
		want, err := parseYesNo(lower)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.Label(), err)
		}
		if field == FilterDormitory {
			return func(a *models.Applicant) bool { return a.Info.DormitoryNeeded == want }, nil
		}
		return func(a *models.Applicant) bool { return a.HasOriginalDocuments() == want }, nil
	}
	return nil, fmt.Errorf("filter field %q: %w", field, models.ErrInvalidArgument)
}

func parseYesNo(s string) (bool, error) {
	switch s {
	case "д", "да", "y", "yes", "true", "1":
		return true, nil
	case "н", "нет", "n", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%q is not yes or no: %w", s, models.ErrInvalidArgument)
}
