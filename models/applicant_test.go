package models

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicant_TotalRating(t *testing.T) {
	tests := []struct {
		name    string
		base    float64
		benefit *Benefit
		want    float64
	}{
		{name: "no benefit", base: 72.5, want: 72.5},
		{name: "with benefit", base: 72.5, benefit: &Benefit{Name: "Золотая медаль", BonusPoints: 10}, want: 82.5},
		{name: "zero bonus", base: 60, benefit: &Benefit{Name: "Без льгот"}, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Applicant{Details: ApplicationDetails{BaseRating: tt.base}, Benefit: tt.benefit}
			assert.InDelta(t, tt.want, a.TotalRating(), 1e-9)
		})
	}
}

func TestApplicant_TotalRatingFollowsBenefitPoints(t *testing.T) {
	b := &Benefit{Name: "Сирота", BonusPoints: 10}
	first := Applicant{Details: ApplicationDetails{BaseRating: 50}, Benefit: b}
	second := Applicant{Details: ApplicationDetails{BaseRating: 70}, Benefit: b}

	b.BonusPoints = 4

	assert.InDelta(t, 54.0, first.TotalRating(), 1e-9)
	assert.InDelta(t, 74.0, second.TotalRating(), 1e-9)
}

func TestApplicant_FullName(t *testing.T) {
	a := Applicant{LastName: "Иванов", FirstName: "Пётр"}
	assert.Equal(t, "Иванов Пётр", a.FullName())

	a.Patronymic = sql.NullString{String: "Сергеевич", Valid: true}
	assert.Equal(t, "Иванов Пётр Сергеевич", a.FullName())
}

func TestApplicant_Validate(t *testing.T) {
	valid := func() Applicant {
		return Applicant{
			LastName:  "Петрова",
			FirstName: "Анна",
			Phone:     "+7 (949) 123-45-67",
			Details:   ApplicationDetails{Code: "09.02.07", BaseRating: 4.5},
		}
	}

	a := valid()
	require.NoError(t, a.Validate())

	cases := map[string]func(*Applicant){
		"missing last name":  func(a *Applicant) { a.LastName = " " },
		"missing first name": func(a *Applicant) { a.FirstName = "" },
		"missing phone":      func(a *Applicant) { a.Phone = "" },
		"missing code":       func(a *Applicant) { a.Details.Code = "" },
		"negative rating":    func(a *Applicant) { a.Details.BaseRating = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := valid()
			mutate(&a)
			err := a.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
		})
	}
}

func TestNaturalKeys(t *testing.T) {
	assert.Equal(t, KeyOfInstitution(Institution{Name: " Школа №5 ", CityID: 3}),
		KeyOfInstitution(Institution{Name: "Школа №5", CityID: 3}))
	assert.NotEqual(t, KeyOfInstitution(Institution{Name: "Школа №5", CityID: 3}),
		KeyOfInstitution(Institution{Name: "Школа №5", CityID: 4}))
	assert.NotEqual(t, KeyOfParent(Parent{Name: "Иванова", Phone: "1"}),
		KeyOfParent(Parent{Name: "Иванова", Phone: "2"}))
	assert.True(t, KeyOfBenefit(Benefit{Name: "  "}).Empty())
}

func TestCompactionError(t *testing.T) {
	cause := &AnomalyError{Kind: "city", ApplicantID: 4, RefID: 17}
	err := fmt.Errorf("compact: %w", &CompactionError{RunID: "r1", Step: "validate", Err: cause})

	assert.True(t, errors.Is(err, ErrCompactionFailed))
	assert.True(t, errors.Is(err, ErrReferentialAnomaly))

	var ce *CompactionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "validate", ce.Step)
	assert.Contains(t, err.Error(), "applicant 4 references missing city 17")
}
