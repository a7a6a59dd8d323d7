package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/applicant_registry/models"
)

func TestRegistry_Filter(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, backends["memory"](t))

	a := input("Алексеев", 80, true)
	a.City, a.Benefit, a.DormitoryNeeded = "Донецк", "Сирота", true
	b := input("Борисов", 70, false)
	b.City, b.Institution = "Макеевка", "Донецкий колледж"
	c := input("Власов", 60, true)
	c.City, c.Institution, c.Benefit = "Донецк", "", "Участник СВО"
	for _, in := range []ApplicantInput{a, b, c} {
		_, err := r.Add(ctx, in)
		require.NoError(t, err)
	}

	tests := []struct {
		field FilterField
		value string
		want  []string
	}{
		{FilterCity, "донецк", []string{"Алексеев", "Власов"}},
		{FilterCity, "Донец", nil},
		{FilterDormitory, "да", []string{"Алексеев"}},
		{FilterDormitory, "н", []string{"Борисов", "Власов"}},
		{FilterOriginals, "yes", []string{"Алексеев", "Власов"}},
		{FilterOriginals, "нет", []string{"Борисов"}},
		{FilterBenefit, "сво", []string{"Власов"}},
		{FilterBenefit, "", []string{"Алексеев", "Борисов", "Власов"}},
		{FilterInstitution, "КОЛЛЕДЖ", []string{"Борисов"}},
		{FilterInstitution, "школа", []string{"Алексеев"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.field)+"="+tt.value, func(t *testing.T) {
			got, err := r.Filter(tt.field, tt.value)
			require.NoError(t, err)
			var names []string
			for _, ap := range got {
				names = append(names, ap.LastName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRegistry_FilterInvalid(t *testing.T) {
	r := newRegistry(t, backends["memory"](t))

	_, err := r.Filter("phone", "1")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = r.Filter(FilterDormitory, "может быть")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
