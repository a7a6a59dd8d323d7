package reports

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/applicant_registry/models"
)

var (
	dnr       = &models.Region{ID: 1, Name: "Донецкая народная республика"}
	donetsk   = &models.City{ID: 1, Name: "Донецк", RegionID: 1}
	makeevka  = &models.City{ID: 2, Name: "Макеевка", RegionID: 1}
	fair      = &models.InformationSource{ID: 1, Name: "Ярмарка образования"}
	other     = &models.InformationSource{ID: 2, Name: "Другое"}
	orphan    = &models.Benefit{ID: 1, Name: "Сирота", BonusPoints: 10}
	svo       = &models.Benefit{ID: 2, Name: "Участник СВО", BonusPoints: 5}
	noBenefit = &models.Benefit{ID: 3, Name: "Без льгот"}
)

type option func(*models.Applicant)

func inCity(c *models.City) option {
	return func(a *models.Applicant) {
		a.City = c
		a.Region = dnr
	}
}

func from(s *models.InformationSource) option {
	return func(a *models.Applicant) { a.Source = s }
}

func holding(b *models.Benefit) option {
	return func(a *models.Applicant) {
		a.Benefit = b
		a.BenefitIDs = append(a.BenefitIDs, b.ID)
	}
}

func dormitory(a *models.Applicant) { a.Info.DormitoryNeeded = true }

func applicant(rating float64, original bool, opts ...option) models.Applicant {
	a := models.Applicant{
		LastName:  "Иванов",
		FirstName: "Иван",
		Details:   models.ApplicationDetails{BaseRating: rating, HasOriginal: original, Code: "09.02.07"},
	}
	for _, o := range opts {
		o(&a)
	}
	return a
}

func TestPassingScoreForecast(t *testing.T) {
	list := []models.Applicant{
		applicant(90, true),
		applicant(70, true),
		applicant(100, false),
		applicant(80, true),
		applicant(85, true),
		applicant(75, true),
	}
	f, err := PassingScoreForecast(list)
	require.NoError(t, err)

	assert.Equal(t, 5, f.Count)
	assert.InDelta(t, 80, f.Mean, 1e-9)
	assert.InDelta(t, 80, f.Median, 1e-9)
	assert.InDelta(t, math.Sqrt(50), f.StdDev, 1e-9)
	assert.InDelta(t, 70, f.Min, 1e-9)
	assert.InDelta(t, 90, f.Max, 1e-9)
	assert.InDelta(t, 75, f.Q1, 1e-9)
	assert.InDelta(t, 85, f.Q3, 1e-9)
	assert.InDelta(t, 85, f.Predicted, 1e-9)
	assert.InDelta(t, 80+math.Sqrt(50), f.Safe, 1e-9)
}

func TestPassingScoreForecast_UsesTotalRating(t *testing.T) {
	f, err := PassingScoreForecast([]models.Applicant{applicant(60, true, holding(orphan))})
	require.NoError(t, err)
	assert.InDelta(t, 70, f.Predicted, 1e-9)
}

func TestPassingScoreForecast_Insufficient(t *testing.T) {
	_, err := PassingScoreForecast(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = PassingScoreForecast([]models.Applicant{applicant(80, false)})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestPercentile_Interpolates(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	assert.InDelta(t, 2.5, percentile(xs, 50), 1e-9)
	assert.InDelta(t, 3.25, percentile(xs, 75), 1e-9)
	assert.InDelta(t, 7, percentile([]float64{7}, 75), 1e-9)
}

func TestDormitoryDemand(t *testing.T) {
	list := []models.Applicant{
		applicant(80, true, inCity(donetsk), dormitory),
		applicant(80, true, inCity(donetsk), dormitory),
		applicant(80, false, inCity(donetsk)),
		applicant(80, true, inCity(makeevka), dormitory),
		applicant(80, false, inCity(makeevka), dormitory),
		applicant(80, true, dormitory),
		applicant(80, true, inCity(makeevka)),
		applicant(80, true, dormitory),
		applicant(80, true, dormitory),
	}
	rep := DormitoryDemand(list)

	assert.Equal(t, 9, rep.Total)
	assert.Equal(t, 7, rep.NeedDormitory)
	assert.Equal(t, 6, rep.NeedWithOriginals)
	assert.Equal(t, 7, rep.RecommendedCapacity)
	assert.InDelta(t, 700.0/9, rep.Percent(), 1e-9)

	require.Len(t, rep.Cities, 3)
	assert.Equal(t, CityDemand{City: UnsetPlace, Total: 3, NeedDormitory: 3}, rep.Cities[0])
	assert.Equal(t, CityDemand{City: "Донецк", Total: 3, NeedDormitory: 2}, rep.Cities[1])
	assert.Equal(t, CityDemand{City: "Макеевка", Total: 3, NeedDormitory: 2}, rep.Cities[2])
}

func TestDormitoryDemand_CapacityRoundsDown(t *testing.T) {
	var list []models.Applicant
	for range 3 {
		list = append(list, applicant(80, true, dormitory))
	}
	assert.Equal(t, 3, DormitoryDemand(list).RecommendedCapacity)
	assert.Zero(t, DormitoryDemand(nil).RecommendedCapacity)
}

func TestSourceEffectiveness(t *testing.T) {
	list := []models.Applicant{
		applicant(80, true, from(fair)),
		applicant(60, true, from(fair)),
		applicant(70, false, from(fair)),
		applicant(90, true, from(other)),
		applicant(50, false),
	}
	stats := SourceEffectiveness(list)
	require.Len(t, stats, 3)

	var names []string
	for _, s := range stats {
		names = append(names, s.Source)
	}
	assert.Equal(t, []string{"Ярмарка образования", "Другое", UnsetSource}, names)

	first := stats[0]
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 2, first.WithOriginals)
	assert.InDelta(t, 60, first.Share, 1e-9)
	assert.InDelta(t, 200.0/3, first.Conversion(), 1e-9)
	assert.InDelta(t, 70, first.AverageRating(), 1e-9)
	assert.InDelta(t, 80, first.MaxRating, 1e-9)
	assert.Equal(t, Medium, first.Effectiveness)

	assert.Equal(t, High, stats[1].Effectiveness)
	assert.Equal(t, Low, stats[2].Effectiveness)
	assert.Equal(t, "Низкая", stats[2].Effectiveness.String())
}

func TestGeography(t *testing.T) {
	list := []models.Applicant{
		applicant(80, true, inCity(donetsk), dormitory),
		applicant(70, false, inCity(donetsk)),
		applicant(90, true, inCity(makeevka)),
		applicant(60, false),
	}
	rep := Geography(list)

	require.Len(t, rep.Regions, 2)
	assert.Equal(t, dnr.Name, rep.Regions[0].Region)
	assert.Equal(t, 3, rep.Regions[0].Total)
	assert.Equal(t, 2, rep.Regions[0].WithOriginals)
	assert.Equal(t, 1, rep.Regions[0].NeedDormitory)
	assert.InDelta(t, 75, rep.Regions[0].Share, 1e-9)
	assert.InDelta(t, 80, rep.Regions[0].AverageRating(), 1e-9)
	assert.Equal(t, UnsetPlace, rep.Regions[1].Region)

	require.Len(t, rep.Cities, 3)
	assert.Equal(t, "Донецк", rep.Cities[0].City)
	assert.Equal(t, dnr.Name, rep.Cities[0].Region)
	assert.InDelta(t, 75, rep.Cities[0].AverageRating(), 1e-9)
	assert.Equal(t, "Макеевка", rep.Cities[1].City)
	assert.Equal(t, UnsetPlace, rep.Cities[2].City)
}

func TestGeography_TopCities(t *testing.T) {
	var list []models.Applicant
	for i := range TopCities + 2 {
		c := &models.City{ID: int64(i + 1), Name: fmt.Sprintf("Город %02d", i), RegionID: 1}
		list = append(list, applicant(80, true, inCity(c)))
	}
	rep := Geography(list)
	require.Len(t, rep.Cities, TopCities)
	assert.Equal(t, "Город 00", rep.Cities[0].City)
	assert.Equal(t, "Город 09", rep.Cities[TopCities-1].City)
}

func TestBenefitDistribution(t *testing.T) {
	list := []models.Applicant{
		applicant(80, true, holding(svo)),
		applicant(80, true, holding(orphan)),
		applicant(80, true, holding(orphan)),
		applicant(80, true),
	}
	stats := BenefitDistribution(list, []models.Benefit{*orphan, *svo, *noBenefit})
	assert.Equal(t, []BenefitStats{
		{Benefit: "Сирота", BonusPoints: 10, Applicants: 2},
		{Benefit: "Участник СВО", BonusPoints: 5, Applicants: 1},
	}, stats)
}

func TestRatingDistribution(t *testing.T) {
	list := []models.Applicant{
		applicant(5, true),
		applicant(15, true),
		applicant(15, false),
		applicant(20, false),
	}
	h, err := RatingDistribution(list, 10)
	require.NoError(t, err)

	assert.Equal(t, []Bucket{
		{From: 0, To: 10, WithOriginals: 1},
		{From: 10, To: 20, WithOriginals: 1, WithoutOriginals: 1},
		{From: 20, To: 30, WithoutOriginals: 1},
	}, h.Buckets)
	assert.InDelta(t, 10, h.MeanWithOriginals, 1e-9)
	assert.InDelta(t, 17.5, h.MeanWithoutOriginals, 1e-9)
}

func TestRatingDistribution_InvalidWidth(t *testing.T) {
	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := RatingDistribution(nil, w)
		assert.ErrorIs(t, err, models.ErrInvalidArgument, "width %v", w)
	}
	h, err := RatingDistribution(nil, 5)
	require.NoError(t, err)
	assert.Empty(t, h.Buckets)
}

func TestSortLabels(t *testing.T) {
	labels := []string{"Ярмарка", "ёж", "Донецк", "Жук"}
	SortLabels(labels)
	assert.Equal(t, []string{"Донецк", "ёж", "Жук", "Ярмарка"}, labels)
}
