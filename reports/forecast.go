package reports

import (
	"sort"

	"github.com/nonsonwune/applicant_registry/models"
)

// Dormitory capacity is the committed demand plus a 20% reserve, rounded down.
const (
	capacityNumerator   = 12
	capacityDenominator = 10
)

// Forecast summarizes the total ratings of applicants with originals.
type Forecast struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	Q1     float64
	Q3     float64
	// Predicted is the 75th percentile, the conservative passing score.
	Predicted float64
	// Safe is Mean plus one standard deviation.
	Safe float64
}

// PassingScoreForecast derives a passing score from the committed applicants.
func PassingScoreForecast(applicants []models.Applicant) (Forecast, error) {
	var ratings []float64
	for i := range applicants {
		if applicants[i].HasOriginalDocuments() {
			ratings = append(ratings, applicants[i].TotalRating())
		}
	}
	if len(ratings) == 0 {
		return Forecast{}, ErrInsufficientData
	}
	sort.Float64s(ratings)

	f := Forecast{
		Count:  len(ratings),
		Mean:   mean(ratings),
		Median: percentile(ratings, 50),
		StdDev: stddev(ratings),
		Min:    ratings[0],
		Max:    ratings[len(ratings)-1],
		Q1:     percentile(ratings, 25),
		Q3:     percentile(ratings, 75),
	}
	f.Predicted = f.Q3
	f.Safe = f.Mean + f.StdDev
	return f, nil
}

// CityDemand is the dormitory demand of one city.
type CityDemand struct {
	City          string
	Total         int
	NeedDormitory int
}

// Percent is the share of the city's applicants needing a dormitory.
func (c CityDemand) Percent() float64 { return percent(c.NeedDormitory, c.Total) }

// DormitoryReport is the dormitory demand forecast.
type DormitoryReport struct {
	Total             int
	NeedDormitory     int
	NeedWithOriginals int
	// Cities lists only cities with demand, highest first.
	Cities []CityDemand
	// RecommendedCapacity is the committed demand with the reserve margin.
	RecommendedCapacity int
}

// Percent is the share of all applicants needing a dormitory.
func (d DormitoryReport) Percent() float64 { return percent(d.NeedDormitory, d.Total) }

// PercentWithOriginals is the share of all applicants with originals needing a dormitory.
func (d DormitoryReport) PercentWithOriginals() float64 {
	return percent(d.NeedWithOriginals, d.Total)
}

// DormitoryDemand counts who needs a dormitory, overall and per city.
func DormitoryDemand(applicants []models.Applicant) DormitoryReport {
	var rep DormitoryReport
	byCity := map[string]*CityDemand{}
	var order []string
	for i := range applicants {
		a := &applicants[i]
		rep.Total++
		city := a.CityName()
		if city == "" {
			city = UnsetPlace
		}
		cd, ok := byCity[city]
		if !ok {
			cd = &CityDemand{City: city}
			byCity[city] = cd
			order = append(order, city)
		}
		cd.Total++
		if !a.Info.DormitoryNeeded {
			continue
		}
		rep.NeedDormitory++
		cd.NeedDormitory++
		if a.HasOriginalDocuments() {
			rep.NeedWithOriginals++
		}
	}
	for _, city := range order {
		if cd := byCity[city]; cd.NeedDormitory > 0 {
			rep.Cities = append(rep.Cities, *cd)
		}
	}
	byCountThenLabel(rep.Cities,
		func(c CityDemand) int { return c.NeedDormitory },
		func(c CityDemand) string { return c.City })
	rep.RecommendedCapacity = rep.NeedWithOriginals * capacityNumerator / capacityDenominator
	return rep
}
