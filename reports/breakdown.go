package reports

import (
	"fmt"
	"math"

	"github.com/nonsonwune/applicant_registry/models"
)

// TopCities is the number of cities listed by Geography.
const TopCities = 10

// Effectiveness grades how well a source converts applicants into
// applicants with originals.
type Effectiveness int

const (
	Low Effectiveness = iota
	Medium
	High
)

func (e Effectiveness) String() string {
	switch e {
	case High:
		return "Высокая"
	case Medium:
		return "Средняя"
	}
	return "Низкая"
}

func grade(conversion float64) Effectiveness {
	switch {
	case conversion >= 70:
		return High
	case conversion >= 50:
		return Medium
	}
	return Low
}

// group accumulates the shared counters of a breakdown row.
type group struct {
	Total         int
	WithOriginals int
	NeedDormitory int
	ratingSum     float64
	MaxRating     float64
}

func (g *group) add(a *models.Applicant) {
	g.Total++
	r := a.TotalRating()
	g.ratingSum += r
	if g.Total == 1 || r > g.MaxRating {
		g.MaxRating = r
	}
	if a.HasOriginalDocuments() {
		g.WithOriginals++
	}
	if a.Info.DormitoryNeeded {
		g.NeedDormitory++
	}
}

// AverageRating is the mean total rating of the group.
func (g group) AverageRating() float64 {
	if g.Total == 0 {
		return 0
	}
	return g.ratingSum / float64(g.Total)
}

// Conversion is the percentage of the group with originals.
func (g group) Conversion() float64 { return percent(g.WithOriginals, g.Total) }

// grouped keeps groups in first-seen order.
type grouped struct {
	order []string
	rows  map[string]*group
}

func (g *grouped) add(label string, a *models.Applicant) {
	if g.rows == nil {
		g.rows = map[string]*group{}
	}
	row, ok := g.rows[label]
	if !ok {
		row = &group{}
		g.rows[label] = row
		g.order = append(g.order, label)
	}
	row.add(a)
}

// SourceStats is one row of the information source analysis.
type SourceStats struct {
	Source string
	group
	// Share is the percentage of all applicants that named the source.
	Share         float64
	Effectiveness Effectiveness
}

// SourceEffectiveness breaks the applicants down by information source,
// largest source first.
func SourceEffectiveness(applicants []models.Applicant) []SourceStats {
	var g grouped
	for i := range applicants {
		label := applicants[i].SourceName()
		if label == "" {
			label = UnsetSource
		}
		g.add(label, &applicants[i])
	}
	out := make([]SourceStats, 0, len(g.order))
	for _, label := range g.order {
		row := *g.rows[label]
		out = append(out, SourceStats{
			Source:        label,
			group:         row,
			Share:         percent(row.Total, len(applicants)),
			Effectiveness: grade(row.Conversion()),
		})
	}
	byCountThenLabel(out, func(s SourceStats) int { return s.Total }, func(s SourceStats) string { return s.Source })
	return out
}

// RegionStats is one region of the geography report.
type RegionStats struct {
	Region string
	group
	Share float64
}

// CityStats is one city of the geography report.
type CityStats struct {
	City   string
	Region string
	group
}

// GeographyReport breaks the applicants down by region and city.
type GeographyReport struct {
	Regions []RegionStats
	// Cities holds at most TopCities cities, largest first.
	Cities []CityStats
}

// Geography groups applicants by region and by city within region.
func Geography(applicants []models.Applicant) GeographyReport {
	var regions, cities grouped
	cityRegion := map[string][2]string{}
	for i := range applicants {
		a := &applicants[i]
		region, city := a.RegionName(), a.CityName()
		if region == "" {
			region = UnsetPlace
		}
		if city == "" {
			city = UnsetPlace
		}
		regions.add(region, a)
		key := city + "\x00" + region
		cityRegion[key] = [2]string{city, region}
		cities.add(key, a)
	}

	var rep GeographyReport
	for _, label := range regions.order {
		row := *regions.rows[label]
		rep.Regions = append(rep.Regions, RegionStats{Region: label, group: row, Share: percent(row.Total, len(applicants))})
	}
	byCountThenLabel(rep.Regions, func(r RegionStats) int { return r.Total }, func(r RegionStats) string { return r.Region })

	for _, key := range cities.order {
		names := cityRegion[key]
		rep.Cities = append(rep.Cities, CityStats{City: names[0], Region: names[1], group: *cities.rows[key]})
	}
	byCountThenLabel(rep.Cities, func(c CityStats) int { return c.Total }, func(c CityStats) string { return c.City })
	if len(rep.Cities) > TopCities {
		rep.Cities = rep.Cities[:TopCities]
	}
	return rep
}

// BenefitStats counts the holders of one benefit.
type BenefitStats struct {
	Benefit     string
	BonusPoints int
	Applicants  int
}

// BenefitDistribution counts association rows per benefit of catalog, most
// held first. Benefits nobody holds are left out.
func BenefitDistribution(applicants []models.Applicant, catalog []models.Benefit) []BenefitStats {
	byID := make(map[int64]models.Benefit, len(catalog))
	for _, b := range catalog {
		byID[b.ID] = b
	}
	counts := map[int64]int{}
	var order []int64
	for i := range applicants {
		for _, id := range applicants[i].BenefitIDs {
			if _, ok := byID[id]; !ok {
				continue
			}
			if counts[id] == 0 {
				order = append(order, id)
			}
			counts[id]++
		}
	}
	out := make([]BenefitStats, 0, len(order))
	for _, id := range order {
		b := byID[id]
		out = append(out, BenefitStats{Benefit: b.Name, BonusPoints: b.BonusPoints, Applicants: counts[id]})
	}
	byCountThenLabel(out, func(b BenefitStats) int { return b.Applicants }, func(b BenefitStats) string { return b.Benefit })
	return out
}

// Bucket is one bin [From, To) of the rating histogram.
type Bucket struct {
	From             float64
	To               float64
	WithOriginals    int
	WithoutOriginals int
}

// Histogram is the rating distribution split by originals.
type Histogram struct {
	Buckets              []Bucket
	MeanWithOriginals    float64
	MeanWithoutOriginals float64
}

// RatingDistribution bins total ratings into buckets of the given width
// starting at zero.
func RatingDistribution(applicants []models.Applicant, width float64) (Histogram, error) {
	if !(width > 0) || math.IsInf(width, 0) {
		return Histogram{}, fmt.Errorf("bucket width %v: %w", width, models.ErrInvalidArgument)
	}
	var with, without []float64
	top := 0.0
	for i := range applicants {
		r := applicants[i].TotalRating()
		if applicants[i].HasOriginalDocuments() {
			with = append(with, r)
		} else {
			without = append(without, r)
		}
		top = math.Max(top, r)
	}
	h := Histogram{MeanWithOriginals: mean(with), MeanWithoutOriginals: mean(without)}
	if len(applicants) == 0 {
		return h, nil
	}

	n := int(math.Floor(top/width)) + 1
	h.Buckets = make([]Bucket, n)
	for i := range h.Buckets {
		h.Buckets[i].From = float64(i) * width
		h.Buckets[i].To = float64(i+1) * width
	}
	bucket := func(r float64) int {
		i := int(math.Floor(r / width))
		return min(max(i, 0), n-1)
	}
	for _, r := range with {
		h.Buckets[bucket(r)].WithOriginals++
	}
	for _, r := range without {
		h.Buckets[bucket(r)].WithoutOriginals++
	}
	return h, nil
}
