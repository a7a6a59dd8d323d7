package reports

import "github.com/nonsonwune/applicant_registry/models"

// Overview is the registry-wide summary. Ratings are the stored base
// ratings, without benefit points.
type Overview struct {
	Total         int
	WithOriginals int
	NeedDormitory int
	AverageRating float64
	MaxRating     float64
	// Benefits counts association rows per benefit, most held first.
	Benefits []BenefitStats
}

// General summarizes every applicant. An empty registry yields zero values.
func General(applicants []models.Applicant, catalog []models.Benefit) Overview {
	o := Overview{Total: len(applicants)}
	var sum float64
	for i := range applicants {
		a := &applicants[i]
		if a.HasOriginalDocuments() {
			o.WithOriginals++
		}
		if a.Info.DormitoryNeeded {
			o.NeedDormitory++
		}
		r := a.Details.BaseRating
		sum += r
		if i == 0 || r > o.MaxRating {
			o.MaxRating = r
		}
	}
	if o.Total > 0 {
		o.AverageRating = sum / float64(o.Total)
	}
	o.Benefits = BenefitDistribution(applicants, catalog)
	return o
}
