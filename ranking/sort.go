package ranking

import (
	"sort"

	"github.com/nonsonwune/applicant_registry/models"
)

// SortForRanking orders applicants in place: committed applicants first, then
// by total rating descending. Equal ratings keep their input order.
func SortForRanking(applicants []models.Applicant) {
	sort.SliceStable(applicants, func(i, j int) bool {
		a, b := &applicants[i], &applicants[j]
		if a.HasOriginalDocuments() != b.HasOriginalDocuments() {
			return a.HasOriginalDocuments()
		}
		return a.TotalRating() > b.TotalRating()
	})
}
