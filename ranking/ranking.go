// Package ranking classifies applicants into admission tiers under a fixed
// number of budget places.
//
// Applicants who submitted original documents are committed and take budget
// places in the order given. Applicants without originals are classified as if
// they had submitted them after every committed applicant; their tiers are
// provisional and they get no rank.
package ranking

import (
	"fmt"
	"math"

	"github.com/nonsonwune/applicant_registry/models"
)

// ReserveFactor defines the reserve band below the passing score.
const ReserveFactor = 0.95

// ClassificationResult is the outcome for one applicant. Rank is nil for
// provisional applicants.
type ClassificationResult struct {
	ApplicantID int64
	Tier        Tier
	Rank        *int
	TotalRating float64
}

// Classify assigns a tier to every applicant, preserving input order. The
// engine does not sort: callers pass applicants ordered by SortForRanking to
// get a meaningful ranking.
func Classify(applicants []models.Applicant, passingScore float64, budgetPlaces int) ([]ClassificationResult, error) {
	if math.IsNaN(passingScore) || math.IsInf(passingScore, 0) || passingScore < 0 {
		return nil, fmt.Errorf("passing score %v: %w", passingScore, models.ErrInvalidArgument)
	}
	if budgetPlaces < 1 {
		return nil, fmt.Errorf("budget places %d: %w", budgetPlaces, models.ErrInvalidArgument)
	}

	committed := 0
	for i := range applicants {
		if applicants[i].HasOriginalDocuments() {
			committed++
		}
	}

	reserve := passingScore * ReserveFactor
	results := make([]ClassificationResult, len(applicants))
	position, provisional := 0, 0
	for i := range applicants {
		a := &applicants[i]
		rating := a.TotalRating()
		res := ClassificationResult{ApplicantID: a.ID, TotalRating: rating}
		if a.HasOriginalDocuments() {
			position++
			rank := position
			res.Tier = tierAt(position, rating, passingScore, reserve, budgetPlaces)
			res.Rank = &rank
		} else {
			provisional++
			res.Tier = tierAt(committed+provisional, rating, passingScore, reserve, budgetPlaces).provisional()
		}
		results[i] = res
	}
	return results, nil
}

// tierAt applies the quota rule at a 1-based position.
func tierAt(position int, rating, passingScore, reserve float64, budgetPlaces int) Tier {
	if position <= budgetPlaces {
		if rating >= passingScore {
			return Passed
		}
		return Reserve
	}
	if rating >= reserve {
		return Reserve
	}
	return Failed
}
