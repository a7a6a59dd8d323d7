// Package reports computes the admission analytics shown by the reports menu:
// passing score and dormitory forecasts and breakdowns by information source,
// geography, benefit and rating. Every function works on a loaded applicant
// list and has no side effects.
package reports

import (
	"errors"
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrInsufficientData is returned when a forecast has no applicants to work on.
var ErrInsufficientData = errors.New("insufficient data")

// Labels used for applicants with an unset reference.
const (
	UnsetSource = "Не указано"
	UnsetPlace  = "Не указан"
)

// percent returns part/whole*100, or 0 for an empty whole.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func newCollator() *collate.Collator {
	return collate.New(language.Russian)
}

// byCountThenLabel orders rows by count descending, then by label in Russian
// collation order.
func byCountThenLabel[T any](rows []T, count func(T) int, label func(T) string) {
	c := newCollator()
	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := count(rows[i]), count(rows[j])
		if ci != cj {
			return ci > cj
		}
		return c.CompareString(label(rows[i]), label(rows[j])) < 0
	})
}

// SortLabels sorts Russian labels in place.
func SortLabels(labels []string) {
	newCollator().SortStrings(labels)
}
