package ranking

// TierCounts counts results by base tier.
type TierCounts struct {
	Passed  int
	Reserve int
	Failed  int
}

// Total is the number of counted results.
func (c TierCounts) Total() int { return c.Passed + c.Reserve + c.Failed }

func (c *TierCounts) add(t Tier) {
	switch t.Base() {
	case Passed:
		c.Passed++
	case Reserve:
		c.Reserve++
	case Failed:
		c.Failed++
	}
}

// Summary totals a classification. Committed counts applicants who submitted
// original documents and hold a seat in the ranking; Provisional counts the
// what-if tiers of everyone else.
type Summary struct {
	Committed   TierCounts
	Provisional TierCounts
	// ByTier counts each exact tier.
	ByTier map[Tier]int
}

// Summarize totals results by tier.
func Summarize(results []ClassificationResult) Summary {
	s := Summary{ByTier: make(map[Tier]int)}
	for _, r := range results {
		s.ByTier[r.Tier]++
		if r.Tier.Provisional() {
			s.Provisional.add(r.Tier)
		} else {
			s.Committed.add(r.Tier)
		}
	}
	return s
}
