package ranking

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/applicant_registry/models"
)

func applicant(id int64, rating float64, original bool) models.Applicant {
	return models.Applicant{
		ID:      id,
		Details: models.ApplicationDetails{BaseRating: rating, HasOriginal: original},
	}
}

func tiers(results []ClassificationResult) []Tier {
	out := make([]Tier, len(results))
	for i, r := range results {
		out[i] = r.Tier
	}
	return out
}

func TestClassify_QuotaExample(t *testing.T) {
	in := []models.Applicant{
		applicant(1, 90, true),
		applicant(2, 85, true),
		applicant(3, 80, true),
		applicant(4, 75, true),
		applicant(5, 70, true),
	}
	got, err := Classify(in, 80, 3)
	require.NoError(t, err)

	assert.Equal(t, []Tier{Passed, Passed, Passed, Failed, Failed}, tiers(got))
	for i, r := range got {
		require.NotNil(t, r.Rank)
		assert.Equal(t, i+1, *r.Rank)
		assert.Equal(t, in[i].ID, r.ApplicantID)
	}
}

func TestClassify_Tiers(t *testing.T) {
	tests := []struct {
		name   string
		in     []models.Applicant
		score  float64
		places int
		want   []Tier
	}{
		{
			name:   "below score inside quota is reserve",
			in:     []models.Applicant{applicant(1, 90, true), applicant(2, 60, true)},
			score:  80,
			places: 2,
			want:   []Tier{Passed, Reserve},
		},
		{
			name:   "reserve band outside quota",
			in:     []models.Applicant{applicant(1, 90, true), applicant(2, 77, true), applicant(3, 76, true), applicant(4, 75.9, true)},
			score:  80,
			places: 1,
			want:   []Tier{Passed, Reserve, Reserve, Failed},
		},
		{
			name:   "outside quota above score is reserve",
			in:     []models.Applicant{applicant(1, 95, true), applicant(2, 92, true)},
			score:  80,
			places: 1,
			want:   []Tier{Passed, Reserve},
		},
		{
			name:   "provisional continue after committed",
			in:     []models.Applicant{applicant(1, 88, true), applicant(2, 99, false), applicant(3, 97, false)},
			score:  80,
			places: 2,
			want:   []Tier{Passed, PassedProvisional, ReserveProvisional},
		},
		{
			name:   "provisional only",
			in:     []models.Applicant{applicant(1, 50, false), applicant(2, 90, false)},
			score:  80,
			places: 1,
			want:   []Tier{ReserveProvisional, ReserveProvisional},
		},
		{
			name:   "provisional position counts every committed applicant",
			in:     []models.Applicant{applicant(1, 95, false), applicant(2, 90, true), applicant(3, 85, true)},
			score:  80,
			places: 2,
			want:   []Tier{ReserveProvisional, Passed, Passed},
		},
		{
			name:   "zero score passes everyone inside quota",
			in:     []models.Applicant{applicant(1, 0, true), applicant(2, 0, true), applicant(3, 0, true)},
			score:  0,
			places: 2,
			want:   []Tier{Passed, Passed, Reserve},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.in, tt.score, tt.places)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tiers(got))
		})
	}
}

func TestClassify_BonusPointsCount(t *testing.T) {
	a := applicant(1, 72, true)
	a.Benefit = &models.Benefit{Name: "Сирота", BonusPoints: 10}
	got, err := Classify([]models.Applicant{a}, 80, 1)
	require.NoError(t, err)
	assert.Equal(t, Passed, got[0].Tier)
	assert.InDelta(t, 82.0, got[0].TotalRating, 1e-9)
}

func TestClassify_InvalidArguments(t *testing.T) {
	in := []models.Applicant{applicant(1, 90, true)}
	for name, call := range map[string]func() error{
		"negative score": func() error { _, err := Classify(in, -1, 3); return err },
		"nan score":      func() error { _, err := Classify(in, math.NaN(), 3); return err },
		"zero places":    func() error { _, err := Classify(in, 80, 0); return err },
		"empty and bad":  func() error { _, err := Classify(nil, 80, -2); return err },
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), models.ErrInvalidArgument)
		})
	}
}

func TestClassify_Empty(t *testing.T) {
	got, err := Classify(nil, 80, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func randomApplicants(r *rand.Rand, n int) []models.Applicant {
	out := make([]models.Applicant, n)
	for i := range out {
		out[i] = applicant(int64(i+1), float64(r.Intn(100)), r.Intn(3) > 0)
	}
	return out
}

func TestClassify_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		in := randomApplicants(r, 1+r.Intn(30))
		SortForRanking(in)
		score := float64(r.Intn(100))
		places := 1 + r.Intn(10)

		got, err := Classify(in, score, places)
		require.NoError(t, err)
		require.Len(t, got, len(in))

		committed, sum := 0, 0
		for i, res := range got {
			assert.Equal(t, in[i].ID, res.ApplicantID)
			if res.Tier.Provisional() {
				assert.Nil(t, res.Rank, "provisional applicant %d ranked", res.ApplicantID)
				assert.False(t, in[i].HasOriginalDocuments())
				continue
			}
			committed++
			require.NotNil(t, res.Rank)
			switch res.Tier {
			case Passed, Reserve, Failed:
				sum++
			}
		}
		assert.Equal(t, committed, sum)
		s := Summarize(got)
		assert.Equal(t, committed, s.Committed.Total())
		assert.Equal(t, len(in), s.Committed.Total()+s.Provisional.Total())
	}
}

func TestClassify_EveryonePassesWhenQuotaCoversAll(t *testing.T) {
	in := []models.Applicant{applicant(1, 91, true), applicant(2, 64, true), applicant(3, 70, true)}
	SortForRanking(in)
	got, err := Classify(in, 64, 3)
	require.NoError(t, err)
	assert.Equal(t, []Tier{Passed, Passed, Passed}, tiers(got))

	got, err = Classify(in, 92, 3)
	require.NoError(t, err)
	for _, r := range got {
		assert.NotEqual(t, Passed, r.Tier)
	}
}

func TestSortForRanking(t *testing.T) {
	in := []models.Applicant{
		applicant(1, 70, false),
		applicant(2, 80, true),
		applicant(3, 95, false),
		applicant(4, 80, true),
		applicant(5, 85, true),
	}
	SortForRanking(in)

	ids := make([]int64, len(in))
	for i, a := range in {
		ids[i] = a.ID
	}
	assert.Equal(t, []int64{5, 2, 4, 3, 1}, ids)
}

func TestTier_Labels(t *testing.T) {
	assert.Equal(t, "Проходит", Passed.Label())
	assert.Equal(t, "В резерве*", ReserveProvisional.Label())
	assert.Equal(t, "Не проходит*", FailedProvisional.String())
	assert.True(t, PassedProvisional.Provisional())
	assert.False(t, Failed.Provisional())
	assert.Equal(t, Reserve, ReserveProvisional.Base())
}

func TestSummarize(t *testing.T) {
	one := 1
	s := Summarize([]ClassificationResult{
		{Tier: Passed, Rank: &one},
		{Tier: ReserveProvisional},
		{Tier: FailedProvisional},
		{Tier: Failed},
	})
	assert.Equal(t, TierCounts{Passed: 1, Failed: 1}, s.Committed)
	assert.Equal(t, TierCounts{Reserve: 1, Failed: 1}, s.Provisional)
	assert.Equal(t, 2, s.Committed.Total())
	assert.Equal(t, 2, s.Provisional.Total())
	assert.Equal(t, 1, s.ByTier[FailedProvisional])
}

func TestSummarize_ProvisionalDoesNotTakeSeats(t *testing.T) {
	in := []models.Applicant{applicant(1, 90, true), applicant(2, 95, false)}
	SortForRanking(in)
	got, err := Classify(in, 80, 3)
	require.NoError(t, err)

	s := Summarize(got)
	assert.Equal(t, TierCounts{Passed: 1}, s.Committed)
	assert.Equal(t, TierCounts{Passed: 1}, s.Provisional)
	assert.Equal(t, 1, s.ByTier[Passed])
	assert.Equal(t, 1, s.ByTier[PassedProvisional])
}
