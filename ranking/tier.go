package ranking

// Tier is the admission outcome of one applicant.
type Tier int

const (
	Passed Tier = iota
	Reserve
	Failed
	PassedProvisional
	ReserveProvisional
	FailedProvisional
)

var tierLabels = map[Tier]string{
	Passed:             "Проходит",
	Reserve:            "В резерве",
	Failed:             "Не проходит",
	PassedProvisional:  "Проходит*",
	ReserveProvisional: "В резерве*",
	FailedProvisional:  "Не проходит*",
}

// Label returns the tier label shown to the admissions office. Provisional
// tiers carry an asterisk.
func (t Tier) Label() string {
	if l, ok := tierLabels[t]; ok {
		return l
	}
	return "?"
}

func (t Tier) String() string { return t.Label() }

// Provisional reports whether the tier is contingent on submitting originals.
func (t Tier) Provisional() bool {
	return t >= PassedProvisional
}

// Base strips the provisional flag: PassedProvisional becomes Passed.
func (t Tier) Base() Tier {
	if t.Provisional() {
		return t - PassedProvisional
	}
	return t
}

func (t Tier) provisional() Tier {
	if t.Provisional() {
		return t
	}
	return t + PassedProvisional
}
