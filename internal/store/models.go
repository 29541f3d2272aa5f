package store

import "time"

// Measurement is one saved jar test trial. Rows are immutable once written.
type Measurement struct {
	ID int64

	// Test metadata
	TestDate        string // YYYY-MM-DD
	Operator        string
	Site            string
	WaterType       string
	SampleVolumeL   float64
	CoagulationMin  int
	CoagulationRPM  int
	FlocculationMin int
	FlocculationRPM int

	// Combination label plus the reagent names it was built from
	Combination    string
	CoagulantName  string
	FlocculantName string
	Trial          int

	// Dosing
	CoagulantML  float64
	FlocculantML float64

	// Water quality
	CODIn            float64
	PHIn             float64
	CODOut           float64
	PHOut            float64
	SludgeML         float64
	TurbidityNote    string
	Abatement        float64
	TurbidityIn      float64
	TurbidityOut     float64
	ColorIn          float64
	ColorOut         float64
	SuspendedIn      float64
	SuspendedOut     float64
	UV254In          float64
	UV254Out         float64
	ResidualAluminum float64
	ResidualIron     float64
	ConductivityIn   float64
	ConductivityOut  float64

	CreatedAt time.Time
}

// Filter narrows a full listing after retrieval. Empty fields match anything.
type Filter struct {
	TestDate    string
	Operator    string
	Site        string
	Combination string
}

func (f Filter) Match(m *Measurement) bool {
	if f.TestDate != "" && m.TestDate != f.TestDate {
		return false
	}
	if f.Operator != "" && m.Operator != f.Operator {
		return false
	}
	if f.Site != "" && m.Site != f.Site {
		return false
	}
	if f.Combination != "" && m.Combination != f.Combination {
		return false
	}
	return true
}

// Apply keeps the records matching f, preserving order.
func (f Filter) Apply(records []*Measurement) []*Measurement {
	var out []*Measurement
	for _, m := range records {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// Field selects a text column for Distinct.
type Field func(*Measurement) string

var (
	ByDate        Field = func(m *Measurement) string { return m.TestDate }
	BySite        Field = func(m *Measurement) string { return m.Site }
	ByOperator    Field = func(m *Measurement) string { return m.Operator }
	ByCombination Field = func(m *Measurement) string { return m.Combination }
)

// Distinct returns the unique values of field in first-seen order.
func Distinct(records []*Measurement, field Field) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range records {
		v := field(m)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
