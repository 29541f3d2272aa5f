// Package report turns a jar test into a document: general information,
// stirring protocol, raw-water characteristics, treatment volumes, the best
// result and one trial table per reagent combination.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/jarlab/jarlab/internal/dosing"
	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/session"
	"github.com/jarlab/jarlab/internal/stats"
	"github.com/jarlab/jarlab/internal/store"
)

const Title = "JAR TEST REPORT - WATER TREATMENT"

// Field is one label/value line of an information section.
type Field struct {
	Label string
	Value string
}

// TrialRow is one line of a combination table.
type TrialRow struct {
	Trial      int
	CoagPPM    float64
	CoagActive float64
	FlocPPM    float64
	FlocActive float64
	CODIn      float64
	CODOut     float64
	Abatement  float64
	SludgeML   float64
}

type Table struct {
	Combination string
	Rows        []TrialRow
}

// ReagentCost is the yearly consumption of one reagent at the best dose.
type ReagentCost struct {
	Reagent    string
	DosePPM    float64
	AnnualKg   float64
	AnnualCost float64
}

type Best struct {
	Combination string
	Trial       int
	Abatement   float64
	SludgeML    float64
	Costs       []ReagentCost
}

type Report struct {
	TestDate    string
	General     []Field
	Protocol    []Field
	RawWater    []Field
	Treatment   []Field
	Best        *Best
	Tables      []Table
	Summaries   []stats.CombinationSummary
	GeneratedAt time.Time
}

// Build assembles the report of a live session. The trial tables come from
// the session grids; the best result comes from the stored records of the
// same date, operator and site.
func Build(s *session.Session, records []*store.Measurement, sel parameter.Selection, lists reagent.Lists, now time.Time) *Report {
	r := &Report{
		TestDate:    s.Info.TestDate,
		General:     generalFields(s.Info.TestDate, s.Info.Operator, s.Info.Site, s.Info.WaterType),
		Protocol:    protocolFields(s.Info.SampleVolumeL, s.Info.CoagulationMin, s.Info.CoagulationRPM, s.Info.FlocculationMin, s.Info.FlocculationRPM),
		Treatment:   treatmentFields(s.Treatment),
		GeneratedAt: now,
	}

	for _, p := range sel.Selected {
		if v, ok := s.RawWater[p]; ok && p.HasInlet() {
			r.RawWater = append(r.RawWater, rawField(p, v))
		}
	}

	for _, c := range s.Combinations {
		t := Table{Combination: c.Label()}
		for i, tr := range c.Trials {
			coagActive, flocActive := c.ActivePPM(i)
			t.Rows = append(t.Rows, TrialRow{
				Trial:      tr.Number,
				CoagPPM:    tr.CoagulantPPM,
				CoagActive: coagActive,
				FlocPPM:    tr.FlocculantPPM,
				FlocActive: flocActive,
				CODIn:      tr.CODIn,
				CODOut:     tr.CODOut,
				Abatement:  tr.Abatement,
				SludgeML:   tr.SludgeML,
			})
		}
		r.Tables = append(r.Tables, t)
	}

	current := s.Filter().Apply(records)
	r.Summaries = stats.Summarize(current)
	r.Best = best(current, lists, s.Treatment)
	return r
}

// FromRecords rebuilds a report from stored records alone, as the CLI does.
// records must belong to one test (see store.Filter); they may be in store
// order. Commercial doses are recovered from the saved volumes with the
// current reagent definitions.
func FromRecords(records []*store.Measurement, sel parameter.Selection, lists reagent.Lists, treatment dosing.Treatment, now time.Time) (*Report, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no measurements to report")
	}

	first := records[0]
	r := &Report{
		TestDate:    first.TestDate,
		General:     generalFields(first.TestDate, first.Operator, first.Site, first.WaterType),
		Protocol:    protocolFields(first.SampleVolumeL, first.CoagulationMin, first.CoagulationRPM, first.FlocculationMin, first.FlocculationRPM),
		Treatment:   treatmentFields(treatment),
		GeneratedAt: now,
	}

	for _, p := range sel.Selected {
		if v, ok := inlet(first, p); ok {
			r.RawWater = append(r.RawWater, rawField(p, v))
		}
	}

	index := make(map[string]int)
	for _, m := range records {
		i, ok := index[m.Combination]
		if !ok {
			i = len(r.Tables)
			index[m.Combination] = i
			r.Tables = append(r.Tables, Table{Combination: m.Combination})
		}
		r.Tables[i].Rows = append(r.Tables[i].Rows, rowFromRecord(m, lists))
	}
	for i := range r.Tables {
		rows := r.Tables[i].Rows
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Trial < rows[b].Trial })
	}

	r.Summaries = stats.Summarize(records)
	r.Best = best(records, lists, treatment)
	return r, nil
}

func rowFromRecord(m *store.Measurement, lists reagent.Lists) TrialRow {
	coag := lists.Coagulant(m.CoagulantName)
	floc := lists.Flocculant(m.FlocculantName)
	coagPPM := commercialPPM(m.CoagulantML, coag, m.SampleVolumeL)
	flocPPM := commercialPPM(m.FlocculantML, floc, m.SampleVolumeL)
	return TrialRow{
		Trial:      m.Trial,
		CoagPPM:    coagPPM,
		CoagActive: coag.ActivePPM(coagPPM),
		FlocPPM:    flocPPM,
		FlocActive: floc.ActivePPM(flocPPM),
		CODIn:      m.CODIn,
		CODOut:     m.CODOut,
		Abatement:  m.Abatement,
		SludgeML:   m.SludgeML,
	}
}

func commercialPPM(volumeML float64, r reagent.Reagent, sampleL float64) float64 {
	if sampleL <= 0 {
		sampleL = dosing.DefaultWaterVolume
	}
	return dosing.PPMFromVolume(volumeML, r.VolumePerPPM(), sampleL)
}

func best(records []*store.Measurement, lists reagent.Lists, treatment dosing.Treatment) *Best {
	m, ok := stats.Best(records)
	if !ok {
		return nil
	}

	b := &Best{
		Combination: m.Combination,
		Trial:       m.Trial,
		Abatement:   m.Abatement,
		SludgeML:    m.SludgeML,
	}

	annual := treatment.Annual()
	doses := []struct {
		r  reagent.Reagent
		ml float64
	}{
		{lists.Coagulant(m.CoagulantName), m.CoagulantML},
		{lists.Flocculant(m.FlocculantName), m.FlocculantML},
	}
	for _, d := range doses {
		r := d.r
		if r.IsNone() {
			continue
		}
		ppm := commercialPPM(d.ml, r, m.SampleVolumeL)
		kg := dosing.AnnualConsumptionKg(ppm, annual)
		b.Costs = append(b.Costs, ReagentCost{
			Reagent:    r.Name,
			DosePPM:    ppm,
			AnnualKg:   kg,
			AnnualCost: dosing.AnnualCost(kg, r.PricePerKg),
		})
	}
	return b
}

func inlet(m *store.Measurement, p parameter.Parameter) (float64, bool) {
	switch p {
	case parameter.Turbidity:
		return m.TurbidityIn, true
	case parameter.Color:
		return m.ColorIn, true
	case parameter.PH:
		return m.PHIn, true
	case parameter.Conductivity:
		return m.ConductivityIn, true
	case parameter.SuspendedSolids:
		return m.SuspendedIn, true
	case parameter.UV254:
		return m.UV254In, true
	case parameter.COD:
		return m.CODIn, true
	}
	return 0, false
}

func generalFields(date, operator, site, waterType string) []Field {
	return []Field{
		{"Test date", date},
		{"Operator", operator},
		{"Sampling site", site},
		{"Water type", waterType},
	}
}

func protocolFields(volumeL float64, coagMin, coagRPM, flocMin, flocRPM int) []Field {
	return []Field{
		{"Sample volume", fmt.Sprintf("%.2f L", volumeL)},
		{"Coagulation", fmt.Sprintf("%d min at %d rpm", coagMin, coagRPM)},
		{"Flocculation", fmt.Sprintf("%d min at %d rpm", flocMin, flocRPM)},
	}
}

func treatmentFields(t dosing.Treatment) []Field {
	return []Field{
		{"Water flow", printer.Sprintf("%.2f m³/h", t.FlowM3h)},
		{"Operating hours per day", fmt.Sprintf("%d", t.HoursPerDay)},
		{"Daily volume", printer.Sprintf("%.2f m³", t.Daily())},
		{"Operating days per year", fmt.Sprintf("%d", t.DaysPerYear)},
		{"Annual volume treated", printer.Sprintf("%.2f m³/yr", t.Annual())},
	}
}

func rawField(p parameter.Parameter, v float64) Field {
	label := string(p)
	if u := p.Unit(); u != "" {
		label += " (" + u + ")"
	}
	return Field{label, fmt.Sprintf("%.2f", v)}
}
