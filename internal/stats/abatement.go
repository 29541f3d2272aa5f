package stats

import (
	"github.com/jarlab/jarlab/internal/store"
)

// Best returns the record with the highest abatement. Ties go to the first
// one in the given order, which for store listings is the most recent.
func Best(records []*store.Measurement) (*store.Measurement, bool) {
	var best *store.Measurement
	for _, m := range records {
		if best == nil || m.Abatement > best.Abatement {
			best = m
		}
	}
	return best, best != nil
}

// CombinationSummary aggregates the trials of one reagent combination
type CombinationSummary struct {
	Combination   string
	MaxAbatement  float64
	MeanAbatement float64
	Trials        int
	BestTrial     int
	BestSludgeML  float64
}

// Summarize groups records by combination label in first-seen order.
func Summarize(records []*store.Measurement) []CombinationSummary {
	index := make(map[string]int)
	var out []CombinationSummary
	var sums []float64

	for _, m := range records {
		i, ok := index[m.Combination]
		if !ok {
			i = len(out)
			index[m.Combination] = i
			out = append(out, CombinationSummary{
				Combination:  m.Combination,
				MaxAbatement: m.Abatement,
				BestTrial:    m.Trial,
				BestSludgeML: m.SludgeML,
			})
			sums = append(sums, 0)
		}

		s := &out[i]
		s.Trials++
		sums[i] += m.Abatement
		if m.Abatement > s.MaxAbatement {
			s.MaxAbatement = m.Abatement
			s.BestTrial = m.Trial
			s.BestSludgeML = m.SludgeML
		}
	}

	for i := range out {
		out[i].MeanAbatement = sums[i] / float64(out[i].Trials)
	}
	return out
}
