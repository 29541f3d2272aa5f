package session

import (
	"fmt"
	"net/url"

	"github.com/jarlab/jarlab/internal/dosing"
	"github.com/jarlab/jarlab/internal/reagent"
)

// Key identifies a reagent combination by the names of its two reagents.
// Either side may be reagent.NoneName.
type Key struct {
	Coagulant  string
	Flocculant string
}

// NewKey normalises empty names to the sentinel.
func NewKey(coagulant, flocculant string) Key {
	if coagulant == "" {
		coagulant = reagent.NoneName
	}
	if flocculant == "" {
		flocculant = reagent.NoneName
	}
	return Key{Coagulant: coagulant, Flocculant: flocculant}
}

func (k Key) HasCoagulant() bool  { return k.Coagulant != reagent.NoneName }
func (k Key) HasFlocculant() bool { return k.Flocculant != reagent.NoneName }

// Label is the display name of the combination. It is never parsed back;
// lookups go through the Key.
func (k Key) Label() string {
	switch {
	case !k.HasCoagulant() && !k.HasFlocculant():
		return "Control (no reagent)"
	case !k.HasCoagulant():
		return "Flocculant only: " + k.Flocculant
	case !k.HasFlocculant():
		return "Coagulant only: " + k.Coagulant
	}
	return k.Coagulant + " + " + k.Flocculant
}

// ID is a stable form of the key for form values and URLs.
func (k Key) ID() string {
	return url.Values{"c": {k.Coagulant}, "f": {k.Flocculant}}.Encode()
}

// ParseID reverses ID.
func ParseID(id string) (Key, error) {
	v, err := url.ParseQuery(id)
	if err != nil {
		return Key{}, fmt.Errorf("invalid combination id %q: %w", id, err)
	}
	if !v.Has("c") || !v.Has("f") {
		return Key{}, fmt.Errorf("invalid combination id %q", id)
	}
	return NewKey(v.Get("c"), v.Get("f")), nil
}

// Trial is one row of a trial grid. Doses are commercial ppm; the mL volumes
// are derived from them and the sample volume.
type Trial struct {
	Number        int
	CoagulantPPM  float64
	FlocculantPPM float64
	CoagulantML   float64
	FlocculantML  float64

	CODIn         float64
	CODOut        float64
	PHIn          float64
	PHOut         float64
	SludgeML      float64
	TurbidityNote string
	Abatement     float64

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
}

// Combination is a selected reagent pair and its in-session trial grid.
type Combination struct {
	Key        Key
	Coagulant  reagent.Reagent
	Flocculant reagent.Reagent
	Trials     []Trial
}

func (c *Combination) Label() string {
	return c.Key.Label()
}

// ActivePPM returns the active-material doses of trial i.
func (c *Combination) ActivePPM(i int) (coag, floc float64) {
	t := c.Trials[i]
	return c.Coagulant.ActivePPM(t.CoagulantPPM), c.Flocculant.ActivePPM(t.FlocculantPPM)
}

// DoseSteps controls how a fresh grid is seeded.
type DoseSteps struct {
	CoagulantStepPPM  float64 `yaml:"coagulant_step_ppm"`
	FlocculantDosePPM float64 `yaml:"flocculant_dose_ppm"`
}

func DefaultDoseSteps() DoseSteps {
	return DoseSteps{CoagulantStepPPM: dosing.CoagulantStepPPM, FlocculantDosePPM: dosing.FlocculantDosePPM}
}

// seedTrial builds the default row for 0-based index i.
func (c *Combination) seedTrial(i int, raw RawWater, steps DoseSteps, sampleL float64) Trial {
	coag, floc := dosing.SteppedDoses(i, !c.Coagulant.IsNone(), !c.Flocculant.IsNone(),
		steps.CoagulantStepPPM, steps.FlocculantDosePPM)
	t := Trial{
		Number:         i + 1,
		CoagulantPPM:   coag,
		FlocculantPPM:  floc,
		CODIn:          raw.COD(),
		PHIn:           raw.PH(),
		TurbidityIn:    raw.Turbidity(),
		ColorIn:        raw.Color(),
		SuspendedIn:    raw.SuspendedSolids(),
		UV254In:        raw.UV254(),
		ConductivityIn: raw.Conductivity(),
	}
	c.recompute(&t, sampleL)
	return t
}

// recompute refreshes the derived columns of t. Abatement is only touched
// when both COD values are positive.
func (c *Combination) recompute(t *Trial, sampleL float64) {
	if c.Coagulant.IsNone() {
		t.CoagulantPPM = 0
	}
	if c.Flocculant.IsNone() {
		t.FlocculantPPM = 0
	}
	t.CoagulantML = dosing.CommercialVolume(t.CoagulantPPM, c.Coagulant.VolumePerPPM(), sampleL)
	t.FlocculantML = dosing.CommercialVolume(t.FlocculantPPM, c.Flocculant.VolumePerPPM(), sampleL)
	if pct, ok := dosing.Abatement(t.CODIn, t.CODOut); ok {
		t.Abatement = pct
	}
}

// resize grows or shrinks the grid to n rows, seeding new rows and keeping
// the existing ones.
func (c *Combination) resize(n int, raw RawWater, steps DoseSteps, sampleL float64) {
	if n < len(c.Trials) {
		c.Trials = c.Trials[:n]
		return
	}
	for i := len(c.Trials); i < n; i++ {
		c.Trials = append(c.Trials, c.seedTrial(i, raw, steps, sampleL))
	}
}

// reseed discards the grid and rebuilds n default rows.
func (c *Combination) reseed(n int, raw RawWater, steps DoseSteps, sampleL float64) {
	c.Trials = nil
	c.resize(n, raw, steps, sampleL)
}
