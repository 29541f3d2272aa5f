// Package session holds the transient state of one operator's jar test: the
// test metadata, the selected reagent combinations and their trial grids.
// Nothing here is persisted until the operator saves a grid to the store.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jarlab/jarlab/internal/dosing"
	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/store"
)

const (
	MinTrials     = 1
	MaxTrials     = 20
	DefaultTrials = 4
)

var (
	ErrUnknownCombination = errors.New("combination not selected")
	ErrDuplicateCombo     = errors.New("combination already selected")
	ErrTrialRange         = fmt.Errorf("trial count must be between %d and %d", MinTrials, MaxTrials)
)

// WaterTypes are the choices offered for Info.WaterType.
var WaterTypes = []string{"Surface water", "Groundwater", "Wastewater", "Other"}

// Info is the general information and stirring protocol of a jar test.
type Info struct {
	TestDate        string
	Operator        string
	Site            string
	WaterType       string
	SampleVolumeL   float64
	CoagulationMin  int
	CoagulationRPM  int
	FlocculationMin int
	FlocculationRPM int
}

func DefaultInfo(now time.Time) Info {
	return Info{
		TestDate:        now.Format("2006-01-02"),
		WaterType:       WaterTypes[0],
		SampleVolumeL:   1.0,
		CoagulationMin:  2,
		CoagulationRPM:  200,
		FlocculationMin: 20,
		FlocculationRPM: 30,
	}
}

// Validate applies the bounds of the entry form.
func (i Info) Validate() error {
	if _, err := time.Parse("2006-01-02", i.TestDate); err != nil {
		return fmt.Errorf("invalid test date %q", i.TestDate)
	}
	if i.SampleVolumeL < 0.1 || i.SampleVolumeL > 10 {
		return fmt.Errorf("sample volume must be between 0.1 and 10 L")
	}
	if i.CoagulationMin < 1 || i.CoagulationMin > 60 || i.FlocculationMin < 1 || i.FlocculationMin > 60 {
		return fmt.Errorf("mixing times must be between 1 and 60 min")
	}
	if i.CoagulationRPM < 10 || i.CoagulationRPM > 500 {
		return fmt.Errorf("coagulation speed must be between 10 and 500 rpm")
	}
	if i.FlocculationRPM < 10 || i.FlocculationRPM > 200 {
		return fmt.Errorf("flocculation speed must be between 10 and 200 rpm")
	}
	return nil
}

// RawWater holds the inlet characteristics of the sample.
type RawWater map[parameter.Parameter]float64

func DefaultRawWater() RawWater {
	return RawWater{
		parameter.Turbidity:       15,
		parameter.Color:           25,
		parameter.PH:              7.2,
		parameter.Conductivity:    500,
		parameter.SuspendedSolids: 50,
		parameter.UV254:           0.1,
		parameter.COD:             150,
	}
}

func (r RawWater) COD() float64             { return r[parameter.COD] }
func (r RawWater) PH() float64              { return r[parameter.PH] }
func (r RawWater) Turbidity() float64       { return r[parameter.Turbidity] }
func (r RawWater) Color() float64           { return r[parameter.Color] }
func (r RawWater) SuspendedSolids() float64 { return r[parameter.SuspendedSolids] }
func (r RawWater) UV254() float64           { return r[parameter.UV254] }
func (r RawWater) Conductivity() float64    { return r[parameter.Conductivity] }

// Session is one operator's working state. Callers serialise access with
// Lock/Unlock when a session is shared between requests.
type Session struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time
	LastSeen  time.Time

	Info      Info
	RawWater  RawWater
	Treatment dosing.Treatment

	Combinations []*Combination

	ShowConfig   bool
	ShowDatabase bool

	flash  []string
	trials int
	steps  DoseSteps
}

// Defaults seeds new sessions.
type Defaults struct {
	Trials    int
	Steps     DoseSteps
	Treatment dosing.Treatment
}

func DefaultDefaults() Defaults {
	return Defaults{Trials: DefaultTrials, Steps: DefaultDoseSteps(), Treatment: dosing.DefaultTreatment()}
}

// New returns a session seeded with the default form values.
func New(id string, now time.Time, d Defaults) *Session {
	if d.Trials < MinTrials || d.Trials > MaxTrials {
		d.Trials = DefaultTrials
	}
	return &Session{
		ID:        id,
		CreatedAt: now,
		LastSeen:  now,
		Info:      DefaultInfo(now),
		RawWater:  DefaultRawWater(),
		Treatment: d.Treatment,
		trials:    d.Trials,
		steps:     d.Steps,
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// ShowConfigView, ShowDatabaseView and ShowHome switch the screen.
func (s *Session) ShowConfigView() {
	s.ShowConfig, s.ShowDatabase = true, false
}

func (s *Session) ShowDatabaseView() {
	s.ShowConfig, s.ShowDatabase = false, true
}

func (s *Session) ShowHome() {
	s.ShowConfig, s.ShowDatabase = false, false
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(format string, args ...any) {
	s.flash = append(s.flash, fmt.Sprintf(format, args...))
}

// TakeFlash returns and clears the queued messages.
func (s *Session) TakeFlash() []string {
	out := s.flash
	s.flash = nil
	return out
}

// Combination returns the selected combination for key.
func (s *Session) Combination(key Key) (*Combination, bool) {
	for _, c := range s.Combinations {
		if c.Key == key {
			return c, true
		}
	}
	return nil, false
}

// AddCombination selects a reagent pair and seeds its grid.
func (s *Session) AddCombination(key Key, lists reagent.Lists) (*Combination, error) {
	if _, ok := s.Combination(key); ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCombo, key.Label())
	}
	c := &Combination{
		Key:        key,
		Coagulant:  lists.Coagulant(key.Coagulant),
		Flocculant: lists.Flocculant(key.Flocculant),
	}
	c.reseed(s.trials, s.RawWater, s.steps, s.Info.SampleVolumeL)
	s.Combinations = append(s.Combinations, c)
	return c, nil
}

// RemoveCombination drops a combination and its grid.
func (s *Session) RemoveCombination(key Key) error {
	for i, c := range s.Combinations {
		if c.Key == key {
			s.Combinations = append(s.Combinations[:i], s.Combinations[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCombination, key.Label())
}

// SetTrialCount resizes the grid of one combination.
func (s *Session) SetTrialCount(key Key, n int) error {
	if n < MinTrials || n > MaxTrials {
		return ErrTrialRange
	}
	c, ok := s.Combination(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCombination, key.Label())
	}
	c.resize(n, s.RawWater, s.steps, s.Info.SampleVolumeL)
	return nil
}

// Sync re-resolves every combination against the current reagent lists and
// discards the grid of any combination whose reagent definitions changed.
// It returns the labels of the grids that were reset.
func (s *Session) Sync(lists reagent.Lists) []string {
	var reset []string
	for _, c := range s.Combinations {
		coag := lists.Coagulant(c.Key.Coagulant)
		floc := lists.Flocculant(c.Key.Flocculant)
		if coag == c.Coagulant && floc == c.Flocculant {
			continue
		}
		c.Coagulant, c.Flocculant = coag, floc
		c.reseed(len(c.Trials), s.RawWater, s.steps, s.Info.SampleVolumeL)
		reset = append(reset, c.Label())
	}
	return reset
}

// SetInfo replaces the test metadata. A new sample volume rescales every
// dose volume.
func (s *Session) SetInfo(info Info) error {
	if err := info.Validate(); err != nil {
		return err
	}
	s.Info = info
	s.recomputeAll()
	return nil
}

// SetRawWater replaces the inlet characteristics and pushes the new inlet
// values into every trial row.
func (s *Session) SetRawWater(raw RawWater) {
	s.RawWater = raw
	for _, c := range s.Combinations {
		for i := range c.Trials {
			t := &c.Trials[i]
			t.CODIn = raw.COD()
			t.PHIn = raw.PH()
			t.TurbidityIn = raw.Turbidity()
			t.ColorIn = raw.Color()
			t.SuspendedIn = raw.SuspendedSolids()
			t.UV254In = raw.UV254()
			t.ConductivityIn = raw.Conductivity()
		}
	}
	s.recomputeAll()
}

// UpdateTrial replaces row i (0-based) of a grid with the operator's input
// and recomputes its derived columns.
func (s *Session) UpdateTrial(key Key, i int, t Trial) error {
	c, ok := s.Combination(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCombination, key.Label())
	}
	if i < 0 || i >= len(c.Trials) {
		return fmt.Errorf("trial %d out of range for %s", i+1, key.Label())
	}
	t.Number = i + 1
	if _, ok := dosing.Abatement(t.CODIn, t.CODOut); !ok {
		t.Abatement = c.Trials[i].Abatement
	}
	c.recompute(&t, s.Info.SampleVolumeL)
	c.Trials[i] = t
	return nil
}

func (s *Session) recomputeAll() {
	for _, c := range s.Combinations {
		for i := range c.Trials {
			c.recompute(&c.Trials[i], s.Info.SampleVolumeL)
		}
	}
}

// Measurements turns a grid into store rows ready to be appended.
func (s *Session) Measurements(key Key) ([]*store.Measurement, error) {
	c, ok := s.Combination(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCombination, key.Label())
	}

	out := make([]*store.Measurement, len(c.Trials))
	for i, t := range c.Trials {
		out[i] = &store.Measurement{
			TestDate:         s.Info.TestDate,
			Operator:         s.Info.Operator,
			Site:             s.Info.Site,
			WaterType:        s.Info.WaterType,
			SampleVolumeL:    s.Info.SampleVolumeL,
			CoagulationMin:   s.Info.CoagulationMin,
			CoagulationRPM:   s.Info.CoagulationRPM,
			FlocculationMin:  s.Info.FlocculationMin,
			FlocculationRPM:  s.Info.FlocculationRPM,
			Combination:      c.Label(),
			CoagulantName:    c.Key.Coagulant,
			FlocculantName:   c.Key.Flocculant,
			Trial:            t.Number,
			CoagulantML:      t.CoagulantML,
			FlocculantML:     t.FlocculantML,
			CODIn:            t.CODIn,
			PHIn:             t.PHIn,
			CODOut:           t.CODOut,
			PHOut:            t.PHOut,
			SludgeML:         t.SludgeML,
			TurbidityNote:    t.TurbidityNote,
			Abatement:        t.Abatement,
			TurbidityIn:      t.TurbidityIn,
			TurbidityOut:     t.TurbidityOut,
			ColorIn:          t.ColorIn,
			ColorOut:         t.ColorOut,
			SuspendedIn:      t.SuspendedIn,
			SuspendedOut:     t.SuspendedOut,
			UV254In:          t.UV254In,
			UV254Out:         t.UV254Out,
			ResidualAluminum: t.ResidualAluminum,
			ResidualIron:     t.ResidualIron,
			ConductivityIn:   t.ConductivityIn,
			ConductivityOut:  t.ConductivityOut,
		}
	}
	return out, nil
}

// Filter matches the stored records that belong to this session's test.
func (s *Session) Filter() store.Filter {
	return store.Filter{TestDate: s.Info.TestDate, Operator: s.Info.Operator, Site: s.Info.Site}
}
