// Package reagent manages the coagulant and flocculant definitions a jar test
// doses from.
package reagent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jarlab/jarlab/internal/dosing"
)

// NoneName is the sentinel entry pinned at index 0 of every list. It stands
// for "no reagent used" in a combination.
const NoneName = "None"

var (
	ErrNotFound  = errors.New("reagent not found")
	ErrDuplicate = errors.New("reagent already exists")
	ErrSentinel  = errors.New("the None entry cannot be added, renamed or removed")
	ErrEmptyName = errors.New("reagent name is required")
)

type Kind string

const (
	KindCoagulant  Kind = "coagulant"
	KindFlocculant Kind = "flocculant"
)

type State string

const (
	StateLiquid State = "liquid"
	StateSolid  State = "solid"
)

// Reagent is one coagulant or flocculant definition. State only matters for
// flocculants, where it changes the unit dosing is displayed in.
type Reagent struct {
	Name       string  `json:"name"`
	Dilution   float64 `json:"dilution"`
	Density    float64 `json:"density"`
	ActivePct  float64 `json:"active_fraction_pct"`
	PricePerKg float64 `json:"price_per_kg"`
	State      State   `json:"state,omitempty"`
}

// None returns the sentinel for the given kind.
func None(kind Kind) Reagent {
	r := Reagent{Name: NoneName, Dilution: 1, Density: 1, ActivePct: 100}
	if kind == KindFlocculant {
		r.State = StateLiquid
	}
	return r
}

func (r Reagent) IsNone() bool {
	return r.Name == NoneName
}

// VolumePerPPM is the mL (or g for solids) of prepared solution per kg of
// water for 1 ppm of commercial product.
func (r Reagent) VolumePerPPM() float64 {
	if r.IsNone() {
		return 0
	}
	return dosing.VolumePerPPM(r.Dilution, r.Density, r.ActivePct)
}

// ActivePPM converts a commercial dose of this reagent to active material.
func (r Reagent) ActivePPM(commercialPPM float64) float64 {
	if r.IsNone() {
		return 0
	}
	return dosing.ActivePPM(commercialPPM, r.ActivePct)
}

// DoseUnit is the display unit of VolumePerPPM.
func (r Reagent) DoseUnit() string {
	if r.State == StateSolid {
		return "g/kg"
	}
	return "mL/kg"
}

// Validate checks a definition before it is written to disk.
func (r Reagent) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.Dilution <= 0 {
		return fmt.Errorf("dilution must be positive, got %g", r.Dilution)
	}
	if r.Density <= 0 {
		return fmt.Errorf("density must be positive, got %g", r.Density)
	}
	if r.ActivePct <= 0 || r.ActivePct > 100 {
		return fmt.Errorf("active fraction must be in (0, 100], got %g", r.ActivePct)
	}
	if r.PricePerKg < 0 {
		return fmt.Errorf("price must not be negative, got %g", r.PricePerKg)
	}
	if r.State != "" && r.State != StateLiquid && r.State != StateSolid {
		return fmt.Errorf("invalid state %q", r.State)
	}
	return nil
}

// Find returns the entry called name, if any.
func Find(list []Reagent, name string) (Reagent, bool) {
	for _, r := range list {
		if r.Name == name {
			return r, true
		}
	}
	return Reagent{}, false
}

// Names lists entry names in order.
func Names(list []Reagent) []string {
	names := make([]string, len(list))
	for i, r := range list {
		names[i] = r.Name
	}
	return names
}

// pinSentinel moves the sentinel to index 0 without touching the relative
// order of the other entries, inserting one if the list has none.
func pinSentinel(list []Reagent, kind Kind) []Reagent {
	out := make([]Reagent, 0, len(list)+1)
	var sentinel *Reagent
	for i := range list {
		if list[i].IsNone() && sentinel == nil {
			sentinel = &list[i]
			continue
		}
		out = append(out, list[i])
	}
	head := None(kind)
	if sentinel != nil {
		head = *sentinel
	}
	return append([]Reagent{head}, out...)
}
