// Package dosing converts between commercial volumes, commercial ppm and
// active ppm for jar test reagents.
//
// All functions are total: degenerate inputs (a zero dilution, density or
// active fraction) yield 0 instead of a division by zero. Negative inputs are
// not rejected here; the config write path validates reagent definitions.
package dosing

import "math"

// DefaultWaterVolume is the water volume (L) the ppm conversions assume when
// the caller has no sample volume of its own.
const DefaultWaterVolume = 1.0

// VolumePerPPM returns the volume of commercial solution (mL per kg of water)
// that delivers 1 ppm of product.
func VolumePerPPM(dilution, density, activePct float64) float64 {
	if dilution == 0 || density == 0 || activePct == 0 {
		return 0
	}
	return 1 / (density * (activePct / 100) * dilution)
}

// PPMFromVolume returns the commercial ppm delivered by volumeML of solution
// into waterL litres of sample.
func PPMFromVolume(volumeML, volumePerPPM, waterL float64) float64 {
	if volumePerPPM == 0 {
		return 0
	}
	return (volumeML / waterL) * (1 / volumePerPPM)
}

// ActivePPM converts a commercial dose to the active-material dose.
func ActivePPM(commercialPPM, activePct float64) float64 {
	return commercialPPM * activePct / 100
}

// CommercialVolume returns the mL of commercial solution needed to reach
// commercialPPM in waterL litres.
func CommercialVolume(commercialPPM, volumePerPPM, waterL float64) float64 {
	return commercialPPM * volumePerPPM * waterL
}

// Abatement returns the percentage reduction between an inlet and an outlet
// measurement. ok is false unless both values are finite and strictly
// positive, in which case the caller keeps whatever abatement it already had.
func Abatement(inlet, outlet float64) (pct float64, ok bool) {
	if !finite(inlet) || !finite(outlet) || inlet <= 0 || outlet <= 0 {
		return 0, false
	}
	return (inlet - outlet) / inlet * 100, true
}

// Seeding steps for a fresh trial grid.
const (
	CoagulantStepPPM  = 50.0
	FlocculantDosePPM = 1.0
)

// DefaultCommercialDoses returns the seeded commercial doses for the 0-based
// trial index. The first trial is always an undosed reference; later trials
// step the coagulant by CoagulantStepPPM and give a flat flocculant dose.
func DefaultCommercialDoses(trial int, hasCoagulant, hasFlocculant bool) (coagPPM, flocPPM float64) {
	return SteppedDoses(trial, hasCoagulant, hasFlocculant, CoagulantStepPPM, FlocculantDosePPM)
}

// SteppedDoses is DefaultCommercialDoses with explicit step values.
func SteppedDoses(trial int, hasCoagulant, hasFlocculant bool, coagStep, flocDose float64) (coagPPM, flocPPM float64) {
	if trial <= 0 {
		return 0, 0
	}
	if hasCoagulant {
		coagPPM = float64(trial) * coagStep
	}
	if hasFlocculant {
		flocPPM = flocDose
	}
	return coagPPM, flocPPM
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
