package reagent

// DefaultCoagulants is the built-in list used when coagulants.json is absent
// or unreadable.
func DefaultCoagulants() []Reagent {
	return []Reagent{
		None(KindCoagulant),
		{Name: "Ferric chloride (FeCl3)", Dilution: 1.0, Density: 1.45, ActivePct: 40, PricePerKg: 0.85},
		{Name: "Aluminium sulfate (Al2(SO4)3)", Dilution: 1.0, Density: 1.33, ActivePct: 48, PricePerKg: 0.65},
		{Name: "PAC (polyaluminium chloride)", Dilution: 1.0, Density: 1.33, ActivePct: 70, PricePerKg: 1.20},
		{Name: "Ferrous sulfate (FeSO4)", Dilution: 1.0, Density: 1.28, ActivePct: 35, PricePerKg: 0.45},
		{Name: "Lime (Ca(OH)2)", Dilution: 1.0, Density: 1.2, ActivePct: 85, PricePerKg: 0.25},
	}
}

// DefaultFlocculants is the built-in list used when flocculants.json is
// absent or unreadable.
func DefaultFlocculants() []Reagent {
	return []Reagent{
		None(KindFlocculant),
		{Name: "Anionic polyacrylamide", State: StateSolid, Dilution: 0.1, Density: 1.0, ActivePct: 90, PricePerKg: 12.5},
		{Name: "Cationic polyacrylamide", State: StateSolid, Dilution: 0.1, Density: 1.0, ActivePct: 90, PricePerKg: 14.0},
		{Name: "PolyDADMAC", State: StateLiquid, Dilution: 1.0, Density: 1.1, ActivePct: 40, PricePerKg: 3.2},
		{Name: "Chitosan", State: StateSolid, Dilution: 0.5, Density: 1.0, ActivePct: 85, PricePerKg: 45.0},
		{Name: "Sodium alginate", State: StateSolid, Dilution: 0.5, Density: 1.0, ActivePct: 95, PricePerKg: 28.0},
	}
}

func defaults(kind Kind) []Reagent {
	if kind == KindFlocculant {
		return DefaultFlocculants()
	}
	return DefaultCoagulants()
}
