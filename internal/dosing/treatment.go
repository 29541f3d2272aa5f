package dosing

// Treatment describes the plant flow a jar test is sized for.
type Treatment struct {
	FlowM3h     float64 `yaml:"flow_m3h" json:"flow_m3h"`
	HoursPerDay int     `yaml:"hours_per_day" json:"hours_per_day"`
	DaysPerYear int     `yaml:"days_per_year" json:"days_per_year"`
}

// DefaultTreatment is a plant running 10 m³/h around the clock, 330 days a year.
func DefaultTreatment() Treatment {
	return Treatment{FlowM3h: 10, HoursPerDay: 24, DaysPerYear: 330}
}

// Daily returns the treated volume per day in m³.
func (t Treatment) Daily() float64 {
	return t.FlowM3h * float64(t.HoursPerDay)
}

// Annual returns the treated volume per year in m³.
func (t Treatment) Annual() float64 {
	return t.Daily() * float64(t.DaysPerYear)
}

// AnnualConsumptionKg returns the kg of commercial product needed per year to
// dose annualM3 of water at commercialPPM. 1 ppm is 1 g/m³.
func AnnualConsumptionKg(commercialPPM, annualM3 float64) float64 {
	return commercialPPM * annualM3 / 1000
}

// AnnualCost prices a yearly consumption.
func AnnualCost(kg, pricePerKg float64) float64 {
	return kg * pricePerKg
}
