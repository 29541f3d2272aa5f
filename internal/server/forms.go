package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/session"
)

// trialColumn is an editable numeric column of the trial grid. Columns tied
// to a parameter are only shown while that parameter is selected.
type trialColumn struct {
	Name  string
	Label string
	param parameter.Parameter
	field func(*session.Trial) *float64
}

var trialColumns = []trialColumn{
	{"coag_ppm", "Coag (ppm)", "", func(t *session.Trial) *float64 { return &t.CoagulantPPM }},
	{"floc_ppm", "Floc (ppm)", "", func(t *session.Trial) *float64 { return &t.FlocculantPPM }},
	{"cod_in", "COD in", "", func(t *session.Trial) *float64 { return &t.CODIn }},
	{"cod_out", "COD out", "", func(t *session.Trial) *float64 { return &t.CODOut }},
	{"ph_in", "pH in", "", func(t *session.Trial) *float64 { return &t.PHIn }},
	{"ph_out", "pH out", "", func(t *session.Trial) *float64 { return &t.PHOut }},
	{"sludge_ml", "Sludge (mL)", "", func(t *session.Trial) *float64 { return &t.SludgeML }},
	{"turbidity_in", "Turb. in", parameter.Turbidity, func(t *session.Trial) *float64 { return &t.TurbidityIn }},
	{"turbidity_out", "Turb. out", parameter.Turbidity, func(t *session.Trial) *float64 { return &t.TurbidityOut }},
	{"color_in", "Color in", parameter.Color, func(t *session.Trial) *float64 { return &t.ColorIn }},
	{"color_out", "Color out", parameter.Color, func(t *session.Trial) *float64 { return &t.ColorOut }},
	{"conductivity_in", "Cond. in", parameter.Conductivity, func(t *session.Trial) *float64 { return &t.ConductivityIn }},
	{"conductivity_out", "Cond. out", parameter.Conductivity, func(t *session.Trial) *float64 { return &t.ConductivityOut }},
	{"suspended_in", "SS in", parameter.SuspendedSolids, func(t *session.Trial) *float64 { return &t.SuspendedIn }},
	{"suspended_out", "SS out", parameter.SuspendedSolids, func(t *session.Trial) *float64 { return &t.SuspendedOut }},
	{"uv254_in", "UV254 in", parameter.UV254, func(t *session.Trial) *float64 { return &t.UV254In }},
	{"uv254_out", "UV254 out", parameter.UV254, func(t *session.Trial) *float64 { return &t.UV254Out }},
	{"residual_al", "Resid. Al", parameter.ResidualAluminum, func(t *session.Trial) *float64 { return &t.ResidualAluminum }},
	{"residual_fe", "Resid. Fe", parameter.ResidualIron, func(t *session.Trial) *float64 { return &t.ResidualIron }},
}

func visibleColumns(sel parameter.Selection) []trialColumn {
	var out []trialColumn
	for _, c := range trialColumns {
		if c.param == "" || sel.Has(c.param) {
			out = append(out, c)
		}
	}
	return out
}

// formError is a user input problem, reported back as a flash message.
type formError struct {
	field string
	msg   string
}

func (e *formError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.msg)
}

func formFloat(r *http.Request, name string, fallback float64) (float64, error) {
	v := strings.TrimSpace(r.PostFormValue(name))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return 0, &formError{field: name, msg: "not a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &formError{field: name, msg: "not a finite number"}
	}
	return f, nil
}

func formInt(r *http.Request, name string, fallback int) (int, error) {
	v := strings.TrimSpace(r.PostFormValue(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &formError{field: name, msg: "not a whole number"}
	}
	return n, nil
}

// parseInfo reads the test metadata form over the current values.
func parseInfo(r *http.Request, cur session.Info) (session.Info, error) {
	info := cur
	info.TestDate = strings.TrimSpace(r.PostFormValue("test_date"))
	info.Operator = strings.TrimSpace(r.PostFormValue("operator"))
	info.Site = strings.TrimSpace(r.PostFormValue("site"))
	if wt := r.PostFormValue("water_type"); wt != "" {
		info.WaterType = wt
	}

	var err error
	if info.SampleVolumeL, err = formFloat(r, "sample_volume_l", cur.SampleVolumeL); err != nil {
		return cur, err
	}
	if info.CoagulationMin, err = formInt(r, "coagulation_min", cur.CoagulationMin); err != nil {
		return cur, err
	}
	if info.CoagulationRPM, err = formInt(r, "coagulation_rpm", cur.CoagulationRPM); err != nil {
		return cur, err
	}
	if info.FlocculationMin, err = formInt(r, "flocculation_min", cur.FlocculationMin); err != nil {
		return cur, err
	}
	if info.FlocculationRPM, err = formInt(r, "flocculation_rpm", cur.FlocculationRPM); err != nil {
		return cur, err
	}
	return info, nil
}

// rawFieldName is the form name of a raw-water parameter.
func rawFieldName(p parameter.Parameter) string {
	return "raw_" + strings.ToLower(strings.ReplaceAll(string(p), " ", "_"))
}

func parseRawWater(r *http.Request, cur session.RawWater) (session.RawWater, error) {
	raw := make(session.RawWater, len(cur))
	for p, v := range cur {
		raw[p] = v
	}
	for _, p := range parameter.All {
		if !p.HasInlet() {
			continue
		}
		v, err := formFloat(r, rawFieldName(p), cur[p])
		if err != nil {
			return cur, err
		}
		raw[p] = v
	}
	return raw, nil
}

// parseTrial reads row i of a grid form over the current row.
func parseTrial(r *http.Request, i int, cur session.Trial) (session.Trial, error) {
	t := cur
	for _, c := range trialColumns {
		name := fmt.Sprintf("%s_%d", c.Name, i)
		p := c.field(&t)
		v, err := formFloat(r, name, *p)
		if err != nil {
			return cur, err
		}
		*p = v
	}
	if note, ok := r.PostForm[fmt.Sprintf("turbidity_note_%d", i)]; ok && len(note) > 0 {
		t.TurbidityNote = strings.TrimSpace(note[0])
	}
	return t, nil
}

func parseReagent(r *http.Request) (reagent.Reagent, error) {
	re := reagent.Reagent{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		State: reagent.State(r.PostFormValue("state")),
	}
	var err error
	if re.Dilution, err = formFloat(r, "dilution", 1); err != nil {
		return re, err
	}
	if re.Density, err = formFloat(r, "density", 1); err != nil {
		return re, err
	}
	if re.ActivePct, err = formFloat(r, "active_pct", 100); err != nil {
		return re, err
	}
	if re.PricePerKg, err = formFloat(r, "price_per_kg", 0); err != nil {
		return re, err
	}
	return re, nil
}
