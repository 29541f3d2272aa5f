package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/jarlab/jarlab/internal/dashboard"
	"github.com/jarlab/jarlab/internal/dosing"
	"github.com/jarlab/jarlab/internal/jsonfile"
	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/session"
	"github.com/jarlab/jarlab/internal/stats"
	"github.com/jarlab/jarlab/internal/store"
	"go.uber.org/zap"
)

// Dashboard template data structures
type layoutData struct {
	Title   string
	CSS     template.CSS
	Flash   []string
	Content template.HTML
}

type homeData struct {
	Info         session.Info
	WaterTypes   []string
	RawWater     []rawInput
	Treatment    dosing.Treatment
	Daily        float64
	Annual       float64
	Coagulants   []string
	Flocculants  []string
	Combinations []comboView
	Columns      []trialColumn
	MinTrials    int
	MaxTrials    int
}

type rawInput struct {
	Name  string
	Label string
	Value float64
}

type comboView struct {
	ID       string
	Label    string
	CoagDose string
	FlocDose string
	Count    int
	Rows     []rowView
}

type rowView struct {
	Index         int
	Number        int
	Cells         []cellView
	TurbidityNote string
	CoagML        float64
	FlocML        float64
	CoagActive    float64
	FlocActive    float64
	Abatement     float64
}

type cellView struct {
	Name  string
	Value float64
}

type resultsData struct {
	Filter    store.Filter
	Summaries []stats.CombinationSummary
	Best      *store.Measurement
	Count     int
}

type configData struct {
	Coagulants  []reagentView
	Flocculants []reagentView
	Selection   []paramView
	Warnings    []string
}

type reagentView struct {
	reagent.Reagent
	Kind     reagent.Kind
	Dose     float64
	Unit     string
	Sentinel bool
}

type paramView struct {
	Name     parameter.Parameter
	Unit     string
	Selected bool
}

type databaseData struct {
	Filter       store.Filter
	Dates        []string
	Operators    []string
	Sites        []string
	Combinations []string
	Records      []*store.Measurement
	Total        int
	CSVURL       template.URL
	XLSXURL      template.URL
}

var templateFuncs = template.FuncMap{
	"f0": func(v float64) string { return fmt.Sprintf("%.0f", v) },
	"f1": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"f2": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"f4": func(v float64) string { return fmt.Sprintf("%.4f", v) },
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch {
	case sess.ShowConfig:
		http.Redirect(w, r, "/config", http.StatusFound)
		return
	case sess.ShowDatabase:
		http.Redirect(w, r, "/database", http.StatusFound)
		return
	}

	lists, sel := s.loadConfig()
	for _, label := range sess.Sync(lists) {
		sess.AddFlash("Reagent definitions changed, trials reset for %s", label)
	}

	data := homeData{
		Info:        sess.Info,
		WaterTypes:  session.WaterTypes,
		Treatment:   sess.Treatment,
		Daily:       sess.Treatment.Daily(),
		Annual:      sess.Treatment.Annual(),
		Coagulants:  reagent.Names(lists.Coagulants),
		Flocculants: reagent.Names(lists.Flocculants),
		Columns:     visibleColumns(sel),
		MinTrials:   session.MinTrials,
		MaxTrials:   session.MaxTrials,
	}

	for _, p := range sel.Selected {
		if p.HasInlet() {
			data.RawWater = append(data.RawWater, rawInput{
				Name:  rawFieldName(p),
				Label: fmt.Sprintf("%s (%s)", p, p.Unit()),
				Value: sess.RawWater[p],
			})
		}
	}

	for _, c := range sess.Combinations {
		data.Combinations = append(data.Combinations, s.comboView(c, data.Columns))
	}

	s.renderDashboard(w, sess, "Jar test", "home.html", data)
}

func (s *Server) comboView(c *session.Combination, cols []trialColumn) comboView {
	v := comboView{
		ID:    c.Key.ID(),
		Label: c.Label(),
		Count: len(c.Trials),
	}
	if !c.Coagulant.IsNone() {
		v.CoagDose = fmt.Sprintf("%s: %.4f %s per ppm", c.Coagulant.Name, c.Coagulant.VolumePerPPM(), c.Coagulant.DoseUnit())
	}
	if !c.Flocculant.IsNone() {
		v.FlocDose = fmt.Sprintf("%s: %.4f %s per ppm", c.Flocculant.Name, c.Flocculant.VolumePerPPM(), c.Flocculant.DoseUnit())
	}

	for i := range c.Trials {
		t := c.Trials[i]
		coagActive, flocActive := c.ActivePPM(i)
		row := rowView{
			Index:         i,
			Number:        t.Number,
			TurbidityNote: t.TurbidityNote,
			CoagML:        t.CoagulantML,
			FlocML:        t.FlocculantML,
			CoagActive:    coagActive,
			FlocActive:    flocActive,
			Abatement:     t.Abatement,
		}
		for _, col := range cols {
			row.Cells = append(row.Cells, cellView{
				Name:  fmt.Sprintf("%s_%d", col.Name, i),
				Value: *col.field(&t),
			})
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

func (s *Server) handleShowHome(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.ShowHome()
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := s.store.ListMeasurements(r.Context())
	if err != nil {
		s.serverError(w, "failed to list measurements", err)
		return
	}

	current := sess.Filter().Apply(records)
	data := resultsData{
		Filter:    sess.Filter(),
		Summaries: stats.Summarize(current),
		Count:     len(current),
	}
	if best, ok := stats.Best(current); ok {
		data.Best = best
	}

	s.renderDashboard(w, sess, "Results", "results.html", data)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess.ShowConfigView()

	lists, errs := s.catalog.Load()
	sel, perr := s.params.Load()
	if perr != nil {
		errs = append(errs, perr)
	}
	s.logFallbacks(errs)

	data := configData{
		Coagulants:  reagentViews(lists.Coagulants, reagent.KindCoagulant),
		Flocculants: reagentViews(lists.Flocculants, reagent.KindFlocculant),
	}
	for _, p := range sel.Available {
		data.Selection = append(data.Selection, paramView{Name: p, Unit: p.Unit(), Selected: sel.Has(p)})
	}
	for _, err := range errs {
		if jsonfile.IsCorrupt(err) {
			data.Warnings = append(data.Warnings, err.Error())
		}
	}

	s.renderDashboard(w, sess, "Reagents & parameters", "config.html", data)
}

func reagentViews(list []reagent.Reagent, kind reagent.Kind) []reagentView {
	out := make([]reagentView, len(list))
	for i, r := range list {
		out[i] = reagentView{
			Reagent:  r,
			Kind:     kind,
			Dose:     r.VolumePerPPM(),
			Unit:     r.DoseUnit(),
			Sentinel: r.IsNone(),
		}
	}
	return out
}

func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess.ShowDatabaseView()

	records, err := s.store.ListMeasurements(r.Context())
	if err != nil {
		s.serverError(w, "failed to list measurements", err)
		return
	}

	f := queryFilter(r.URL.Query())
	data := databaseData{
		Filter:       f,
		Dates:        store.Distinct(records, store.ByDate),
		Operators:    store.Distinct(records, store.ByOperator),
		Sites:        store.Distinct(records, store.BySite),
		Combinations: store.Distinct(records, store.ByCombination),
		Records:      f.Apply(records),
		Total:        len(records),
		CSVURL:       template.URL("/database/export.csv?" + filterQuery(f)),
		XLSXURL:      template.URL("/database/export.xlsx?" + filterQuery(f)),
	}

	s.renderDashboard(w, sess, "Database", "database.html", data)
}

func queryFilter(q url.Values) store.Filter {
	return store.Filter{
		TestDate:    q.Get("date"),
		Operator:    q.Get("operator"),
		Site:        q.Get("site"),
		Combination: q.Get("combination"),
	}
}

func filterQuery(f store.Filter) string {
	q := url.Values{}
	for k, v := range map[string]string{"date": f.TestDate, "operator": f.Operator, "site": f.Site, "combination": f.Combination} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q.Encode()
}

// loadConfig reads the reagent lists and parameter selection, logging any
// fallback to the built-in defaults.
func (s *Server) loadConfig() (reagent.Lists, parameter.Selection) {
	lists, errs := s.catalog.Load()
	sel, err := s.params.Load()
	if err != nil {
		errs = append(errs, err)
	}
	s.logFallbacks(errs)
	return lists, sel
}

func (s *Server) logFallbacks(errs []error) {
	for _, err := range errs {
		var le *jsonfile.LoadError
		if !errors.As(err, &le) {
			s.logger.Error("config load failed", zap.Error(err))
			continue
		}
		s.metrics.ConfigFallback.WithLabelValues(le.Path, string(le.Reason)).Inc()
		if le.Reason == jsonfile.ReasonCorrupt {
			s.logger.Warn("config file unreadable, using defaults", zap.String("path", le.Path), zap.Error(le.Err))
		} else {
			s.logger.Debug("config file absent, using defaults", zap.String("path", le.Path))
		}
	}
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (s *Server) renderDashboard(w http.ResponseWriter, sess *session.Session, title, contentTemplate string, data interface{}) {
	// Load CSS
	cssBytes, err := dashboard.Assets.ReadFile("assets/style.css")
	if err != nil {
		http.Error(w, "Failed to load styles", http.StatusInternalServerError)
		return
	}

	// Load and execute content template
	contentTmplBytes, err := dashboard.Templates.ReadFile("templates/" + contentTemplate)
	if err != nil {
		http.Error(w, "Failed to load template", http.StatusInternalServerError)
		return
	}

	contentTmpl, err := template.New("content").Funcs(templateFuncs).Parse(string(contentTmplBytes))
	if err != nil {
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return
	}

	var contentBuf bytes.Buffer
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render template: %v", err), http.StatusInternalServerError)
		return
	}

	// Load and execute layout template
	layoutTmplBytes, err := dashboard.Templates.ReadFile("templates/layout.html")
	if err != nil {
		http.Error(w, "Failed to load layout", http.StatusInternalServerError)
		return
	}

	layoutTmpl, err := template.New("layout").Parse(string(layoutTmplBytes))
	if err != nil {
		http.Error(w, "Failed to parse layout", http.StatusInternalServerError)
		return
	}

	layoutData := layoutData{
		Title:   title,
		CSS:     template.CSS(cssBytes),
		Flash:   sess.TakeFlash(),
		Content: template.HTML(contentBuf.String()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layoutTmpl.Execute(w, layoutData); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}
