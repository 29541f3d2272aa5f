package server

import (
	"errors"
	"net/http"

	"github.com/jarlab/jarlab/internal/parameter"
	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/session"
	"go.uber.org/zap"
)

// postOnly rejects anything but POST and parses the form.
func postOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return false
	}
	return true
}

func back(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !postOnly(w, r) {
		return
	}
	defer back(w, r, "/")

	info, err := parseInfo(r, sess.Info)
	if err != nil {
		sess.AddFlash("%v", err)
		return
	}
	raw, err := parseRawWater(r, sess.RawWater)
	if err != nil {
		sess.AddFlash("%v", err)
		return
	}

	treatment := sess.Treatment
	if treatment.FlowM3h, err = formFloat(r, "flow_m3h", treatment.FlowM3h); err != nil {
		sess.AddFlash("%v", err)
		return
	}
	if treatment.HoursPerDay, err = formInt(r, "hours_per_day", treatment.HoursPerDay); err != nil {
		sess.AddFlash("%v", err)
		return
	}
	if treatment.DaysPerYear, err = formInt(r, "days_per_year", treatment.DaysPerYear); err != nil {
		sess.AddFlash("%v", err)
		return
	}

	if err := sess.SetInfo(info); err != nil {
		sess.AddFlash("%v", err)
		return
	}
	sess.SetRawWater(raw)
	sess.Treatment = treatment
}

func (s *Server) handleAddCombination(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !postOnly(w, r) {
		return
	}
	defer back(w, r, "/")

	lists, _ := s.loadConfig()
	key := session.NewKey(r.PostFormValue("coagulant"), r.PostFormValue("flocculant"))
	if key.HasCoagulant() {
		if _, ok := reagent.Find(lists.Coagulants, key.Coagulant); !ok {
			sess.AddFlash("Unknown coagulant %q", key.Coagulant)
			return
		}
	}
	if key.HasFlocculant() {
		if _, ok := reagent.Find(lists.Flocculants, key.Flocculant); !ok {
			sess.AddFlash("Unknown flocculant %q", key.Flocculant)
			return
		}
	}

	if _, err := sess.AddCombination(key, lists); err != nil {
		sess.AddFlash("%v", err)
	}
}

func (s *Server) handleRemoveCombination(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !postOnly(w, r) {
		return
	}
	defer back(w, r, "/")

	key, err := session.ParseID(r.PostFormValue("id"))
	if err != nil {
		sess.AddFlash("%v", err)
		return
	}
	if err := sess.RemoveCombination(key); err != nil {
		sess.AddFlash("%v", err)
	}
}

func (s *Server) handleTrials(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !postOnly(w, r) {
		return
	}
	defer back(w, r, "/")

	if _, err := s.applyGrid(r, sess); err != nil {
		sess.AddFlash("%v", err)
	}
}

// applyGrid writes the posted grid rows into the session, then applies the
// posted trial count.
func (s *Server) applyGrid(r *http.Request, sess *session.Session) (session.Key, error) {
	key, err := session.ParseID(r.PostFormValue("id"))
	if err != nil {
		return key, err
	}
	c, ok := sess.Combination(key)
	if !ok {
		return key, session.ErrUnknownCombination
	}

	for i := range c.Trials {
		t, err := parseTrial(r, i, c.Trials[i])
		if err != nil {
			return key, err
		}
		if err := sess.UpdateTrial(key, i, t); err != nil {
			return key, err
		}
	}

	n, err := formInt(r, "count", len(c.Trials))
	if err != nil {
		return key, err
	}
	if n != len(c.Trials) {
		if err := sess.SetTrialCount(key, n); err != nil {
			return key, err
		}
	}
	return key, nil
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !postOnly(w, r) {
		return
	}

	key, err := s.applyGrid(r, sess)
	if err != nil {
		sess.AddFlash("%v", err)
		back(w, r, "/")
		return
	}

	ms, err := sess.Measurements(key)
	if err != nil {
		sess.AddFlash("%v", err)
		back(w, r, "/")
		return
	}
	if err := s.store.AppendMeasurements(r.Context(), ms); err != nil {
		s.serverError(w, "failed to save measurements", err)
		return
	}

	s.metrics.SavedTrials.Add(float64(len(ms)))
	s.logger.Info("saved trial grid",
		zap.String("combination", key.Label()),
		zap.Int("trials", len(ms)),
		zap.String("date", sess.Info.TestDate),
		zap.String("site", sess.Info.Site))
	sess.AddFlash("Saved %d trials for %s", len(ms), key.Label())
	back(w, r, "/")
}

func (s *Server) handleReagents(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !postOnly(w, r) {
		return
	}
	defer back(w, r, "/config")

	kind, err := reagent.ParseKind(r.PostFormValue("kind"))
	if err != nil {
		sess.AddFlash("%v", err)
		return
	}
	fs := s.catalog.Store(kind)

	switch action := r.PostFormValue("action"); action {
	case "add":
		re, err := parseReagent(r)
		if err == nil {
			_, err = fs.Add(re)
		}
		if err != nil {
			sess.AddFlash("Could not add %s: %v", kind, err)
			return
		}
		sess.AddFlash("Added %s %s", kind, re.Name)
	case "update":
		old := r.PostFormValue("old_name")
		re, err := parseReagent(r)
		if err == nil {
			_, err = fs.Update(old, re)
		}
		if errors.Is(err, reagent.ErrNotFound) {
			sess.AddFlash("%s %q was not found; nothing was changed", kind, old)
			return
		}
		if err != nil {
			sess.AddFlash("Could not update %s: %v", kind, err)
			return
		}
		sess.AddFlash("Updated %s %s", kind, re.Name)
	case "delete":
		name := r.PostFormValue("old_name")
		if _, err := fs.Delete(name); err != nil {
			sess.AddFlash("Could not delete %s: %v", kind, err)
			return
		}
		sess.AddFlash("Deleted %s %s", kind, name)
	default:
		sess.AddFlash("Unknown action %q", action)
		return
	}

	s.logger.Info("reagent list changed", zap.String("kind", string(kind)), zap.String("path", fs.Path))
	lists, _ := s.loadConfig()
	for _, label := range sess.Sync(lists) {
		sess.AddFlash("Reagent definitions changed, trials reset for %s", label)
	}
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !postOnly(w, r) {
		return
	}
	defer back(w, r, "/config")

	sel, _ := s.params.Load()
	var selected []parameter.Parameter
	for _, v := range r.PostForm["selected"] {
		selected = append(selected, parameter.Parameter(v))
	}
	sel.Set(selected)

	if err := s.params.Save(sel); err != nil {
		s.logger.Error("failed to save parameters", zap.Error(err))
		sess.AddFlash("Could not save the parameter selection: %v", err)
		return
	}
	sess.AddFlash("Parameter selection saved")
}
