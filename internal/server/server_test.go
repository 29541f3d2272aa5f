package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarlab/jarlab/internal/reagent"
	"github.com/jarlab/jarlab/internal/server"
	"github.com/jarlab/jarlab/internal/session"
	"github.com/jarlab/jarlab/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ferric = "Ferric chloride (FeCl3)"
	poly   = "PolyDADMAC"
)

func setupTestServer(t *testing.T) (*server.Server, *store.SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()

	s, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := server.New(s, server.Options{Port: 8080, Token: "secret", ConfigDir: dir})
	srv.SetClock(func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) })
	return srv, s, dir
}

// client replays the token and session cookies like a browser would.
type client struct {
	t       *testing.T
	srv     *server.Server
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, srv *server.Server) *client {
	return &client{t: t, srv: srv, cookies: map[string]*http.Cookie{
		"jl_token": {Name: "jl_token", Value: srv.Token()},
	}}
}

func (c *client) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.srv.Handler().ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, target, nil)
}

func (c *client) post(target string, form url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, target, form)
}

func (c *client) addCombination(coag, floc string) string {
	c.t.Helper()
	w := c.post("/session/combinations", url.Values{"coagulant": {coag}, "flocculant": {floc}})
	require.Equal(c.t, http.StatusSeeOther, w.Code)
	return session.NewKey(coag, floc).ID()
}

func TestAuth_Unauthorized(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_TokenSetsCookie(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/?token="+srv.Token(), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "jl_token" && c.Value == srv.Token() {
			found = true
		}
	}
	assert.True(t, found, "expected jl_token cookie to be set")
}

func TestAuth_InvalidToken(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/?token=wrong", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_Logout(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	w := c.get("/?logout=1")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "", c.cookies["jl_token"].Value)
}

func TestAuth_LogoutEndsFormSession(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	c.get("/")
	require.Equal(t, 1, srv.Sessions().Len())

	w := c.get("/?logout=1")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, srv.Sessions().Len())
	assert.Equal(t, "", c.cookies["jl_session"].Value)
}

func TestHome_StartsSession(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	w := c.get("/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), ferric)
	assert.Contains(t, w.Body.String(), "No combination selected yet.")
	require.Contains(t, c.cookies, "jl_session")
	assert.Equal(t, 1, srv.Sessions().Len())

	// The same cookie keeps the same session.
	c.get("/")
	assert.Equal(t, 1, srv.Sessions().Len())
}

func TestHome_UnknownPath(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	assert.Equal(t, http.StatusNotFound, c.get("/nope").Code)
}

func TestAddCombination(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	c.addCombination(ferric, poly)
	body := c.get("/").Body.String()

	assert.Contains(t, body, "Ferric chloride (FeCl3) + PolyDADMAC")
	assert.Contains(t, body, `name="coag_ppm_3"`)
	assert.NotContains(t, body, `name="coag_ppm_4"`)
}

func TestAddCombination_Duplicate(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	c.addCombination(ferric, poly)
	c.addCombination(ferric, poly)

	assert.Contains(t, c.get("/").Body.String(), "combination already selected")
}

func TestAddCombination_UnknownReagent(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	c.addCombination("Unobtainium", reagent.NoneName)

	body := c.get("/").Body.String()
	assert.Contains(t, body, "Unknown coagulant")
	assert.Contains(t, body, "No combination selected yet.")
}

func TestRemoveCombination(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	id := c.addCombination(ferric, reagent.NoneName)
	w := c.post("/session/combinations/remove", url.Values{"id": {id}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, c.get("/").Body.String(), "No combination selected yet.")
}

func TestTrials_ResizeGrid(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	id := c.addCombination(ferric, poly)
	c.post("/session/trials", url.Values{"id": {id}, "count": {"6"}})

	assert.Contains(t, c.get("/").Body.String(), `name="coag_ppm_5"`)
}

func TestTrials_InvalidNumber(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	id := c.addCombination(ferric, poly)
	c.post("/session/trials", url.Values{"id": {id}, "cod_out_0": {"abc"}})

	assert.Contains(t, c.get("/").Body.String(), "cod_out_0: not a number")
}

func TestTrials_NonFiniteNumber(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	id := c.addCombination(ferric, poly)
	w := c.post("/session/trials", url.Values{"id": {id}, "cod_out_1": {"NaN"}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, c.get("/").Body.String(), "cod_out_1: not a finite number")
}

func TestSave_RejectsInfinityWithoutWriting(t *testing.T) {
	srv, s, _ := setupTestServer(t)
	c := newClient(t, srv)

	id := c.addCombination(ferric, poly)
	w := c.post("/session/save", url.Values{"id": {id}, "count": {"4"}, "cod_out_0": {"Inf"}})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, c.get("/").Body.String(), "cod_out_0: not a finite number")
	records, err := s.ListMeasurements(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSessionInfo_Invalid(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	c.post("/session/info", url.Values{"test_date": {"2024-03-15"}, "sample_volume_l": {"50"}})

	assert.Contains(t, c.get("/").Body.String(), "sample volume must be between 0.1 and 10 L")
}

func saveGrid(t *testing.T, c *client) {
	t.Helper()
	c.post("/session/info", url.Values{
		"test_date": {"2024-03-15"},
		"operator":  {"Ana"},
		"site":      {"Plant 1"},
		"raw_cod":   {"150"},
	})
	id := c.addCombination(ferric, poly)
	w := c.post("/session/save", url.Values{
		"id":          {id},
		"count":       {"4"},
		"cod_out_0":   {"120"},
		"cod_out_1":   {"60"},
		"cod_out_2":   {"45"},
		"cod_out_3":   {"50"},
		"sludge_ml_1": {"12"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
}

func TestSave_AppendsMeasurements(t *testing.T) {
	srv, s, _ := setupTestServer(t)
	c := newClient(t, srv)

	saveGrid(t, c)

	records, err := s.ListMeasurements(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)

	byTrial := make(map[int]*store.Measurement)
	for _, m := range records {
		byTrial[m.Trial] = m
	}
	second := byTrial[2]
	assert.Equal(t, "Ferric chloride (FeCl3) + PolyDADMAC", second.Combination)
	assert.Equal(t, "Plant 1", second.Site)
	assert.Equal(t, "Ana", second.Operator)
	assert.InDelta(t, 60.0, second.Abatement, 1e-9)
	assert.InDelta(t, 12.0, second.SludgeML, 1e-9)
	assert.InDelta(t, 86.2069, second.CoagulantML, 1e-3)

	assert.Contains(t, c.get("/").Body.String(), "Saved 4 trials")
}

func TestResults_ShowsBest(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	saveGrid(t, c)

	w := c.get("/results")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "70.0")
}

func TestReport_Downloads(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	saveGrid(t, c)

	txt := c.get("/report.txt")
	require.Equal(t, http.StatusOK, txt.Code)
	assert.Contains(t, txt.Header().Get("Content-Disposition"), "jar_test_report_2024-03-15.txt")
	assert.Contains(t, txt.Body.String(), "JAR TEST REPORT - WATER TREATMENT")
	assert.Contains(t, txt.Body.String(), "Plant 1")

	html := c.get("/report.html")
	require.Equal(t, http.StatusOK, html.Code)
	assert.Contains(t, html.Header().Get("Content-Type"), "text/html")

	pdf := c.get("/report.pdf")
	require.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, "application/pdf", pdf.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(pdf.Body.String(), "%PDF"))
}

func TestDatabase_ExportCSV(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	saveGrid(t, c)

	w := c.get("/database/export.csv?site=Plant+1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "jar_test_database_20240315.csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "id,"))

	empty := c.get("/database/export.csv?site=Elsewhere")
	assert.Len(t, strings.Split(strings.TrimSpace(empty.Body.String()), "\n"), 1)
}

func TestDatabase_ExportXLSX(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	saveGrid(t, c)

	w := c.get("/database/export.xlsx")

	require.Equal(t, http.StatusOK, w.Code)
	// xlsx files are zip archives
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))
}

func TestDatabase_Page(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	saveGrid(t, c)

	w := c.get("/database?site=Plant+1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/database/export.csv?site=Plant")
}

func TestDatabase_OperatorFilter(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	saveGrid(t, c)

	body := c.get("/database?operator=Ana").Body.String()
	assert.Contains(t, body, `<select id="operator" name="operator">`)
	assert.Contains(t, body, "<option selected>Ana</option>")
	assert.Contains(t, body, "4 of 4 records")

	body = c.get("/database?operator=Bea").Body.String()
	assert.Contains(t, body, "<option>Ana</option>")
	assert.Contains(t, body, "0 of 4 records")
	assert.Contains(t, body, "/database/export.csv?operator=Bea")
}

func TestViews_Redirect(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	require.Equal(t, http.StatusOK, c.get("/config").Code)
	w := c.get("/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/config", w.Header().Get("Location"))

	require.Equal(t, http.StatusOK, c.get("/database").Code)
	assert.Equal(t, "/database", c.get("/").Header().Get("Location"))

	c.get("/home")
	assert.Equal(t, http.StatusOK, c.get("/").Code)
}

func TestReagents_AddPersists(t *testing.T) {
	srv, _, dir := setupTestServer(t)
	c := newClient(t, srv)

	w := c.post("/config/reagents", url.Values{
		"kind":         {"coagulant"},
		"action":       {"add"},
		"name":         {"Test coagulant"},
		"dilution":     {"1"},
		"density":      {"1,2"},
		"active_pct":   {"50"},
		"price_per_kg": {"2"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/config", w.Header().Get("Location"))

	data, err := os.ReadFile(filepath.Join(dir, reagent.CoagulantsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Test coagulant")

	body := c.get("/config").Body.String()
	assert.Contains(t, body, "Added coagulant Test coagulant")
}

func TestReagents_UpdateMissing(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	c.post("/config/reagents", url.Values{
		"kind":     {"flocculant"},
		"action":   {"update"},
		"old_name": {"Ghost"},
		"name":     {"Ghost"},
	})

	assert.Contains(t, c.get("/config").Body.String(), "was not found; nothing was changed")
}

func TestReagents_ChangeResetsGrid(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	id := c.addCombination(ferric, reagent.NoneName)
	c.post("/session/trials", url.Values{"id": {id}, "cod_out_1": {"60"}})

	c.post("/config/reagents", url.Values{
		"kind":       {"coagulant"},
		"action":     {"update"},
		"old_name":   {ferric},
		"name":       {ferric},
		"density":    {"1.45"},
		"active_pct": {"20"},
	})

	assert.Contains(t, c.get("/config").Body.String(), "trials reset for Coagulant only: Ferric chloride (FeCl3)")
}

func TestParameters_Save(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	c.addCombination(ferric, poly)

	c.post("/config/parameters", url.Values{"selected": {"Residual iron"}})
	c.get("/home")
	body := c.get("/").Body.String()

	assert.Contains(t, body, `name="residual_fe_0"`)
	assert.NotContains(t, body, `name="residual_al_0"`)
}

func TestHealth(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	saveGrid(t, c)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp server.HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.MeasurementsCount)
	assert.Equal(t, 1, resp.Sessions)
	assert.Greater(t, resp.DBSizeBytes, int64(0))
}

func TestMeasurementsAPI(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)

	empty := c.get("/api/measurements")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, "[]", empty.Body.String())

	saveGrid(t, c)
	w := c.get("/api/measurements?combination=" + url.QueryEscape("Ferric chloride (FeCl3) + PolyDADMAC"))

	var rows []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "Plant 1", rows[0]["site"])
}

func TestMetrics(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	c := newClient(t, srv)
	saveGrid(t, c)
	c.get("/report.txt")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "jarlab_saved_trials_total 4")
	assert.Contains(t, body, `jarlab_reports_total{format="txt"} 1`)
	assert.Contains(t, body, `jarlab_http_requests_total{code="200",route="/report.txt"} 1`)
}
