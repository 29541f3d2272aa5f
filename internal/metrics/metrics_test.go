package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.SavedTrials.Add(4)
	m.Reports.WithLabelValues("pdf").Inc()
	m.Requests.WithLabelValues("/", "200").Inc()

	assert.Equal(t, 4.0, testutil.ToFloat64(m.SavedTrials))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reports.WithLabelValues("pdf")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.SavedTrials.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "jarlab_saved_trials_total 1"))
}

func TestNew_Independent(t *testing.T) {
	// separate registries, so building twice must not panic
	a, b := New(), New()
	assert.NotSame(t, a.Registry(), b.Registry())
}
