package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/api/ideas/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/ideas/{id}", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/ideas/abc", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/ideas/{id}", "418"))

	assert.Equal(t, before+1, after)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(domainEvents.WithLabelValues("idea_created"))
	RecordDomainEvent("idea_created")
	assert.Equal(t, before+1, testutil.ToFloat64(domainEvents.WithLabelValues("idea_created")))

	beforeJob := testutil.ToFloat64(jobRuns.WithLabelValues("unknown", "true"))
	RecordJobRun("", true)
	assert.Equal(t, beforeJob+1, testutil.ToFloat64(jobRuns.WithLabelValues("unknown", "true")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordRealtimeDrop("newIdea")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "idea_incubator_realtime_dropped_events_total"))
}
