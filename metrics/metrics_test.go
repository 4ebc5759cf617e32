package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePipeline(t *testing.T) {
	before := testutil.ToFloat64(pipelineOutcomes.WithLabelValues("failed", "extract"))
	ObservePipeline("failed", "extract", 3*time.Second)
	after := testutil.ToFloat64(pipelineOutcomes.WithLabelValues("failed", "extract"))
	assert.Equal(t, before+1, after)
}

func TestObserveStageAndQueue(t *testing.T) {
	ObserveStage("generate", errors.New("boom"), time.Second)
	ObserveStage("generate", nil, time.Second)

	SetQueueDepth(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(queueDepth))

	before := testutil.ToFloat64(queueRejected)
	IncQueueRejected()
	assert.Equal(t, before+1, testutil.ToFloat64(queueRejected))
}

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/v1/entries/{entry_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entries/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	got := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/v1/entries/{entry_id}", "404"))
	assert.GreaterOrEqual(t, got, float64(1))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "echo_http_requests_total"))
}
