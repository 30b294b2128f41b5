package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsCount(t *testing.T) {
	m := New()
	m.RowsLoaded.Add(3)
	m.RowsSkipped.Inc()
	m.Questions.WithLabelValues("ok").Inc()
	m.Questions.WithLabelValues("error").Add(2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Questions.WithLabelValues("error")))
}

func TestObserveLLM(t *testing.T) {
	m := New()
	m.ObserveLLM("cypher", time.Now().Add(-time.Second))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LLMDuration, "amrgraph_qa_llm_duration_seconds"))
}

func TestInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestMetricsEndpoint(t *testing.T) {
	m := New()
	m.GenesLinked.Inc()

	rec := httptest.NewRecorder()
	m.Mux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "amrgraph_ingest_genes_linked_total 1"), body)
}

func TestHealthEndpoint(t *testing.T) {
	m := New()
	healthy := true
	mux := m.Mux(func(context.Context) error {
		if !healthy {
			return errors.New("neo4j unreachable")
		}
		return nil
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreachable")
}

func TestNoHealthRouteWithoutCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Mux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
