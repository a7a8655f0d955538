package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncOperation("increment")
	pr.IncOperation("increment")
	pr.IncOperation("decrement")
	pr.IncCompletion()
	pr.SetState(5, 2, 221)
	pr.IncPersistFailure("json")
	pr.ObservePersistDuration("json", 150*time.Millisecond, OutcomeSuccess)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.operations.WithLabelValues("increment")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.operations.WithLabelValues("decrement")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.completions), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(pr.count), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.round), 0)
	assert.InDelta(t, 221, testutil.ToFloat64(pr.total), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.persistFailures.WithLabelValues("json")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestPrometheusRecorderNilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncOperation("increment")
	pr.IncCompletion()
	pr.SetState(1, 1, 1)
	pr.IncPersistFailure("json")
	pr.ObservePersistDuration("json", time.Second, OutcomeFailed)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncCompletion()

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "malacounter_rounds_completed_total"))
}
