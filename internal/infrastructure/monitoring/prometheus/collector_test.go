package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, c MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewMetricsCollector_GoMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableGoMetrics: true}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "go_goroutines")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("events_total", "events", "kind").WithLabelValues("a").Add(2)

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_events_total{kind="a"} 2`)
}

func TestRegisterCounter_SameNameReturnsExisting(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("events_total", "events", "kind").WithLabelValues("a").Inc()
	c.RegisterCounter("events_total", "events", "kind").WithLabelValues("a").Inc()

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_events_total{kind="a"} 2`)
}

func TestRegister_TypeMismatchFallsBackToNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("things", "things")
	g := c.RegisterGauge("things", "things")

	assert.IsType(t, noopGaugeVec{}, g)
	assert.NotPanics(t, func() { g.WithLabelValues().Set(3) })
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterGauge("depth", "depth", "q").WithLabelValues("x").Set(7)
	c.RegisterHistogram("latency_seconds", "latency", nil, "op").WithLabelValues("read").Observe(0.2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_depth{q="x"} 7`)
	assert.Contains(t, out, `test_unit_latency_seconds_count{op="read"} 1`)
}

func TestConcurrentRegistration(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("shared_total", "shared").WithLabelValues().Inc()
		}()
	}
	wg.Wait()

	assert.Contains(t, scrapeMetrics(t, c), "test_unit_shared_total 20")
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("op_seconds", "op", nil)
	timer := NewTimer(h.WithLabelValues())
	time.Sleep(time.Millisecond)

	assert.Greater(t, timer.ObserveDuration(), time.Duration(0))
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_op_seconds_count 1")
}

func TestNoopCollector(t *testing.T) {
	m := NewAppMetrics(NewNoopCollector())
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/healthz", 200, time.Millisecond)
		m.ObserveCacheLookup(true)
		m.SetHealth("redis", false)
	})
}
