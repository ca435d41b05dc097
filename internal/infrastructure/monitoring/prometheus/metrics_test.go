package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	m := NewAppMetrics(c)
	require.NotNil(t, m)
	return m, c
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.RecordHTTPRequest("GET", "/api/v1/alerts/summary", 200, 40*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="GET",route="/api/v1/alerts/summary",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_http_request_duration_seconds_count{method="GET",route="/api/v1/alerts/summary"} 1`)
}

func TestObserveSourceQuery(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.ObserveSourceQuery("training", 5*time.Millisecond, nil)
	m.ObserveSourceQuery("training", 5*time.Millisecond, errors.New("timeout"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_record_source_queries_total{kind="training",status="ok"} 1`)
	assert.Contains(t, out, `test_unit_record_source_queries_total{kind="training",status="error"} 1`)
	assert.Contains(t, out, `test_unit_record_source_query_duration_seconds_count{kind="training"} 2`)
}

func TestObserveCacheLookup(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, out, `test_unit_cache_lookups_total{result="miss"} 2`)
}

func TestRecordDigestRun(t *testing.T) {
	m, c := newTestAppMetrics(t)
	at := time.Unix(1737360000, 0)
	m.RecordDigestRun(DigestRun{Published: 3, Skipped: 1, Failed: 1, Duration: time.Second, At: at})
	m.RecordDigestRun(DigestRun{Err: errors.New("lock"), At: at})

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_digest_runs_total{status="partial"} 1`)
	assert.Contains(t, out, `test_unit_digest_runs_total{status="error"} 1`)
	assert.Contains(t, out, `test_unit_digest_tenants_total{outcome="published"} 3`)
	assert.Contains(t, out, `test_unit_digest_tenants_total{outcome="failed"} 1`)
	assert.Contains(t, out, "test_unit_digest_last_run_timestamp_seconds 1.73736e+09")
}

func TestSetHealthAndAuthFailure(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.SetHealth("postgres", true)
	m.SetHealth("redis", false)
	m.RecordAuthFailure("expired")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_health_check_status{component="postgres"} 1`)
	assert.Contains(t, out, `test_unit_health_check_status{component="redis"} 0`)
	assert.Contains(t, out, `test_unit_auth_failures_total{reason="expired"} 1`)
}
