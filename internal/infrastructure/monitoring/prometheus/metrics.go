package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the service reports.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
	AuthFailuresTotal   CounterVec

	// Compliance record sources
	SourceQueriesTotal  CounterVec
	SourceQueryDuration HistogramVec

	// Cache
	CacheLookupsTotal CounterVec

	// Digest worker
	DigestRunsTotal       CounterVec
	DigestTenantsTotal    CounterVec
	DigestRunDuration     HistogramVec
	DigestLastRunUnixTime GaugeVec

	// Health
	HealthCheckStatus GaugeVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultRunDurationBuckets  = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300}
)

func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method"),
		AuthFailuresTotal:   c.RegisterCounter("auth_failures_total", "Rejected bearer tokens", "reason"),

		SourceQueriesTotal:  c.RegisterCounter("record_source_queries_total", "Compliance record source queries", "kind", "status"),
		SourceQueryDuration: c.RegisterHistogram("record_source_query_duration_seconds", "Compliance record source query duration", DefaultDBDurationBuckets, "kind"),

		CacheLookupsTotal: c.RegisterCounter("cache_lookups_total", "Cache lookups", "result"),

		DigestRunsTotal:       c.RegisterCounter("digest_runs_total", "Digest runs", "status"),
		DigestTenantsTotal:    c.RegisterCounter("digest_tenants_total", "Tenants processed by digest runs", "outcome"),
		DigestRunDuration:     c.RegisterHistogram("digest_run_duration_seconds", "Digest run duration", DefaultRunDurationBuckets),
		DigestLastRunUnixTime: c.RegisterGauge("digest_last_run_timestamp_seconds", "Unix time of the last finished digest run"),

		HealthCheckStatus: c.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component"),
	}
}

func (m *AppMetrics) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *AppMetrics) RecordAuthFailure(reason string) {
	m.AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveSourceQuery records one record source query.
func (m *AppMetrics) ObserveSourceQuery(kind string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SourceQueriesTotal.WithLabelValues(kind, status).Inc()
	m.SourceQueryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveCacheLookup records a cache hit or miss.
func (m *AppMetrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// DigestRun summarises one digest run for RecordDigestRun.
type DigestRun struct {
	Published int
	Skipped   int
	Failed    int
	Duration  time.Duration
	Err       error
	At        time.Time
}

func (m *AppMetrics) RecordDigestRun(r DigestRun) {
	status := "ok"
	switch {
	case r.Err != nil:
		status = "error"
	case r.Failed > 0:
		status = "partial"
	}
	m.DigestRunsTotal.WithLabelValues(status).Inc()
	m.DigestTenantsTotal.WithLabelValues("published").Add(float64(r.Published))
	m.DigestTenantsTotal.WithLabelValues("skipped").Add(float64(r.Skipped))
	m.DigestTenantsTotal.WithLabelValues("failed").Add(float64(r.Failed))
	m.DigestRunDuration.WithLabelValues().Observe(r.Duration.Seconds())
	m.DigestLastRunUnixTime.WithLabelValues().Set(float64(r.At.Unix()))
}

func (m *AppMetrics) SetHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}
