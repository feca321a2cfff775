package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newTestProvider() *TelemetryProvider {
	return NewTelemetryProvider(TelemetryConfig{
		ServiceName:    "biopulse-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
	})
}

func doRequest(tp *TelemetryProvider, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(tp.TracingMiddleware(), tp.MetricsMiddleware())
	e.GET("/api/v1/documents/:id", handler)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/123", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTelemetryConfig_Defaults(t *testing.T) {
	cfg := TelemetryConfig{}
	cfg.applyDefaults()
	if cfg.ServiceName != "biopulse-server" {
		t.Errorf("service name = %q", cfg.ServiceName)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("sample rate = %v", cfg.SampleRate)
	}
	if !cfg.metricsOn() || !cfg.tracingOn() {
		t.Error("metrics and tracing should default to on")
	}
}

func TestShutdown_Clean(t *testing.T) {
	tp := newTestProvider()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	// Second shutdown is a no-op.
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestTracingMiddleware_CreatesSpan(t *testing.T) {
	tp := newTestProvider()
	doRequest(tp, func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	spans := tp.GetRecordedSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "HTTP GET /api/v1/documents/:id" {
		t.Errorf("span name = %q", span.Name)
	}
	if span.Attributes["http.status_code"] != "200" {
		t.Errorf("status attribute = %q", span.Attributes["http.status_code"])
	}
	if span.StatusCode != SpanStatusOK {
		t.Errorf("span status = %v", span.StatusCode)
	}
}

func TestTracingMiddleware_ErrorStatus(t *testing.T) {
	tp := newTestProvider()
	doRequest(tp, func(c echo.Context) error { return c.String(http.StatusInternalServerError, "boom") })

	spans := tp.GetRecordedSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].StatusCode != SpanStatusError {
		t.Errorf("span status = %v, want error", spans[0].StatusCode)
	}
}

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	tp := newTestProvider()
	doRequest(tp, func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	h := tp.GetHistogram("http.server.request.duration")
	if h == nil {
		t.Fatal("duration histogram not created")
	}
	if h.Count() != 1 {
		t.Errorf("observations = %d, want 1", h.Count())
	}
}

func TestMetricsMiddleware_ActiveRequestsReturnToZero(t *testing.T) {
	tp := newTestProvider()
	doRequest(tp, func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if n := tp.GetGauge("http.server.active_requests"); n != 0 {
		t.Errorf("active requests after completion = %d", n)
	}
}

func TestIngestOutcome_Increments(t *testing.T) {
	tp := newTestProvider()
	tp.IngestOutcome("api", "processed")
	tp.IngestOutcome("api", "processed")
	tp.IngestOutcome("api", "rejected")

	if got := tp.GetCounter("ingest.outcome.count", "api", "processed"); got != 2 {
		t.Errorf("processed count = %d, want 2", got)
	}
	if got := tp.GetCounter("ingest.outcome.count", "api", "rejected"); got != 1 {
		t.Errorf("rejected count = %d, want 1", got)
	}
	if got := tp.GetCounter("ingest.outcome.count", "api", "failed"); got != 0 {
		t.Errorf("failed count = %d, want 0", got)
	}
}

func TestParseMetrics(t *testing.T) {
	tp := newTestProvider()
	tp.ParseRequest("anthropic", "ok")
	tp.ObserveParseDuration(3 * time.Second)

	if got := tp.GetCounter("parse.request.count", "anthropic", "ok"); got != 1 {
		t.Errorf("parse request count = %d", got)
	}
	h := tp.GetHistogram("parse.duration")
	if h == nil || h.Count() != 1 {
		t.Fatal("parse duration not recorded")
	}
}

func TestPrometheusHandler_ValidFormat(t *testing.T) {
	tp := newTestProvider()
	tp.IngestOutcome("api", "processed")
	tp.ParseRequest("openai", "error")
	tp.ObserveParseDuration(2 * time.Second)
	tp.HealthMetrics().SetCatalogSize(42)
	doRequest(tp, func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := tp.PrometheusHandler()(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE http_server_request_duration_seconds histogram",
		"# TYPE parse_duration_seconds histogram",
		`ingest_outcome_count{source="api",outcome="processed"} 1`,
		`parse_request_count{provider="openai",status="error"} 1`,
		"biomarker_catalog_entries 42",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHistogramBuckets_Observation(t *testing.T) {
	h := newHistogram([]float64{1, 5, 10})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(7)
	h.Observe(100)

	cum := h.cumulativeBuckets()
	if cum[0] != 1 || cum[1] != 2 || cum[2] != 3 {
		t.Errorf("cumulative buckets = %v", cum)
	}
	if h.Count() != 4 {
		t.Errorf("count = %d", h.Count())
	}
	if h.Sum() != 110.5 {
		t.Errorf("sum = %v", h.Sum())
	}
}

func TestMetrics_ConcurrentSafe(t *testing.T) {
	tp := newTestProvider()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tp.IngestOutcome("api", "processed")
			tp.ObserveParseDuration(time.Second)
			tp.HealthMetrics().SetDBPoolActive(5)
		}()
	}
	wg.Wait()

	if got := tp.GetCounter("ingest.outcome.count", "api", "processed"); got != 50 {
		t.Errorf("counter = %d, want 50", got)
	}
	if h := tp.GetHistogram("parse.duration"); h.Count() != 50 {
		t.Errorf("histogram count = %d, want 50", h.Count())
	}
}

func TestProvider_Resource(t *testing.T) {
	tp := newTestProvider()
	res := tp.Resource()
	if res["service.name"] != "biopulse-test" {
		t.Errorf("service.name = %q", res["service.name"])
	}
	if res["deployment.environment"] != "test" {
		t.Errorf("environment = %q", res["deployment.environment"])
	}
}
