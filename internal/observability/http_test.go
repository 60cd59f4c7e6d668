package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docmesh/docmesh/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := TraceIDFromContext(r.Context()); got != "trace-1" {
			t.Fatalf("TraceIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/query", nil)
	req.Header.Set(TraceHeader, " trace-1 ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(TraceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestTraceMiddlewareReplacesMissingOrOversizedTraceID(t *testing.T) {
	for _, incoming := range []string{"", strings.Repeat("x", maxTraceIDLength+1)} {
		var seen string
		h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = TraceIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		if incoming != "" {
			req.Header.Set(TraceHeader, incoming)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if len(seen) != 32 {
			t.Fatalf("generated trace id = %q, want 32 hex chars", seen)
		}
		if rr.Header().Get(TraceHeader) != seen {
			t.Fatalf("trace header = %q, want %q", rr.Header().Get(TraceHeader), seen)
		}
	}
}

func TestTraceAttrOutsideRequestIsEmpty(t *testing.T) {
	if got := TraceAttr(context.Background()).Value.String(); got != "" {
		t.Fatalf("TraceAttr() = %q", got)
	}
	ctx := ContextWithTraceID(context.Background(), "abc123")
	if got := TraceAttr(ctx).Value.String(); got != "abc123" {
		t.Fatalf("TraceAttr() = %q", got)
	}
}

func TestLoggingMiddlewareRecordsRouteAndLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{}
	cfg.Service.Name = "docmesh-api"
	cfg.Profile = config.ProfileTest
	cfg.Observability.LogJSON = true
	logger := NewLogger(cfg, &buf)

	h := TraceMiddleware(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upstream"))
	})))
	req := httptest.NewRequest(http.MethodGet, "/v1/exports/exports/shop/customers/date=2026-03-01/a.parquet", nil)
	req.Header.Set(TraceHeader, "trace-9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v (%s)", err, buf.String())
	}
	checks := map[string]any{
		"msg":      "http_request",
		"level":    "WARN",
		"service":  "docmesh-api",
		"profile":  "test",
		"trace_id": "trace-9",
		"route":    "/v1/exports/{key}",
		"status":   float64(http.StatusBadGateway),
		"bytes":    float64(len("upstream")),
	}
	for key, want := range checks {
		if record[key] != want {
			t.Fatalf("log[%q] = %v, want %v", key, record[key], want)
		}
	}
}

func TestMetricsMiddlewareCountsByRoute(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	before := requestCount(t, http.MethodDelete, "/v1/exports/{key}", "404")

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/v1/exports/exports/a/b/date=2026-01-01/x.parquet", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/v1/exports/exports/a/b/date=2026-01-02/y.parquet", nil))

	if got := requestCount(t, http.MethodDelete, "/v1/exports/{key}", "404") - before; got != 2 {
		t.Fatalf("requests counted = %v, want 2", got)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/v1/query":                 "/v1/query",
		"/v1/exports":               "/v1/exports",
		"/v1/exports/":              "/v1/exports/",
		"/v1/exports/exports/a.txt": "/v1/exports/{key}",
	}
	for path, want := range tests {
		if got := RouteLabel(path); got != want {
			t.Fatalf("RouteLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func requestCount(t *testing.T, method, route, status string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	want := map[string]string{"method": method, "route": route, "status": status}
	for _, family := range families {
		if family.GetName() != "docmesh_http_requests_total" {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if want[label.GetName()] != label.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}
