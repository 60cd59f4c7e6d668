package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGrafanaDashboardJSONIsValid(t *testing.T) {
	content := readAsset(t, "grafana", "docmesh_dashboard.json")

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}

	title, _ := decoded["title"].(string)
	if strings.TrimSpace(title) == "" {
		t.Fatal("dashboard title is required")
	}
	panels, ok := decoded["panels"].([]any)
	if !ok || len(panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
}

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	text := string(readAsset(t, "prometheus", "docmesh_rules.yaml"))

	requiredAlerts := []string{
		"DocMeshQueryLatencyP95High",
		"DocMeshQueryErrorRateHigh",
		"DocMeshModelErrorsHigh",
		"DocMeshExportFailuresDetected",
		"DocMeshSchemaSnapshotEmpty",
		"DocMeshHTTPErrorRateHigh",
	}
	for _, alertName := range requiredAlerts {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Fatalf("rules missing alert %q", alertName)
		}
	}
}

func TestPrometheusRecordingRulesReferenceExportedMetrics(t *testing.T) {
	text := string(readAsset(t, "prometheus", "docmesh_recording_rules.yaml"))

	requiredRecords := []string{
		"docmesh:slo_query_latency_seconds_p95",
		"docmesh:slo_query_error_rate_5m",
		"docmesh:slo_model_latency_seconds_p95",
		"docmesh:slo_model_error_rate_5m",
		"docmesh:slo_export_failures_15m",
		"docmesh:slo_http_error_rate_5m",
	}
	for _, recordName := range requiredRecords {
		if !strings.Contains(text, "record: "+recordName) {
			t.Fatalf("recording rules missing record %q", recordName)
		}
	}

	metrics := []string{
		"docmesh_query_duration_seconds_bucket",
		"docmesh_queries_total",
		"docmesh_model_call_duration_seconds_bucket",
		"docmesh_model_calls_total",
		"docmesh_exports_total",
		"docmesh_http_requests_total",
	}
	for _, metric := range metrics {
		if !strings.Contains(text, metric) {
			t.Fatalf("recording rules never reference %q", metric)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := string(readAsset(t, "prometheus", "prometheus-scrape.example.yaml"))

	for _, token := range []string{
		"metrics_path: /v1/metrics",
		"docmesh_rules.yaml",
		"docmesh_recording_rules.yaml",
		"job_name: docmesh-api",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func readAsset(t *testing.T, parts ...string) []byte {
	t.Helper()
	path := filepath.Join(append([]string{repoRoot(t), "deployments", "observability"}, parts...)...)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
