package bootstrap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/docmesh/docmesh/internal/config"
	"github.com/docmesh/docmesh/internal/demo/seed"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	values := map[string]string{"DOCMESH_PROFILE": "test"}
	for key, value := range env {
		values[key] = value
	}
	cfg, err := config.Load("docmesh-test", func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestOpenStoreMemoryWithDemoData(t *testing.T) {
	cfg := testConfig(t, nil)
	st, err := OpenStore(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	count, err := st.Count(context.Background(), seed.ShopDatabase, seed.CustomersCollection, nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != int64(seed.DefaultConfig().Customers) {
		t.Fatalf("customers = %d", count)
	}
}

func TestOpenStoreMemoryEmpty(t *testing.T) {
	cfg := testConfig(t, map[string]string{"DOCMESH_MEMORY_DEMO_DATA": "false"})
	st, err := OpenStore(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	databases, err := st.ListDatabases(context.Background())
	if err != nil {
		t.Fatalf("ListDatabases() error = %v", err)
	}
	if len(databases) != 0 {
		t.Fatalf("databases = %v", databases)
	}
}

func TestNewTranslator(t *testing.T) {
	ctx := context.Background()
	if disabled := NewTranslator(ctx, testConfig(t, nil), discardLogger()); disabled != nil {
		t.Fatalf("NewTranslator() = %T, want nil when AI is disabled", disabled)
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	enabled := NewTranslator(ctx, testConfig(t, map[string]string{
		"DOCMESH_AI_API_KEY": "sk-test",
		"DOCMESH_AI_MODEL":   "gpt-4o-mini",
	}), logger)
	if enabled == nil {
		t.Fatal("NewTranslator() = nil, want a translator")
	}
	if !strings.Contains(logs.String(), "model=gpt-4o-mini") {
		t.Fatalf("startup log = %q, want the model name", logs.String())
	}
}

func TestNewTranslatorFallsBackWhenClientFails(t *testing.T) {
	cfg := testConfig(t, map[string]string{"DOCMESH_AI_API_KEY": "sk-test"})
	cfg.AI.BaseURL = "  "

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	if translator := NewTranslator(context.Background(), cfg, logger); translator != nil {
		t.Fatalf("NewTranslator() = %T, want nil", translator)
	}
	if !strings.Contains(logs.String(), "limited functionality mode") {
		t.Fatalf("log = %q", logs.String())
	}

	st, err := OpenStore(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	a, err := NewAssistant(context.Background(), cfg, st, discardLogger())
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}
	if a.TranslatorAvailable() {
		t.Fatal("TranslatorAvailable() = true, want schema-only mode")
	}
	if out := a.Process(context.Background(), "show collections"); !out.OK() {
		t.Fatalf("Process() = error %q", out.Message)
	}
}

func TestNewAssistantBuildsSnapshot(t *testing.T) {
	cfg := testConfig(t, nil)
	st, err := OpenStore(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	a, err := NewAssistant(context.Background(), cfg, st, discardLogger())
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}
	if a.TranslatorAvailable() {
		t.Fatal("translator should be unavailable without an API key")
	}
	if !a.Snapshot().Has(seed.LibraryDatabase, seed.BooksCollection) {
		t.Fatalf("snapshot databases = %v", a.Snapshot().DatabaseNames())
	}
}

func TestNewExporterDisabled(t *testing.T) {
	exporter, objects, err := NewExporter(context.Background(), testConfig(t, nil), discardLogger())
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	if exporter != nil || objects != nil {
		t.Fatal("expected nil exporter when export is disabled")
	}
}
