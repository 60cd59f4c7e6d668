package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docmesh/docmesh/internal/config"
	"github.com/docmesh/docmesh/internal/export"
	"github.com/docmesh/docmesh/internal/nl2query"
	"github.com/docmesh/docmesh/internal/observability"
	"github.com/docmesh/docmesh/internal/outcome"
	"github.com/docmesh/docmesh/internal/schema"
)

type ReadinessCheck func(ctx context.Context) error

// Assistant is the query pipeline the handlers drive.
type Assistant interface {
	Process(ctx context.Context, text string) outcome.Outcome
	Interpret(ctx context.Context, text string) (nl2query.Descriptor, error)
	Execute(ctx context.Context, descriptor nl2query.Descriptor) outcome.Outcome
	Snapshot() *schema.Snapshot
	Refresh(ctx context.Context) (*schema.Snapshot, error)
}

type ResultExporter interface {
	Export(ctx context.Context, database, collection string, docs []any) (export.Result, error)
	Open(ctx context.Context, key string) (export.Download, error)
	Remove(ctx context.Context, key string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	// QueryTimeout bounds one query including the model call; zero means none.
	QueryTimeout time.Duration
	Assistant    Assistant
	Exporter     ResultExporter
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	mux.HandleFunc("POST /v1/schema/refresh", func(w http.ResponseWriter, r *http.Request) {
		handleSchemaRefresh(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query/interpret", func(w http.ResponseWriter, r *http.Request) {
		handleInterpret(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query/export", func(w http.ResponseWriter, r *http.Request) {
		handleExport(deps, w, r)
	})
	mux.HandleFunc("GET /v1/exports/{key...}", func(w http.ResponseWriter, r *http.Request) {
		handleDownloadExport(deps, w, r)
	})
	mux.HandleFunc("DELETE /v1/exports/{key...}", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteExport(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckStore(store Pinger) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("document store is not configured")
		}
		if err := store.Ping(ctx); err != nil {
			return errors.New("document store is unreachable: " + err.Error())
		}
		return nil
	}
}

// CheckObjectStore is a no-op when exports are disabled.
func CheckObjectStore(cfg config.Config, objects Pinger) ReadinessCheck {
	return func(ctx context.Context) error {
		if !cfg.Export.Enabled {
			return nil
		}
		if objects == nil {
			return errors.New("object store is not configured")
		}
		return objects.Ping(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
