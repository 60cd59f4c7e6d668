// Package observability holds the logging and metrics plumbing
// shared by the docmesh binaries.
package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/docmesh/docmesh/internal/config"
)

type traceIDKey struct{}

// NewLogger builds the process logger from config. A nil writer discards
// output.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(writer, opts)
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
		slog.String("store_backend", string(cfg.Store.Backend)),
	)
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey{}).(string)
	return traceID
}

// TraceAttr is the trace_id attribute for ctx, empty outside a request.
func TraceAttr(ctx context.Context) slog.Attr {
	return slog.String("trace_id", TraceIDFromContext(ctx))
}
