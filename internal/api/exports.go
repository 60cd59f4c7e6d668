package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/docmesh/docmesh/internal/export"
	"github.com/docmesh/docmesh/internal/storage"
)

func handleDownloadExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "result export is not enabled", false, nil)
		return
	}
	key := r.PathValue("key")
	// The body streams under this context, so no dependency deadline here.
	download, err := deps.Exporter.Open(r.Context(), key)
	if err != nil {
		writeExportLookupError(r.Context(), w, key, err)
		return
	}
	defer func() { _ = download.Body.Close() }()

	contentType := download.Info.ContentType
	if contentType == "" {
		contentType = export.ContentType
	}
	w.Header().Set("Content-Type", contentType)
	if download.Info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(download.Info.Size, 10))
	}
	if download.Info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(download.Info.ETag))
	}
	if count := download.Info.Metadata["document-count"]; count != "" {
		w.Header().Set("X-Docmesh-Document-Count", count)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, download.Body); err != nil && deps.Logger != nil {
		deps.Logger.WarnContext(r.Context(), "export download interrupted", slog.String("object_key", key), slog.Any("error", err))
	}
}

func handleDeleteExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "result export is not enabled", false, nil)
		return
	}
	key := r.PathValue("key")
	ctx, cancel := dependencyContext(r.Context(), deps)
	defer cancel()

	if err := deps.Exporter.Remove(ctx, key); err != nil {
		writeExportLookupError(r.Context(), w, key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeExportLookupError(ctx context.Context, w http.ResponseWriter, key string, err error) {
	switch {
	case errors.Is(err, export.ErrInvalidKey):
		writeError(ctx, w, http.StatusBadRequest, "INVALID_EXPORT_KEY", "export key is not valid", false, map[string]any{"object_key": key, "details": err.Error()})
	case errors.Is(err, storage.ErrObjectNotFound):
		writeError(ctx, w, http.StatusNotFound, "EXPORT_NOT_FOUND", "export not found", false, map[string]any{"object_key": key})
	default:
		writeError(ctx, w, http.StatusBadGateway, "OBJECT_STORE_UNAVAILABLE", "object store request failed", true, map[string]any{"details": err.Error()})
	}
}

// dependencyContext bounds object store calls; zero DependencyTimeout means
// no extra deadline.
func dependencyContext(parent context.Context, deps Dependencies) (context.Context, context.CancelFunc) {
	if deps.DependencyTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, deps.DependencyTimeout)
}
