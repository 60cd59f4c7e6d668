package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/docmesh/docmesh/internal/classify"
	"github.com/docmesh/docmesh/internal/dispatch"
	"github.com/docmesh/docmesh/internal/nl2query"
	"github.com/docmesh/docmesh/internal/outcome"
)

type queryRequest struct {
	Query string `json:"query"`
}

type exportResponse struct {
	ObjectKey string `json:"object_key"`
	Size      int64  `json:"size"`
	Count     int64  `json:"count"`
	Query     any    `json:"query"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASSISTANT_NOT_CONFIGURED", "query assistant is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, deps.Assistant.Snapshot())
}

func handleSchemaRefresh(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASSISTANT_NOT_CONFIGURED", "query assistant is not configured", false, nil)
		return
	}
	snapshot, err := deps.Assistant.Refresh(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_REFRESH_FAILED", "failed to refresh schema snapshot", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	text, ok := decodeQueryRequest(deps, w, r)
	if !ok {
		return
	}
	ctx, cancel := queryContext(r.Context(), deps)
	defer cancel()

	result := deps.Assistant.Process(ctx, text)
	writeJSON(w, statusForOutcome(result), result)
}

func handleInterpret(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	text, ok := decodeQueryRequest(deps, w, r)
	if !ok {
		return
	}
	ctx, cancel := queryContext(r.Context(), deps)
	defer cancel()

	descriptor, err := deps.Assistant.Interpret(ctx, text)
	if err != nil {
		failure := outcome.Failure(err)
		writeJSON(w, statusForOutcome(failure), failure)
		return
	}
	writeJSON(w, http.StatusOK, outcome.Success(nil, descriptor))
}

func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "result export is not enabled", false, nil)
		return
	}
	text, ok := decodeQueryRequest(deps, w, r)
	if !ok {
		return
	}
	ctx, cancel := queryContext(r.Context(), deps)
	defer cancel()

	if classify.Classify(text) == classify.SchemaExploration {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "EXPORT_UNSUPPORTED", "only find and aggregate results can be exported", false, nil)
		return
	}
	descriptor, err := deps.Assistant.Interpret(ctx, text)
	if err != nil {
		failure := outcome.Failure(err)
		writeJSON(w, statusForOutcome(failure), failure)
		return
	}
	// Writes are rejected before dispatch so a refused export never mutates data.
	if descriptor.Operation.Valid() && !exportable(descriptor.Operation) {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "EXPORT_UNSUPPORTED", "only find and aggregate results can be exported", false, map[string]any{"operation": string(descriptor.Operation)})
		return
	}
	result := deps.Assistant.Execute(ctx, descriptor)
	if !result.OK() {
		writeJSON(w, statusForOutcome(result), result)
		return
	}
	documents, isDocuments := result.Data.(dispatch.DocumentsResult)
	if !isDocuments {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "EXPORT_UNSUPPORTED", "only find and aggregate results can be exported", false, nil)
		return
	}
	if len(documents.Result) == 0 {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "EXPORT_EMPTY", "the query returned no documents", false, map[string]any{"query": descriptor})
		return
	}

	exported, err := deps.Exporter.Export(ctx, descriptor.Database, descriptor.Collection, documents.Result)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_FAILED", "failed to export query result", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		ObjectKey: exported.ObjectKey,
		Size:      exported.Size,
		Count:     exported.Count,
		Query:     descriptor,
	})
}

func exportable(op nl2query.Operation) bool {
	return op == nl2query.OpFind || op == nl2query.OpAggregate
}

func decodeQueryRequest(deps Dependencies, w http.ResponseWriter, r *http.Request) (string, bool) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASSISTANT_NOT_CONFIGURED", "query assistant is not configured", false, nil)
		return "", false
	}
	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return "", false
	}
	text := strings.TrimSpace(request.Query)
	if text == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return "", false
	}
	return text, true
}

func queryContext(parent context.Context, deps Dependencies) (context.Context, context.CancelFunc) {
	if deps.QueryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, deps.QueryTimeout)
}

func statusForOutcome(result outcome.Outcome) int {
	if result.OK() {
		return http.StatusOK
	}
	switch result.ErrorKind {
	case outcome.KindValidation, outcome.KindParse:
		return http.StatusUnprocessableEntity
	case outcome.KindModel:
		return http.StatusBadGateway
	case outcome.KindConfiguration:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
