// Package export writes query results to object storage as Parquet files.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/docmesh/docmesh/internal/observability"
	"github.com/docmesh/docmesh/internal/storage"
)

const (
	DefaultPrefix = "exports"
	ContentType   = "application/vnd.apache.parquet"
)

var ErrInvalidKey = errors.New("invalid export key")

type Exporter struct {
	ObjectStore storage.ObjectStore
	Prefix      string
	Logger      *slog.Logger
	Clock       func() time.Time
	NewID       func() string
}

type Result struct {
	ObjectKey  string    `json:"object_key"`
	Size       int64     `json:"size"`
	Count      int64     `json:"count"`
	ETag       string    `json:"etag,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
	Database   string    `json:"database"`
	Collection string    `json:"collection"`
}

// Download is a stored export opened for reading. The caller closes Body.
type Download struct {
	Body io.ReadCloser
	Info storage.ObjectInfo
}

func (e *Exporter) Export(ctx context.Context, database, collection string, docs []any) (Result, error) {
	e.ensureDefaults()
	if e.ObjectStore == nil {
		return Result{}, fmt.Errorf("object store is required")
	}
	if len(docs) == 0 {
		observability.IncrementExport("rejected")
		return Result{}, fmt.Errorf("nothing to export: the query returned no documents")
	}

	exportedAt := e.Clock().UTC()
	key, err := storage.BuildExportPath(e.Prefix, database, collection, exportedAt, e.NewID())
	if err != nil {
		observability.IncrementExport("rejected")
		return Result{}, err
	}

	encoded, err := EncodeDocuments(docs, exportedAt)
	if err != nil {
		observability.IncrementExport("error")
		return Result{}, fmt.Errorf("encode documents to parquet: %w", err)
	}

	info, err := e.ObjectStore.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: ContentType,
		Metadata: map[string]string{
			"database":       database,
			"collection":     collection,
			"document-count": strconv.FormatInt(encoded.RecordCount, 10),
		},
	})
	if err != nil {
		observability.IncrementExport("error")
		return Result{}, fmt.Errorf("upload export: %w", err)
	}
	observability.IncrementExport("ok")

	e.Logger.InfoContext(ctx, "query result exported",
		slog.String("database", database),
		slog.String("collection", collection),
		slog.String("object_key", key),
		slog.Int64("count", encoded.RecordCount),
	)

	size := info.Size
	if size <= 0 {
		size = int64(len(encoded.Data))
	}
	return Result{
		ObjectKey:  key,
		Size:       size,
		Count:      encoded.RecordCount,
		ETag:       info.ETag,
		ExportedAt: exportedAt,
		Database:   database,
		Collection: collection,
	}, nil
}

// Open returns a previously exported object. Keys outside the export layout
// fail with ErrInvalidKey, missing ones with storage.ErrObjectNotFound.
func (e *Exporter) Open(ctx context.Context, key string) (Download, error) {
	e.ensureDefaults()
	if err := e.checkKey(key); err != nil {
		return Download{}, err
	}
	info, err := e.ObjectStore.Stat(ctx, key)
	if err != nil {
		return Download{}, err
	}
	body, err := e.ObjectStore.Get(ctx, key)
	if err != nil {
		return Download{}, err
	}
	return Download{Body: body, Info: info}, nil
}

// Remove deletes an exported object; a missing object is reported as
// storage.ErrObjectNotFound.
func (e *Exporter) Remove(ctx context.Context, key string) error {
	e.ensureDefaults()
	if err := e.checkKey(key); err != nil {
		return err
	}
	if _, err := e.ObjectStore.Stat(ctx, key); err != nil {
		return err
	}
	if err := e.ObjectStore.Delete(ctx, key); err != nil {
		return err
	}
	e.Logger.InfoContext(ctx, "export removed", slog.String("object_key", key))
	return nil
}

func (e *Exporter) checkKey(key string) error {
	if e.ObjectStore == nil {
		return fmt.Errorf("object store is required")
	}
	if err := storage.ValidateExportKey(e.Prefix, key); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return nil
}

func (e *Exporter) ensureDefaults() {
	if e.Clock == nil {
		e.Clock = time.Now
	}
	if e.NewID == nil {
		e.NewID = func() string { return uuid.NewString() }
	}
	if e.Prefix == "" {
		e.Prefix = DefaultPrefix
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
