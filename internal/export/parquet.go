package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/docmesh/docmesh/internal/document"
)

type EncodeResult struct {
	Data        []byte
	RecordCount int64
}

type parquetRow struct {
	DocumentID       string `parquet:"document_id"`
	DocumentJSON     string `parquet:"document_json"`
	ExportedAtUnixMs int64  `parquet:"exported_at_unix_ms"`
}

// EncodeDocuments writes one parquet row per result document. Each document
// is stored as compact JSON next to its stringified _id.
func EncodeDocuments(docs []any, exportedAt time.Time) (EncodeResult, error) {
	if len(docs) == 0 {
		return EncodeResult{}, fmt.Errorf("documents are required")
	}

	stamp := exportedAt.UTC().UnixMilli()
	rows := make([]parquetRow, 0, len(docs))
	for i, item := range docs {
		payload, err := json.Marshal(item)
		if err != nil {
			return EncodeResult{}, fmt.Errorf("encode document %d: %w", i, err)
		}
		rows = append(rows, parquetRow{
			DocumentID:       documentID(item),
			DocumentJSON:     string(payload),
			ExportedAtUnixMs: stamp,
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{Data: buf.Bytes(), RecordCount: int64(len(rows))}, nil
}

// documentID is empty for results without an _id, such as $group output
// keyed by null or projections that drop it.
func documentID(item any) string {
	doc, ok := item.(document.Document)
	if !ok {
		return ""
	}
	id, ok := doc.Get("_id")
	if !ok || id == nil {
		return ""
	}
	return document.Stringify(id)
}
