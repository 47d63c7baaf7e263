package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// multipartThreshold switches record exports to the multipart uploader.
const multipartThreshold = 8 * 1024 * 1024

// Exporter writes scheduled reports into object storage. Objects are
// partitioned by China trading date:
//
//	reports/2026/10/17/screen-153000.json
//	reports/2026/10/17/records-153000.jsonl
type Exporter struct {
	writer domain.BlobWriter
	prefix string
}

// NewExporter creates an Exporter. An empty prefix selects "reports".
func NewExporter(writer domain.BlobWriter, prefix string) *Exporter {
	if prefix == "" {
		prefix = "reports"
	}
	return &Exporter{writer: writer, prefix: prefix}
}

// Prefix returns the key prefix reports are written under.
func (e *Exporter) Prefix() string { return e.prefix }

// PutJSON uploads v as an indented JSON document and returns its key.
func (e *Exporter) PutJSON(ctx context.Context, kind string, at time.Time, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: export %s marshal: %w", kind, err)
	}
	path := ReportPath(e.prefix, kind, at, "json")
	if err := e.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: export %s upload: %w", kind, err)
	}
	return path, nil
}

// ExportRecords dumps records as JSONL and returns the key and count.
// Nothing is written when there are no records.
func (e *Exporter) ExportRecords(ctx context.Context, records []domain.ArbitrageRecord, at time.Time) (string, int, error) {
	if len(records) == 0 {
		return "", 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: export records marshal: %w", err)
	}

	path := ReportPath(e.prefix, "records", at, "jsonl")
	if len(buf) > multipartThreshold {
		err = e.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = e.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: export records upload: %w", err)
	}
	return path, len(records), nil
}

// ReportPath builds the object key for a report taken at at.
func ReportPath(prefix, kind string, at time.Time, ext string) string {
	at = at.In(domain.ChinaTZ)
	return fmt.Sprintf("%s/%s/%s-%s.%s", prefix, at.Format("2006/01/02"), kind, at.Format("150405"), ext)
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
