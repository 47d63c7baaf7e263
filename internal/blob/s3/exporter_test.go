package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

type memWriter struct {
	objects     map[string][]byte
	contentType map[string]string
	multipart   int
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects[path] = b
	w.contentType[path] = contentType
	return nil
}

func (w *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	w.multipart++
	return w.Put(ctx, path, data, "application/x-ndjson")
}

func TestReportPathUsesChinaDate(t *testing.T) {
	// 17:30 UTC is already the next day in Beijing.
	at := time.Date(2026, 10, 16, 17, 30, 5, 0, time.UTC)
	assert.Equal(t, "reports/2026/10/17/screen-013005.json", ReportPath("reports", "screen", at, "json"))
}

func TestExporterPutJSON(t *testing.T) {
	w := newMemWriter()
	e := NewExporter(w, "")
	at := time.Date(2026, 10, 17, 7, 30, 0, 0, time.UTC)

	path, err := e.PutJSON(context.Background(), "screen", at, map[string]int{"count": 2})
	require.NoError(t, err)
	assert.Equal(t, "reports/2026/10/17/screen-153000.json", path)
	assert.Equal(t, "application/json", w.contentType[path])
	assert.JSONEq(t, `{"count":2}`, string(w.objects[path]))
}

func TestExporterExportRecords(t *testing.T) {
	w := newMemWriter()
	e := NewExporter(w, "archive")
	at := time.Date(2026, 10, 17, 7, 30, 0, 0, time.UTC)
	ctx := context.Background()

	path, n, err := e.ExportRecords(ctx, nil, at)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, path)
	assert.Empty(t, w.objects)

	recs := make([]domain.ArbitrageRecord, 3)
	for i := range recs {
		recs[i] = domain.ArbitrageRecord{ID: fmt.Sprintf("r%d", i), Owner: "alice", FundCode: "161725", Type: domain.ArbPremium}
	}
	path, n, err = e.ExportRecords(ctx, recs, at)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "archive/2026/10/17/records-153000.jsonl", path)
	assert.Zero(t, w.multipart)

	sc := bufio.NewScanner(bytes.NewReader(w.objects[path]))
	lines := 0
	for sc.Scan() {
		var r domain.ArbitrageRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		assert.Equal(t, fmt.Sprintf("r%d", lines), r.ID)
		lines++
	}
	assert.Equal(t, 3, lines)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &types.NoSuchKey{})))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.False(t, isNotFound(errors.New("boom")))
}
