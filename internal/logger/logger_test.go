package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestLoggerWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "snipe", func(context.Context) string { return "abc123" })

	log.Debug(context.Background(), "hidden")
	log.With("scan", "s1").Info(context.Background(), "batch done", "probed", 20)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "batch done", rec["msg"])
	assert.Equal(t, "snipe", rec["service"])
	assert.Equal(t, "s1", rec["scan"])
	assert.Equal(t, float64(20), rec["probed"])
	assert.Equal(t, "abc123", rec["trace_id"])
}

func TestLoggerWithoutSpanOmitsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "snipe", nil)
	log.Warn(context.Background(), "slow registry")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "trace_id")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestNilLoggerIsSilent(t *testing.T) {
	var log *Logger
	log.Info(context.Background(), "nothing")
	_ = New(io.Discard, LevelDebug, "test", nil)
}

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) snapshot() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sdklog.Record(nil), e.records...)
}

func TestLoggerBridgesToOpenTelemetry(t *testing.T) {
	exp := &recordingExporter{}
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "snipe", nil, WithLoggerProvider(lp))
	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "scan complete", "available", 3)

	assert.Contains(t, buf.String(), "scan complete")
	assert.NotContains(t, buf.String(), "hidden")

	recs := exp.snapshot()
	require.Len(t, recs, 1)
	assert.Equal(t, "scan complete", recs[0].Body().AsString())
	assert.Equal(t, otellog.SeverityInfo, recs[0].Severity())

	attrs := map[string]otellog.Value{}
	recs[0].WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})
	require.Contains(t, attrs, "available")
	assert.Equal(t, int64(3), attrs["available"].AsInt64())
	require.Contains(t, attrs, "service")
	assert.Equal(t, "snipe", attrs["service"].AsString())
}

func TestLoggerWithoutBridge(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole(&buf, LevelWarn, "snipe", nil, WithLoggerProvider(nil))
	log.Info(context.Background(), "quiet")
	log.Warn(context.Background(), "loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
