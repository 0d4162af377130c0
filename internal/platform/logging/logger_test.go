package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
)

func TestLogger_WritesKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelInfo).Named("ledger")

	logger.WarnContext(context.Background(), "record goal failed",
		"match_id", "m-1",
		"minute", 42,
		"error", errors.New("boom"),
	)

	var line map[string]any
	if err := jsoniter.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("unmarshal log line: %v (raw=%s)", err, buf.String())
	}
	if line["msg"] != "record goal failed" {
		t.Fatalf("unexpected msg: %v", line["msg"])
	}
	if line["match_id"] != "m-1" {
		t.Fatalf("unexpected match_id: %v", line["match_id"])
	}
	if line["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", line["error"])
	}
	if line["logger"] != "ledger" {
		t.Fatalf("unexpected logger name: %v", line["logger"])
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelWarn)

	logger.Info("dropped")
	logger.Debug("dropped too")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written below warn, got %q", buf.String())
	}

	logger.Error("kept")
	if !strings.Contains(buf.String(), `"msg":"kept"`) {
		t.Fatalf("expected error line, got %q", buf.String())
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if err := logger.Sync(); err != nil {
		t.Fatalf("sync nil logger: %v", err)
	}
}

func TestSetMirror_ReceivesEnabledRecordsOnly(t *testing.T) {
	var got []string
	SetMirror(func(_ context.Context, level Level, msg string, args ...any) {
		got = append(got, level.String()+":"+msg)
	})
	t.Cleanup(func() { SetMirror(nil) })

	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelWarn)
	logger.Info("filtered out")
	logger.WarnContext(context.Background(), "sanction rejected", "match_id", "m-1")

	if len(got) != 1 || got[0] != "warn:sanction rejected" {
		t.Fatalf("unexpected mirrored records: %v", got)
	}
}

func TestLogger_EncodesDurationsStringersAndMissingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONWriter(&buf, LevelInfo)

	logger.Info("finalize match", "took", 1500*time.Millisecond, "amount", decimal.RequireFromString("150000.50"), 7, "orphan")

	var line map[string]any
	if err := jsoniter.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("unmarshal log line: %v (raw=%s)", err, buf.String())
	}
	if line["took"] != "1.5s" {
		t.Fatalf("unexpected duration field: %v", line["took"])
	}
	if line["amount"] != "150000.5" {
		t.Fatalf("unexpected decimal field: %v", line["amount"])
	}
	if line["arg_2"] != "orphan" {
		t.Fatalf("expected positional key for non-string key, got %v", line)
	}
}

func TestLogger_TeeWritesToBothCores(t *testing.T) {
	var primary, extra bytes.Buffer
	logger := NewJSONWriter(&primary, LevelInfo)
	teed := logger.Tee(zapcore.NewCore(NewJSONEncoder(), zapcore.AddSync(&extra), LevelError))

	teed.Info("kickoff")
	teed.Error("lock lost")

	if !strings.Contains(primary.String(), "kickoff") || !strings.Contains(primary.String(), "lock lost") {
		t.Fatalf("primary sink missing records: %s", primary.String())
	}
	if strings.Contains(extra.String(), "kickoff") || !strings.Contains(extra.String(), "lock lost") {
		t.Fatalf("extra sink should only hold error records: %s", extra.String())
	}
}
