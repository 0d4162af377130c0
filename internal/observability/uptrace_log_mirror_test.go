package observability

import (
	"errors"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

func TestIsRoutineRequestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  string
		args []any
		want bool
	}{
		{"health probe", "http request", []any{"method", "GET", "path", "/healthz", "status", 200}, true},
		{"live feed", "http request", []any{"path", "/v1/matches/m-1/live", "status", 101}, true},
		{"failed health probe", "http request", []any{"path", "/healthz", "status", 503}, false},
		{"ledger write", "http request", []any{"path", "/v1/matches/m-1/events", "status", 201}, false},
		{"other message", "standings notification failed", []any{"path", "/healthz"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRoutineRequestLog(tt.msg, tt.args); got != tt.want {
				t.Fatalf("expected %t, got %t", tt.want, got)
			}
		})
	}
}

func TestLogAttributes(t *testing.T) {
	t.Parallel()

	attrs := logAttributes([]any{"match_id", "idn-2025-gw1-persija-persib", "minute", uint8(2), 7, "x", "payload"})
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "match_id" || attrs[0].Value.AsString() != "idn-2025-gw1-persija-persib" {
		t.Fatalf("unexpected match_id attribute: %+v", attrs[0])
	}
	if attrs[1].Key != "minute" || attrs[1].Value.AsInt64() != 2 {
		t.Fatalf("unexpected minute attribute: %+v", attrs[1])
	}
	if attrs[2].Key != "arg_2" {
		t.Fatalf("expected positional key for non-string key, got %q", attrs[2].Key)
	}
	if attrs[3].Key != "payload" || attrs[3].Value.Kind() != otellog.KindEmpty {
		t.Fatalf("unexpected dangling attribute: %+v", attrs[3])
	}
}

func TestLogValue(t *testing.T) {
	t.Parallel()

	m := logValue(map[string]any{"revoked": true, "goals": 3}, 0)
	if m.Kind() != otellog.KindMap || len(m.AsMap()) != 2 || m.AsMap()[0].Key != "goals" {
		t.Fatalf("expected sorted map value, got %v", m)
	}
	if v := logValue(2*time.Second, 0); v.AsString() != "2s" {
		t.Fatalf("expected duration string, got %v", v)
	}
	if v := logValue(errors.New("boom"), 0); v.AsString() != "boom" {
		t.Fatalf("expected error string, got %v", v)
	}
	if v := logValue([]int{1, 2}, 0); v.Kind() != otellog.KindSlice || len(v.AsSlice()) != 2 {
		t.Fatalf("expected slice value, got %v", v)
	}
	var nilPtr *int
	if v := logValue(nilPtr, 0); v.Kind() != otellog.KindEmpty {
		t.Fatalf("expected empty value for nil pointer, got %v", v)
	}
}

func TestOTelSeverity(t *testing.T) {
	t.Parallel()

	if otelSeverity(zapcore.WarnLevel) != otellog.SeverityWarn {
		t.Fatalf("warn mismatch")
	}
	if otelSeverity(zapcore.PanicLevel) != otellog.SeverityFatal {
		t.Fatalf("panic should map to fatal")
	}
}
