package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/xerrors"
	"go.opentelemetry.io/otel/trace"
)

func newJSON(t *testing.T, opts log.Options) (log.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts.Writer = &buf
	opts.JSON = true
	l, err := log.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(ln), &m); err != nil {
			t.Fatalf("bad json line %q: %v", ln, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{" INFO ", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"Error", slog.LevelError, false},
		{"trace", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := log.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("log.ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("log.ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_BaseAttrsAndKV(t *testing.T) {
	l, buf := newJSON(t, log.Options{App: "pipeline", Version: "1.2.3", Level: slog.LevelDebug})
	l.Info(context.Background(), "hello", "port", 3000, 42, "dropped")

	got := lines(t, buf)
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1", len(got))
	}
	rec := got[0]
	if rec["msg"] != "hello" || rec["app"] != "pipeline" || rec["version"] != "1.2.3" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["port"] != float64(3000) {
		t.Fatalf("port = %v", rec["port"])
	}
	src, _ := rec["source"].(map[string]any)
	if fn, _ := src["function"].(string); !strings.HasSuffix(fn, "TestLogger_BaseAttrsAndKV") {
		t.Fatalf("source function = %q, want the calling test", fn)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	l, buf := newJSON(t, log.Options{Level: slog.LevelWarn})
	ctx := context.Background()
	l.Debug(ctx, "d")
	l.Info(ctx, "i")
	l.Warn(ctx, "w")
	if got := lines(t, buf); len(got) != 1 || got[0]["msg"] != "w" {
		t.Fatalf("want only the warn line, got %v", got)
	}
}

func TestLogger_WithDoesNotLeakBetweenSiblings(t *testing.T) {
	l, buf := newJSON(t, log.Options{})
	parent := l.With("a", 1)
	left := parent.With("side", "left")
	right := parent.With("side", "right")

	left.Info(context.Background(), "l")
	right.Info(context.Background(), "r")

	got := lines(t, buf)
	if got[0]["side"] != "left" || got[1]["side"] != "right" {
		t.Fatalf("siblings bled into each other: %v", got)
	}
}

func TestLogger_ErrorFields(t *testing.T) {
	l, buf := newJSON(t, log.Options{IncludeErrorLinks: true, StacktraceLevel: slog.LevelError})
	base := errors.New("connection refused")
	err := xerrors.Wrap(fmt.Errorf("dial: %w", base), "load allowed origins")

	l.Error(context.Background(), err, "startup failed")

	rec := lines(t, buf)[0]
	if rec["level"] != "ERROR" {
		t.Fatalf("level = %v", rec["level"])
	}
	if rec["cause_type"] != "*errors.errorString" {
		t.Fatalf("cause_type = %v", rec["cause_type"])
	}
	chain, _ := rec["error_chain"].([]any)
	if len(chain) != 3 {
		t.Fatalf("error_chain = %v, want 3 entries", chain)
	}
	links, _ := rec["error_links"].([]any)
	if len(links) == 0 {
		t.Fatal("error_links missing")
	}
	first, _ := links[0].(map[string]any)
	if fn, _ := first["func"].(string); !strings.Contains(fn, "TestLogger_ErrorFields") {
		t.Fatalf("first link should point at the Wrap call site, got %v", first)
	}
	if s, _ := rec["stack"].(string); s == "" {
		t.Fatal("stack missing at error level")
	}
}

func TestLogger_StackPrefersErrorStack(t *testing.T) {
	l, buf := newJSON(t, log.Options{})
	err := makeStackedError()
	l.Error(context.Background(), err, "boom")

	s, _ := lines(t, buf)[0]["stack"].(string)
	if !strings.Contains(s, "makeStackedError") {
		t.Fatalf("stack should come from the error, got:\n%s", s)
	}
}

func makeStackedError() error { return xerrors.New("deep") }

func TestLogger_NoStackBelowThreshold(t *testing.T) {
	l, buf := newJSON(t, log.Options{})
	l.Warn(context.Background(), "careful")
	if _, ok := lines(t, buf)[0]["stack"]; ok {
		t.Fatal("warn should not carry a stack when threshold is error")
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	l, buf := newJSON(t, log.Options{})
	tid, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	sid, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.Info(ctx, "traced")

	rec := lines(t, buf)[0]
	if rec["trace_id"] != tid.String() || rec["span_id"] != sid.String() {
		t.Fatalf("trace ids missing: %v", rec)
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := log.New(log.Options{App: "pipeline", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	l.Info(context.Background(), "listening", "port", 3000)
	out := buf.String()
	if !strings.Contains(out, "msg=listening") || !strings.Contains(out, "port=3000") {
		t.Fatalf("unexpected logfmt output: %q", out)
	}
}

func TestContext_RoundTripAndFallback(t *testing.T) {
	if log.FromContext(context.Background()) != log.Nop() {
		t.Fatal("empty context should yield the nop logger")
	}
	l, _ := newJSON(t, log.Options{})
	ctx := log.WithContext(context.Background(), l)
	if log.FromContext(ctx) != l {
		t.Fatal("FromContext did not return the attached logger")
	}
}

func TestNop_Silent(t *testing.T) {
	n := log.Nop()
	n.With("k", "v").Error(context.Background(), errors.New("x"), "ignored")
	if err := n.Sync(); err != nil {
		t.Fatal(err)
	}
}
