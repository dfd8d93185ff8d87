package httpmw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/problem"
)

type capturedLog struct {
	msg    string
	err    error
	fields []any
}

// flatLogger captures every call. With() records its fields and returns the
// same logger so all calls land in one place.
type flatLogger struct {
	mu     sync.Mutex
	withs  [][]any
	infos  []capturedLog
	errors []capturedLog
}

func (l *flatLogger) With(kv ...any) log.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.withs = append(l.withs, kv)
	return l
}

func (l *flatLogger) Info(_ context.Context, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, capturedLog{msg: msg, fields: kv})
}

func (l *flatLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, capturedLog{msg: msg, err: err, fields: kv})
}

func (l *flatLogger) Debug(context.Context, string, ...any) {}
func (l *flatLogger) Warn(context.Context, string, ...any)  {}
func (l *flatLogger) Sync() error                           { return nil }

func fieldValue(fields []any, key string) (any, bool) {
	for i := 0; i+1 < len(fields); i += 2 {
		if k, ok := fields[i].(string); ok && k == key {
			return fields[i+1], true
		}
	}
	return nil, false
}

var testNormalizer = problem.NewNormalizer(problem.Options{RequestID: RequestID})

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem.Problem {
	t.Helper()
	var p problem.Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v (body %q)", err, rec.Body.String())
	}
	return p
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})
