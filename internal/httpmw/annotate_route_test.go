package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newRecordingSpan returns a context carrying a recording span and the
// recorder that receives it once ended.
func newRecordingSpan(t *testing.T, name string) (context.Context, func(), *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), name)
	return ctx, func() { span.End() }, sr
}

func TestAnnotateHTTPRoute_RenamesSpan(t *testing.T) {
	ctx, end, sr := newRecordingSpan(t, "initial")

	r := chi.NewRouter()
	r.Use(AnnotateHTTPRoute)
	r.Post("/items/{id}", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodPost, "/items/7", http.NoBody).WithContext(ctx)
	r.ServeHTTP(httptest.NewRecorder(), req)
	end()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	if spans[0].Name() != "POST /items/{id}" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	found := false
	for _, a := range spans[0].Attributes() {
		if a.Key == attribute.Key("http.route") && a.Value.AsString() == "/items/{id}" {
			found = true
		}
	}
	if !found {
		t.Fatal("http.route attribute missing")
	}
}

func TestAnnotateHTTPRoute_UnmatchedIsBounded(t *testing.T) {
	ctx, end, sr := newRecordingSpan(t, "initial")

	r := chi.NewRouter()
	r.Use(AnnotateHTTPRoute)
	r.Post("/items", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/scan/wp-login.php", http.NoBody).WithContext(ctx)
	r.ServeHTTP(httptest.NewRecorder(), req)
	end()

	if got := sr.Ended()[0].Name(); got != "GET "+UnmatchedRoute {
		t.Fatalf("span name = %q", got)
	}
}

func TestAnnotateHTTPRoute_NoSpanIsNoop(t *testing.T) {
	rec := httptest.NewRecorder()
	AnnotateHTTPRoute(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
