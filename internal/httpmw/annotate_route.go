package httpmw

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UnmatchedRoute names spans for requests chi never routed: 404s, 405s and
// preflights the CORS gate answered.
const UnmatchedRoute = "unmatched"

// AnnotateHTTPRoute renames the server span to "METHOD /route" once chi has
// finished, so span names stay bounded by routes rather than raw paths.
func AnnotateHTTPRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		span := trace.SpanFromContext(r.Context())
		if !span.IsRecording() {
			return
		}
		route := UnmatchedRoute
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
			span.SetAttributes(attribute.String("http.route", route))
		}
		span.SetName(r.Method + " " + route)
	})
}
