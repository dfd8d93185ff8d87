package httpmw

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-Id"

type (
	requestIDKey struct{}
	startTimeKey struct{}
)

// WithRequestID attaches a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext gets the request ID from context, or "" if none.
func RequestIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}

// WithStartTime records when the request entered the pipeline.
func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

// StartTimeFromContext returns the recorded start, if any.
func StartTimeFromContext(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startTimeKey{}).(time.Time)
	return t, ok
}

// RequestID returns the id RequestContext assigned to r.
func RequestID(r *http.Request) string { return RequestIDFromContext(r.Context()) }

// RequestContext is the first pipeline stage. It assigns every request a
// fresh UUIDv4, records the start time, and sets the id header on the
// response before anything else can write. Client-supplied ids are ignored
// so an id always identifies exactly one request.
func RequestContext(headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = HeaderRequestID
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := uuid.NewString()

			w.Header().Set(headerName, id)

			ctx := WithStartTime(WithRequestID(r.Context(), id), start)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
