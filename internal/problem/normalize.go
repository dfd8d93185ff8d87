package problem

import (
	"encoding/json"
	"net/http"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
)

const (
	HeaderRequestID    = "X-Request-Id"
	HeaderResponseTime = "X-Response-Time-ms"
)

// Normalizer is the terminal error stage: it renders err as a problem response.
// It never fails; an encode error is only logged.
type Normalizer func(w http.ResponseWriter, r *http.Request, err error)

// Options configures NewNormalizer. All fields are optional.
type Options struct {
	// RequestID returns the id assigned to r, re-asserted on the response.
	RequestID func(r *http.Request) string

	// OnProblem observes every problem written, e.g. for metrics.
	OnProblem func(Problem)
}

// NewNormalizer returns the error normalizer. Server errors are logged at error
// level with the request logger, client errors at debug.
func NewNormalizer(opts Options) Normalizer {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		p := From(err)
		ctx := r.Context()
		L := log.FromContext(ctx)

		if p.Status >= http.StatusInternalServerError {
			L.Error(ctx, err, "request failed", "status", p.Status, "title", p.Title)
		} else {
			L.Debug(ctx, "request rejected", "status", p.Status, "title", p.Title, "detail", p.Detail)
		}
		if opts.OnProblem != nil {
			opts.OnProblem(p)
		}

		h := w.Header()
		h.Set("Content-Type", ContentType)
		h.Del("Content-Length")
		if opts.RequestID != nil {
			if id := opts.RequestID(r); id != "" {
				h.Set(HeaderRequestID, id)
			}
		}
		if h.Get(HeaderResponseTime) == "" {
			h.Set(HeaderResponseTime, "0")
		}
		w.WriteHeader(p.Status)

		if encErr := json.NewEncoder(w).Encode(p); encErr != nil {
			L.Warn(ctx, "failed to encode problem response", "status", p.Status, "err", encErr)
		}
	}
}
