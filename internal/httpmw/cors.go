package httpmw

import (
	"net/http"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/origins"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/problem"
)

// OriginMatcher reports whether a normalized origin is allowed.
type OriginMatcher interface {
	Contains(origin string) bool
}

// Headers a cross-origin script may read, and what a preflight grants.
const (
	corsExposeHeaders = HeaderRequestID + ", " + HeaderResponseTime + ", X-Trace-Id"
	corsAllowMethods  = "GET, POST"
	corsAllowHeaders  = "Content-Type"
	corsMaxAge        = "600"
)

// CORS decisions, passed to the observer.
const (
	CORSAllowed   = "allowed"
	CORSPreflight = "preflight"
	CORSRejected  = "rejected"
	CORSMalformed = "malformed"
)

// CORS gates cross-origin requests against allow. Requests without an
// Origin header pass untouched. An allowed origin is echoed back in
// Access-Control-Allow-Origin and an allowed OPTIONS request is answered
// with 204 here, granting POST with a JSON body. Allowed non-preflight
// responses expose the request id and timing headers to the calling script. Malformed and unlisted origins are rejected through onErr.
// onDecision may be nil.
func CORS(allow OriginMatcher, onErr problem.Normalizer, onDecision func(decision string)) func(http.Handler) http.Handler {
	decide := func(d string) {
		if onDecision != nil {
			onDecision(d)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Origin")
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			origin, ok := origins.Normalize(raw)
			if !ok {
				decide(CORSMalformed)
				onErr(w, r, problem.New(http.StatusBadRequest, "Bad Origin", "Malformed Origin header"))
				return
			}
			if !allow.Contains(origin) {
				decide(CORSRejected)
				onErr(w, r, problem.New(http.StatusForbidden, "CORS Rejected", "Origin "+raw+" not allowed"))
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				decide(CORSPreflight)
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			decide(CORSAllowed)
			next.ServeHTTP(w, r)
		})
	}
}
