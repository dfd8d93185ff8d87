package httpmw

import (
	"net/http"
	"strconv"
	"time"
)

const HeaderResponseTime = "X-Response-Time-ms"

// timedWriter stamps the elapsed time header immediately before the status
// line is committed. WriteHeader is the single finalize point: an explicit
// call, the implicit one from the first Write or Flush, or the one forced
// after the handler returns all land here, and only the first takes effect.
type timedWriter struct {
	http.ResponseWriter
	header string
	start  time.Time

	wroteHeader bool
	status      int
}

func (tw *timedWriter) WriteHeader(code int) {
	if tw.wroteHeader {
		return
	}
	// informational responses don't commit the final header block
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		tw.ResponseWriter.WriteHeader(code)
		return
	}
	tw.wroteHeader = true
	tw.status = code
	tw.Header().Set(tw.header, FormatMillis(time.Since(tw.start)))
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timedWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}

func (tw *timedWriter) Flush() {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (tw *timedWriter) Unwrap() http.ResponseWriter { return tw.ResponseWriter }

// Written reports whether the response has been finalized.
func (tw *timedWriter) Written() bool { return tw.wroteHeader }

// FormatMillis renders d as milliseconds with three decimals.
func FormatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
}

// ResponseTimer sets headerName to the elapsed milliseconds since the
// request's recorded start on every response, exactly once. Without a
// recorded start it measures from its own entry.
func ResponseTimer(headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = HeaderResponseTime
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start, ok := StartTimeFromContext(r.Context())
			if !ok {
				start = time.Now()
			}
			tw := &timedWriter{ResponseWriter: w, header: headerName, start: start}

			next.ServeHTTP(tw, r)

			// handler returned without writing anything
			if !tw.wroteHeader {
				tw.WriteHeader(http.StatusOK)
			}
		})
	}
}

// responseStarted reports whether something up the wrapper chain already
// committed the response.
func responseStarted(w http.ResponseWriter) bool {
	for {
		if ww, ok := w.(interface{ Written() bool }); ok {
			return ww.Written()
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return false
		}
		w = u.Unwrap()
	}
}
