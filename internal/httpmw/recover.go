package httpmw

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/problem"
)

// Recover turns a panic in the synchronous part of a request into a 500
// problem response. The panic is logged with its stack and reported to
// onPanic. If the response was already committed nothing more is written.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recover(logger log.Logger, onErr problem.Normalizer, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				err = fmt.Errorf("panic: %w", err)

				ctx := r.Context()
				logger.Error(ctx, err, "httpserver panic recovered",
					"request_id", RequestIDFromContext(ctx),
					"stack", string(debug.Stack()),
				)
				if onPanic != nil {
					onPanic()
				}
				if responseStarted(w) {
					return
				}
				onErr(w, r, problem.Wrap(err, http.StatusInternalServerError, "Internal Server Error", "Unexpected error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
