package httpmw

import "net/http"

// CloseWhenDraining asks clients to drop keep-alive connections once
// draining reports true, so their next request lands on another instance
// while readiness is already failing. A nil draining func disables it.
func CloseWhenDraining(draining func() bool) func(http.Handler) http.Handler {
	if draining == nil {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if draining() {
				w.Header().Set("Connection", "close")
			}
			next.ServeHTTP(w, r)
		})
	}
}
