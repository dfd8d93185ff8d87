package httpmw

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMaxBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr bool
	}{
		{"under limit", "small", 10, false},
		{"exactly at limit", strings.Repeat("x", 10), 10, false},
		{"over limit", strings.Repeat("x", 11), 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			var got []byte
			h := MaxBody(tt.limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, readErr = io.ReadAll(r.Body)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			if !tt.wantErr {
				if readErr != nil || string(got) != tt.body {
					t.Fatalf("read = %q, %v", got, readErr)
				}
				return
			}
			var mbe *http.MaxBytesError
			if !errors.As(readErr, &mbe) || mbe.Limit != tt.limit {
				t.Fatalf("err = %v, want *http.MaxBytesError with limit %d", readErr, tt.limit)
			}
		})
	}
}

func TestMaxBody_NoBodyUntouched(t *testing.T) {
	h := MaxBody(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != http.NoBody {
			t.Error("http.NoBody should not be wrapped")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
}
