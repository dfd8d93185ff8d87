package problem

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew_BuildsProblem(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		title, detail string
		want          Problem
	}{
		{
			name: "cors", status: 403, title: "CORS Rejected", detail: "Origin http://evil.example not allowed",
			want: Problem{Type: "about:blank", Title: "CORS Rejected", Status: 403, Detail: "Origin http://evil.example not allowed"},
		},
		{
			name: "empty title uses status text", status: 404,
			want: Problem{Type: "about:blank", Title: "Not Found", Status: 404},
		},
		{
			name: "status clamped", status: 42, title: "Weird",
			want: Problem{Type: "about:blank", Title: "Weird", Status: 500},
		},
		{
			name: "status above range clamped", status: 600, title: "Weird",
			want: Problem{Type: "about:blank", Title: "Weird", Status: 500},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(New(tt.status, tt.title, tt.detail))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("problem mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrom_FindsWrappedProblem(t *testing.T) {
	err := fmt.Errorf("validate: %w", New(422, "Invalid name", "name must be a string"))
	got := From(err)
	want := Problem{Type: DefaultType, Title: "Invalid name", Status: 422, Detail: "name must be a string"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFrom_SynthesizesInternal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error", errors.New("disk on fire"), "disk on fire"},
		{"empty message", errors.New(""), "Unknown error"},
		{"nil", nil, "Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			want := Problem{Type: DefaultType, Title: "Internal Server Error", Status: http.StatusInternalServerError, Detail: tt.want}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := Wrap(cause, 500, "Internal Error", "work failed")
	if err.Error() != "Internal Error: work failed" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("Wrap should keep the cause reachable")
	}
	if New(404, "Not Found", "").Error() != "Not Found" {
		t.Fatal("title-only message")
	}
}
