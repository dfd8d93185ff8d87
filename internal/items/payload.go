package items

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/problem"
)

// Payload is a decoded JSON request body. Objects decode to map[string]any
// and numbers to float64; anything else the client sent is kept as-is so
// the echo matches what was parsed.
type Payload = any

// DecodeBody reads and parses the request body. Only application/json (and
// +json) bodies are parsed; any other content type, or an empty body, is
// treated as an empty object. The top level must be an object or array.
//
// Errors are problems: 413 when the body exceeds the MaxBody limit, 400 when
// it is not valid JSON.
func DecodeBody(r *http.Request) (Payload, error) {
	empty := map[string]any{}
	if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
		return empty, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, problem.Wrap(err, http.StatusRequestEntityTooLarge, "Payload Too Large", "request body exceeds the limit")
		}
		return nil, problem.Wrap(err, http.StatusBadRequest, "Invalid JSON", "request body could not be read")
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return empty, nil
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, problem.New(http.StatusBadRequest, "Invalid JSON", "request body must be a JSON object or array")
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&v); err != nil {
		return nil, problem.Wrap(err, http.StatusBadRequest, "Invalid JSON", "request body is not valid JSON")
	}
	if dec.More() {
		return nil, problem.New(http.StatusBadRequest, "Invalid JSON", "request body has trailing data")
	}
	return v, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mt == "application/json" {
		return true
	}
	return len(mt) > 5 && mt[len(mt)-5:] == "+json"
}

// Validate checks that p is an object with a string name and a numeric qty.
// The first failing field wins; non-objects fail on name.
func Validate(p Payload) error {
	obj, _ := p.(map[string]any)
	if _, ok := obj["name"].(string); !ok {
		return problem.New(http.StatusUnprocessableEntity, "Invalid name", "name must be a string")
	}
	if _, ok := obj["qty"].(float64); !ok {
		return problem.New(http.StatusUnprocessableEntity, "Invalid qty", "qty must be a number")
	}
	return nil
}
