// Package problem implements RFC 7807 problem details: the record written
// to clients, the error type that carries one through a handler chain, and
// the terminal writer that turns any error into a problem response.
package problem

import (
	"errors"
	"net/http"
)

// DefaultType is the problem type used for every record this service emits.
const DefaultType = "about:blank"

const ContentType = "application/problem+json"

// Problem is the JSON body of an error response. Field order is the wire order.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// Error is an error carrying a Problem. Handlers return it (or wrap it) to
// pick the response a failure produces.
type Error struct {
	Problem Problem
	cause   error
}

func (e *Error) Error() string {
	if e.Problem.Detail != "" {
		return e.Problem.Title + ": " + e.Problem.Detail
	}
	return e.Problem.Title
}

func (e *Error) Unwrap() error { return e.cause }

// New returns an *Error for status, title and detail. status is clamped to
// the valid HTTP range and an empty title falls back to the status text.
func New(status int, title, detail string) error {
	return &Error{Problem: build(status, title, detail)}
}

// Wrap is New with an underlying cause kept for logging. The cause is not
// exposed to clients.
func Wrap(cause error, status int, title, detail string) error {
	return &Error{Problem: build(status, title, detail), cause: cause}
}

func build(status int, title, detail string) Problem {
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	if title == "" {
		title = http.StatusText(status)
	}
	return Problem{Type: DefaultType, Title: title, Status: status, Detail: detail}
}

// From finds the Problem carried anywhere in err's chain. Errors without one
// become a 500 whose detail is the error message.
func From(err error) Problem {
	var pe *Error
	if errors.As(err, &pe) && pe != nil {
		return build(pe.Problem.Status, pe.Problem.Title, pe.Problem.Detail)
	}
	detail := "Unknown error"
	if err != nil && err.Error() != "" {
		detail = err.Error()
	}
	return Problem{
		Type:   DefaultType,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: detail,
	}
}
