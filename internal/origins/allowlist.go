package origins

import (
	"errors"
	"fmt"
	"slices"
)

// AllowList is an immutable set of normalized origins. The zero value and
// nil both allow nothing. Safe for concurrent use.
type AllowList struct {
	set map[string]struct{}
}

// New normalizes every entry of list. Malformed entries are reported
// together; duplicates after normalization collapse.
func New(list []string) (*AllowList, error) {
	set := make(map[string]struct{}, len(list))
	var errs []error
	for _, raw := range list {
		o, ok := Normalize(raw)
		if !ok {
			errs = append(errs, fmt.Errorf("invalid origin %q: need scheme://host[:port]", raw))
			continue
		}
		set[o] = struct{}{}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &AllowList{set: set}, nil
}

// MustNew is New that panics on error, for fixed lists in tests and defaults.
func MustNew(list ...string) *AllowList {
	a, err := New(list)
	if err != nil {
		panic(err)
	}
	return a
}

// Contains reports whether origin, already normalized, is allowed.
func (a *AllowList) Contains(origin string) bool {
	if a == nil {
		return false
	}
	_, ok := a.set[origin]
	return ok
}

func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.set)
}

// Origins returns the allowed origins sorted.
func (a *AllowList) Origins() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.set))
	for o := range a.set {
		out = append(out, o)
	}
	slices.Sort(out)
	return out
}
