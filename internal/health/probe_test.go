package health

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func check(p Probe) string {
	if err := p.Check(context.Background()); err != nil {
		return err.Error()
	}
	return ""
}

func TestFixed(t *testing.T) {
	cases := []struct {
		name   string
		ok     bool
		reason string
		want   string
	}{
		{"pass", true, "", ""},
		{"pass ignores reason", true, "ignored", ""},
		{"fail with reason", false, "origins not loaded", "origins not loaded"},
		{"fail default reason", false, "", "unhealthy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := check(Fixed(tc.ok, tc.reason)); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAll(t *testing.T) {
	cases := []struct {
		name   string
		probes []Probe
		want   string
	}{
		{"empty passes", nil, ""},
		{"all pass", []Probe{Fixed(true, ""), Fixed(true, "")}, ""},
		{"first failure wins", []Probe{Fixed(false, "first"), Fixed(false, "second")}, "first"},
		{"second fails", []Probe{Fixed(true, ""), Fixed(false, "second")}, "second"},
		{"nil skipped", []Probe{nil, Fixed(false, "real")}, "real"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := check(All(tc.probes...)); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAll_ShortCircuits(t *testing.T) {
	called := false
	p := All(Fixed(false, "stop"), CheckFunc(func(context.Context) error {
		called = true
		return nil
	}))
	_ = p.Check(context.Background())
	if called {
		t.Fatal("All should stop at the first failure")
	}
}

type fakeDier struct {
	ch  chan struct{}
	err error
}

func (f *fakeDier) Dying() <-chan struct{} { return f.ch }
func (f *fakeDier) Err() error             { return f.err }

func TestNotDying(t *testing.T) {
	d := &fakeDier{ch: make(chan struct{})}
	p := NotDying(d)
	if got := check(p); got != "" {
		t.Fatalf("alive supervisor: %q", got)
	}

	d.err = errors.New("panic in items.process")
	close(d.ch)
	if got := check(p); got != "supervisor dying: panic in items.process" {
		t.Fatalf("got %q", got)
	}
}

func TestNotDying_NilPasses(t *testing.T) {
	if got := check(NotDying(nil)); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestShutdownGate(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()

	if got := check(p); got != "" || g.Draining() {
		t.Fatalf("new gate should be open, got %q", got)
	}

	g.Set("")
	if got := check(p); got != "draining" {
		t.Fatalf("empty reason: got %q", got)
	}
	g.Set("SIGTERM received")
	if got := check(p); got != "SIGTERM received" {
		t.Fatalf("got %q", got)
	}
	if !g.Draining() {
		t.Fatal("Draining should be true")
	}
}

func TestShutdownGate_Concurrent(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); g.Set("draining") }()
		go func() { defer wg.Done(); _ = g.Draining() }()
		go func() { defer wg.Done(); _ = p.Check(context.Background()) }()
	}
	wg.Wait()
}

func TestReadiness_GateAndSupervisor(t *testing.T) {
	var g ShutdownGate
	d := &fakeDier{ch: make(chan struct{})}
	ready := All(g.Probe(), NotDying(d))

	if got := check(ready); got != "" {
		t.Fatalf("got %q", got)
	}
	g.Set("draining")
	if got := check(ready); got != "draining" {
		t.Fatalf("gate should win first, got %q", got)
	}
}
