package health

import (
	"context"
	"sync/atomic"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/xerrors"
)

// Probe is evaluated at request time.
// nil = OK, non-nil = FAIL with reason.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed returns a probe that always passes or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	return func(context.Context) error { return xerrors.New(reason) }
}

// All is AND: passes only if every probe passes; returns the first error.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Dier is the slice of the supervisor the probes need.
type Dier interface {
	Dying() <-chan struct{}
	Err() error
}

// NotDying fails once d has started dying, reporting its fatal error.
func NotDying(d Dier) CheckFunc {
	return func(context.Context) error {
		if d == nil {
			return nil
		}
		select {
		case <-d.Dying():
			if err := d.Err(); err != nil {
				return xerrors.Wrap(err, "supervisor dying")
			}
			return xerrors.New("supervisor dying")
		default:
			return nil
		}
	}
}

// ShutdownGate flips readiness to false during drain/shutdown.
type ShutdownGate struct {
	draining atomic.Bool
	reason   atomic.Value
}

func (g *ShutdownGate) Set(reason string) {
	g.reason.Store(reason)
	g.draining.Store(true)
}

// Draining reports whether Set has been called. The public listener reads it
// per request to stop offering keep-alive.
func (g *ShutdownGate) Draining() bool { return g.draining.Load() }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if !g.draining.Load() {
			return nil
		}
		r, _ := g.reason.Load().(string)
		if r == "" {
			r = "draining"
		}
		return xerrors.New(r)
	}
}
