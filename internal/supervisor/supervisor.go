// Package supervisor runs background work spawned by requests. An error
// returned by the work belongs to the caller; a panic does not. A panic in
// supervised work is unrecoverable for the whole process: the supervisor
// records it, wakes everyone waiting on Dying, and leaves the exit to main.
package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/xerrors"
)

// ErrDying is returned by Run when the supervisor has already failed.
var ErrDying = xerrors.New("supervisor is shutting down after a fatal error")

// FatalError describes the panic that brought the supervisor down.
type FatalError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("unrecovered panic in %s: %v", e.Task, e.Value)
}

type Supervisor struct {
	logger  log.Logger
	onFatal func(task string)

	wg    sync.WaitGroup
	once  sync.Once
	dying chan struct{}
	err   error
}

// New returns a running supervisor. onFatal may be nil.
func New(logger log.Logger, onFatal func(task string)) *Supervisor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Supervisor{
		logger:  logger,
		onFatal: onFatal,
		dying:   make(chan struct{}),
	}
}

// Go starts fn on its own goroutine. The returned channel receives fn's
// result exactly once, unless fn panics, in which case it never does and
// Dying is closed instead.
func (s *Supervisor) Go(ctx context.Context, task string, fn func(context.Context) error) <-chan error {
	res := make(chan error, 1)
	select {
	case <-s.dying:
		res <- ErrDying
		return res
	default:
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if v := recover(); v != nil {
				s.fail(ctx, &FatalError{Task: task, Value: v, Stack: debug.Stack()})
			}
		}()
		res <- fn(ctx)
	}()
	return res
}

// Run is Go followed by waiting for the result, the supervisor dying, or
// ctx ending, whichever comes first.
func (s *Supervisor) Run(ctx context.Context, task string, fn func(context.Context) error) error {
	select {
	case err := <-s.Go(ctx, task, fn):
		return err
	case <-s.dying:
		return ErrDying
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) fail(ctx context.Context, fe *FatalError) {
	s.once.Do(func() {
		s.err = fe
		s.logger.Error(ctx, fe, "supervised task panicked, process is going down",
			"task", fe.Task,
			"stack", string(fe.Stack),
		)
		if s.onFatal != nil {
			s.onFatal(fe.Task)
		}
		close(s.dying)
	})
}

// Dying is closed after the first fatal error.
func (s *Supervisor) Dying() <-chan struct{} { return s.dying }

// Err returns the first fatal error, or nil. It is only meaningful once
// Dying is closed.
func (s *Supervisor) Err() error {
	select {
	case <-s.dying:
		return s.err
	default:
		return nil
	}
}

// Watch blocks until the supervisor dies or ctx ends, and returns the fatal
// error in the first case. It is shaped for errgroup.Group.Go.
func (s *Supervisor) Watch(ctx context.Context) error {
	select {
	case <-s.dying:
		return s.err
	case <-ctx.Done():
		return nil
	}
}

// Wait blocks until all started work has returned or ctx ends.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
