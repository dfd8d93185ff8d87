// Package items implements POST /items: decode, validate, run the item's
// work under the supervisor, and echo the payload back.
package items

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/otelx"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/problem"
)

// DefaultWorkDelay is how long the simulated per-item work takes.
const DefaultWorkDelay = 100 * time.Millisecond

// Runner runs fn in the background and waits for it. *supervisor.Supervisor
// satisfies it.
type Runner interface {
	Run(ctx context.Context, task string, fn func(context.Context) error) error
}

// WorkFunc is the item's asynchronous work.
type WorkFunc func(ctx context.Context, p Payload) error

// Item outcomes reported to OnProcessed.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

type Options struct {
	Runner Runner
	Errors problem.Normalizer

	// Work defaults to waiting WorkDelay.
	Work      WorkFunc
	WorkDelay time.Duration

	OnProcessed func(outcome string)
}

type Handler struct {
	runner      Runner
	errors      problem.Normalizer
	work        WorkFunc
	onProcessed func(string)
	tracer      trace.Tracer
}

func New(opts Options) *Handler {
	if opts.WorkDelay <= 0 {
		opts.WorkDelay = DefaultWorkDelay
	}
	if opts.Work == nil {
		opts.Work = Delay(opts.WorkDelay)
	}
	if opts.Errors == nil {
		opts.Errors = problem.NewNormalizer(problem.Options{RequestID: httpmw.RequestID})
	}
	if opts.OnProcessed == nil {
		opts.OnProcessed = func(string) {}
	}
	return &Handler{
		runner:      opts.Runner,
		errors:      opts.Errors,
		work:        opts.Work,
		onProcessed: opts.OnProcessed,
		tracer:      otelx.Tracer("items"),
	}
}

// Delay returns work that waits d, or until ctx ends.
func Delay(d time.Duration) WorkFunc {
	return func(ctx context.Context, _ Payload) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Routes mounts the item endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.With(httpmw.Scope("items")).Post("/items", h.Create)
}

type createResponse struct {
	OK   bool    `json:"ok"`
	Item Payload `json:"item"`
}

// Create handles POST /items.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := DecodeBody(r)
	if err != nil {
		h.errors(w, r, err)
		return
	}
	if err := Validate(p); err != nil {
		h.errors(w, r, err)
		return
	}

	if err := h.process(r.Context(), p); err != nil {
		h.onProcessed(OutcomeFailed)
		h.errors(w, r, err)
		return
	}
	h.onProcessed(OutcomeOK)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(createResponse{OK: true, Item: p}); err != nil {
		log.FromContext(r.Context()).Warn(r.Context(), "failed to encode item response", "err", err)
	}
}

func (h *Handler) process(ctx context.Context, p Payload) error {
	ctx, span := h.tracer.Start(ctx, "items.process")
	defer span.End()
	if obj, ok := p.(map[string]any); ok {
		span.SetAttributes(attribute.Int("item.fields", len(obj)))
	}

	work := func(ctx context.Context) error { return h.work(ctx, p) }
	var err error
	if h.runner != nil {
		err = h.runner.Run(ctx, "items.process", work)
	} else {
		err = work(ctx)
	}
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var pe *problem.Error
	if errors.As(err, &pe) {
		return err
	}
	return problem.Wrap(err, http.StatusInternalServerError, "Internal Error", err.Error())
}
