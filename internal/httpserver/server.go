// Package httpserver assembles the public request pipeline and runs the
// listener that serves it.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/items"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/origins"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/problem"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/sitehandler"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/webassets"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/xerrors"
)

// NewHandler builds the request pipeline:
//
//	security headers > drain > request context > response timer > recover >
//	tracing > metrics > request logger > router
//
// and inside the router: compress > route annotation > access log >
// CORS > body limit > routes. Every failure on the way is rendered by a
// single problem normalizer.
// main() owns *http.Server so it can do graceful shutdown.
func NewHandler(opts *Options) (http.Handler, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Runner == nil {
		return nil, xerrors.New("httpserver: Runner is required")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Origins == nil {
		opts.Origins = origins.MustNew()
	}
	if opts.Site == nil {
		opts.Site = webassets.SiteFS()
	}
	m := opts.Metrics

	normOpts := problem.Options{RequestID: httpmw.RequestID}
	if m != nil {
		normOpts.OnProblem = m.ObserveProblem
	}
	errs := problem.NewNormalizer(normOpts)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs(w, r, problem.New(http.StatusNotFound, "Not Found", "Cannot "+r.Method+" "+r.URL.Path))
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errs(w, r, problem.New(http.StatusMethodNotAllowed, "Method Not Allowed", "Cannot "+r.Method+" "+r.URL.Path))
	})

	site, err := sitehandler.New(sitehandler.Options{FS: opts.Site, NotFound: notFound})
	if err != nil {
		return nil, xerrors.Wrap(err, "site handler")
	}

	itemOpts := items.Options{
		Runner:    opts.Runner,
		Errors:    errs,
		Work:      opts.ItemWork,
		WorkDelay: opts.ItemWorkDelay,
	}
	var onCORS func(string)
	var onPanic func()
	if m != nil {
		itemOpts.OnProcessed = m.IncItemProcessed
		onCORS = m.IncCORSDecision
		onPanic = m.IncHttpPanic
	}

	r := chi.NewRouter()

	// compress JSON and HTML; problem+json bodies are small and stay plain
	r.Use(middleware.Compress(5, "text/html", "text/css", "application/json"))

	// rename the server span to the chi route pattern once routing is done
	r.Use(httpmw.AnnotateHTTPRoute)

	r.Use(httpmw.AccessLog())

	// CORS runs ahead of routing so an allowed preflight never reaches 405
	r.Use(httpmw.CORS(opts.Origins, errs, onCORS))

	r.Use(httpmw.MaxBody(opts.MaxBodyBytes))

	r.Get("/", site.Index)
	r.Get("/assets/*", site.Asset)
	items.New(itemOpts).Routes(r)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	var metricsMW func(http.Handler) http.Handler
	if m != nil {
		metricsMW = m.Middleware
	}

	return httpmw.Chain(r,
		// outermost so every response carries them
		httpmw.SecurityHeaders,
		httpmw.CloseWhenDraining(opts.Draining),
		httpmw.RequestContext(httpmw.HeaderRequestID),
		httpmw.ResponseTimer(httpmw.HeaderResponseTime),
		httpmw.Recover(opts.Logger, errs, onPanic),
		tracing,
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		metricsMW,
		// inner so the request logger sees trace_id
		httpmw.WithLogger(opts.Logger),
	), nil
}

func shouldTrace(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".svg", ".ico", ".map":
		return false
	}
	return p != "/favicon.ico" && p != "/robots.txt"
}

func tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(
		next,
		"http.server",
		otelhttp.WithFilter(func(r *http.Request) bool { return shouldTrace(r.URL.Path) }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			// AnnotateHTTPRoute renames it to the route pattern later
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
	)
}

// Server timeout defaults, shared with opshttp.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1 MB
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start serves the pipeline on opts.Port in the background.
// Returns stop(ctx) for graceful shutdown.
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	handler, err := NewHandler(opts)
	if err != nil {
		return nil, err
	}

	port := opts.Port
	if port == 0 {
		port = 3000
	}
	addr := fmt.Sprintf(":%d", port)
	srv := NewServer(addr, handler)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.EnsureTrace(err)
	}

	go func() {
		opts.Logger.Info(ctx, "http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			opts.Logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			opts.Logger.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
