package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/keithlinneman/linnemanlabs-pipeline/internal/cfg"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/health"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/httpserver"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/log"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/metrics"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/opshttp"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/origins"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/otelx"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/prof"
	"github.com/keithlinneman/linnemanlabs-pipeline/internal/supervisor"
	v "github.com/keithlinneman/linnemanlabs-pipeline/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	var envFile string

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.StringVar(&envFile, "env-file", "", "optional .env file loaded before reading PIPELINE_* variables")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.Short())
		os.Exit(0)
	}

	// .env values never override the real environment
	if err := cfg.LoadEnvFile(envFile); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// PIPELINE_* for everything, plus the bare PORT most platforms inject
	cfg.FillFromEnv(flag.CommandLine, "PIPELINE_", map[string]string{"PORT": "http-port"}, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging; levels were checked by Validate
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stLvl, err := log.ParseLevel(conf.StacktraceLevel)
	if err != nil {
		stLvl = lvl
	}
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Commit:            vi.Commit,
		Level:             lvl,
		StacktraceLevel:   stLvl,
		JSON:              conf.LogJSON,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		MaxErrorLinks:     conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"max_body_bytes", conf.MaxBodyBytes,
		"item_work_delay", conf.ItemWorkDelay,
		"allowed_origins_ssm_param", conf.AllowedOriginsSSMParam,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion("server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
		OnActive: m.SetProfilingActive,
	})
	if err != nil {
		// profiling is optional, keep serving
		L.Warn(ctx, "continuing without pyroscope", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// Insecure because we only ship to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	allow, err := loadOrigins(ctx, conf)
	if err != nil {
		L.Error(ctx, err, "failed to load CORS allow-list")
		os.Exit(1)
	}
	m.SetAllowedOrigins(allow.Len())
	L.Info(ctx, "CORS allow-list loaded", "origins", allow.Origins())

	sup := supervisor.New(L, m.IncSupervisorFatal)

	var gate health.ShutdownGate
	liveness := health.NotDying(sup)
	readiness := health.All(gate.Probe(), health.NotDying(sup))

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:        L,
		Port:          conf.HTTPPort,
		Origins:       allow,
		MaxBodyBytes:  conf.MaxBodyBytes,
		Runner:        sup,
		ItemWorkDelay: conf.ItemWorkDelay,
		Draining:      gate.Draining,
		Metrics:       m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// ops listener refuses public source addresses in middleware as well
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      liveness,
		Readiness:   readiness,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		// worst case systemd kills us after its start timeout
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	// a fatal error in supervised work and a shutdown signal both end here
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Watch(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		bg := context.Background()

		gate.Set("draining")
		L.Info(bg, "shutdown gate closed")

		if sup.Err() == nil {
			drain(L, conf.DrainDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
		defer cancel()

		if err := siteHTTPStop(shutdownCtx); err != nil {
			L.Error(bg, err, "app http server shutdown")
		}
		if err := sup.Wait(shutdownCtx); err != nil {
			L.Warn(bg, "supervised work still running at shutdown", "err", err)
		}
		if err := opsHTTPStop(shutdownCtx); err != nil {
			L.Error(bg, err, "ops http server shutdown")
		}
		if err := shutdownOTEL(shutdownCtx); err != nil {
			L.Error(bg, err, "otel shutdown")
		}
		stopProf()
		return nil
	})

	if err := g.Wait(); err != nil {
		var fe *supervisor.FatalError
		if errors.As(err, &fe) {
			L.Error(context.Background(), err, "exiting after fatal error in supervised work", "task", fe.Task)
		} else {
			L.Error(context.Background(), err, "exiting with error")
		}
		_ = lg.Sync()
		os.Exit(1)
	}

	L.Info(context.Background(), "shutdown complete")
}

// loadOrigins builds the allow-list once at startup. The SSM parameter,
// when set, replaces -allowed-origins entirely.
func loadOrigins(ctx context.Context, conf cfg.App) (*origins.AllowList, error) {
	if conf.AllowedOriginsSSMParam == "" {
		return origins.New(conf.Origins())
	}
	client, err := origins.NewSSMClient(ctx)
	if err != nil {
		return nil, err
	}
	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return origins.FromSSM(sctx, client, conf.AllowedOriginsSSMParam)
}

// drain keeps reporting not-ready for d so load balancers stop routing to
// us before listeners close. A second signal skips the wait.
func drain(L log.Logger, d time.Duration) {
	if d <= 0 {
		return
	}
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(forceCh)

	L.Info(context.Background(), "draining before shutdown", "drain_delay", d)
	select {
	case <-time.After(d):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
}

func notifySystemd() error {
	// systemd sets NOTIFY_SOCKET when started with Type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return nil
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	_, _ = conn.Write([]byte("READY=1"))
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
