package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/patchbay/internal/control"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/hclpatch"
	"github.com/specialistvlad/patchbay/internal/memroute"
	"github.com/specialistvlad/patchbay/internal/patch"
	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/routing"
	"github.com/specialistvlad/patchbay/internal/session"
	"github.com/specialistvlad/patchbay/internal/yamlpatch"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	loaders    patch.Loaders
	engine     *routing.Engine
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Log records go to logW.
// Without providers the core module kinds are registered.
func NewApp(logW io.Writer, cfg *Config, providers ...registry.Provider) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(providers) == 0 {
		providers = coreModules
	}
	reg := registry.New(providers...)
	logger.Debug("All module kinds registered.", "count", len(reg.Kinds()))

	if err := reg.Validate(ctx); err != nil {
		// A broken declaration is a programmer error, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	var opts []memroute.Option
	if cfg.LoadLatency > 0 {
		opts = append(opts, memroute.WithLoadLatency(cfg.LoadLatency))
	}

	return &App{
		logger:   logger,
		config:   cfg,
		registry: reg,
		loaders:  patch.Loaders{hclpatch.NewLoader(), yamlpatch.NewLoader()},
		engine:   routing.NewEngine(memroute.Open(opts...)),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Context returns ctx carrying the app's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// open creates a session on the engine's substrate and loads the configured
// patch into it, if any.
func (a *App) open(ctx context.Context) (*session.Session, routing.Substrate, error) {
	sub, err := a.engine.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open routing engine: %w", err)
	}
	s, err := session.New(ctx, sub, a.registry)
	if err != nil {
		return nil, nil, err
	}
	if a.config.PatchPath == "" {
		a.logger.Debug("No patch configured, starting with an empty chain.")
		return s, sub, nil
	}

	p, err := a.loaders.Load(ctx, a.config.PatchPath)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("failed to load patch: %w", err), s.Close(ctx))
	}
	if err := s.Load(ctx, p); err != nil {
		return nil, nil, errors.Join(err, s.Close(ctx))
	}
	return s, sub, nil
}

type dumper interface {
	Dump(w io.Writer) error
}

// Plan builds the configured patch, waits for every module to finish loading
// and writes the module tree followed by the substrate wiring to w.
func (a *App) Plan(ctx context.Context, w io.Writer) error {
	ctx = a.Context(ctx)
	if a.config.PatchPath == "" {
		return errors.New("no patch to plan")
	}

	s, sub, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(ctx); err != nil {
			a.logger.Warn("Failed to close session.", "error", err)
		}
	}()

	if err := s.Settle(ctx); err != nil {
		return err
	}
	if errs := s.Errors(); len(errs) > 0 {
		return fmt.Errorf("patch built with failures: %w", errors.Join(errs...))
	}

	st := s.Snapshot()
	fmt.Fprintf(w, "patch %q\n", st.Patch)
	fmt.Fprintf(w, "input: %s\n", st.Input)
	fmt.Fprintf(w, "output: %s\n\n", st.Output)
	fmt.Fprintln(w, "chain:")
	if err := patch.Fprint(w, st.Chain); err != nil {
		return err
	}

	d, ok := sub.(dumper)
	if !ok {
		return nil
	}
	fmt.Fprintln(w)
	return d.Dump(w)
}

// Serve builds the configured patch and runs the control surface until ctx
// is cancelled.
func (a *App) Serve(ctx context.Context) error {
	ctx = a.Context(ctx)
	a.logger.Info("🚀 Starting patchbay...")

	s, _, err := a.open(ctx)
	if err != nil {
		return err
	}

	a.healthCheckServer(ctx)
	srv := control.NewServer(a.config.ListenAddr, control.NewDispatcher(s))
	serveErr := srv.ListenAndServe(ctx)

	errs := []error{serveErr, a.closeHealthCheckServer(ctx)}
	if err := s.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close session: %w", err))
	}
	a.logger.Info("✅ Patchbay stopped.")
	return errors.Join(errs...)
}

// Close releases the routing engine.
func (a *App) Close(ctx context.Context) error {
	return a.engine.Close(a.Context(ctx))
}
