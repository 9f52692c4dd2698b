package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/roach88/neobank/internal/accounts"
	"github.com/roach88/neobank/internal/config"
	"github.com/roach88/neobank/internal/connector"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/governance"
	"github.com/roach88/neobank/internal/hooks"
	"github.com/roach88/neobank/internal/metrics"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
	"github.com/roach88/neobank/internal/telemetry"
)

// App is the wired runtime a command operates on.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *store.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Env      *engine.Env
	Accounts *accounts.Service
	Engine   *engine.Engine
	Gov      *governance.Engine
	Hooks    *hooks.Engine

	shutdown func(context.Context) error
}

// openApp loads configuration, opens the ledger and wires the services.
// The caller must Close the returned App.
func openApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}

	level := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}

	logger.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		_ = shutdown(ctx)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	env := engine.NewEnv(st,
		engine.WithLogger(logger),
		engine.WithMetrics(m),
		engine.WithTracer(telemetry.Tracer()),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Registry: reg,
		Metrics:  m,
		Env:      env,
		Accounts: accounts.New(env),
		Engine:   engine.New(env),
		Gov:      governance.New(env),
		Hooks:    hooks.New(env, connector.Default(cfg.StakePool())),
		shutdown: shutdown,
	}, nil
}

// Close flushes traces and closes the ledger.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(a.shutdown(ctx), a.Store.Close())
}

// withApp runs fn against a freshly opened App and closes it afterwards.
func withApp(opts *RootOptions, logOut io.Writer, fn func(ctx context.Context, app *App) error) error {
	ctx := context.Background()
	app, err := openApp(ctx, opts, logOut)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(ctx); cerr != nil {
			app.Logger.Error("close failed", "error", cerr)
		}
	}()
	return fn(ctx, app)
}

// parseIdentity parses a base58 identity flag or argument. The well-known
// ledger accounts may be named instead.
func parseIdentity(name, s string) (model.Identity, error) {
	switch s {
	case "treasury":
		return model.TreasuryAddress(), nil
	case "stake-pool":
		return model.StakePoolAddress(), nil
	}
	id, err := model.ParseIdentity(s)
	if err != nil {
		return id, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s", name), err)
	}
	return id, nil
}

// parseIdentities parses a list of base58 identities.
func parseIdentities(name string, ss []string) ([]model.Identity, error) {
	out := make([]model.Identity, 0, len(ss))
	for _, s := range ss {
		id, err := parseIdentity(name, s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// parseProposalID parses a proposal id argument.
func parseProposalID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid proposal id", err)
	}
	return id, nil
}

// parseAmount parses a non-negative integer argument.
func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid amount %q", s), err)
	}
	return v, nil
}
