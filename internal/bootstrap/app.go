package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dclob/exchange/internal/domain"
	"golang.org/x/sync/errgroup"
)

// App represents the application context and holds core dependencies
// shared by every runner: the custody contract, the matching-engine
// executor, and the operator dispatcher are constructed by the caller
// (cmd/custodyd, cmd/orderbookd) and handed to Run as Runners, since each
// binary only needs a subset of them.
type App struct {
	Cfg    *Config
	Logger domain.Logger
}

// NewApp creates a new App instance by bootstrapping all dependencies.
func NewApp(configPath string) (*App, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := InitLogger(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Cfg:    cfg,
		Logger: logger,
	}, nil
}

// Runner is an interface for components that can be run and stopped gracefully.
type Runner interface {
	Run(ctx context.Context) error
}

// Run orchestrates the application lifecycle, including signal handling.
func (a *App) Run(runners ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	a.Logger.Info("starting application")

	for _, runner := range runners {
		r := runner
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() == nil {
			a.Logger.Error("application stopped with error", "error", err)
			return err
		}
	}

	a.Logger.Info("application shut down gracefully")
	return nil
}

// Shutdown logs the cleanup step and its timeout. It closes no resources
// and does not enforce the timeout; callers that hold closeable resources
// (e.g. internal/store.SQLiteStore) close them themselves.
func (a *App) Shutdown(timeout time.Duration) {
	a.Logger.Info("cleaning up resources", "timeout", timeout.String())
}
