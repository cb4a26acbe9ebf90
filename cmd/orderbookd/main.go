// Command orderbookd runs the order-book matching engine: it loads
// configuration, opens the configured book store, creates an empty book
// for every configured trading pair, and serves the health/metrics surface
// until SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dclob/exchange/internal/bootstrap"
	"github.com/dclob/exchange/internal/config"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/events"
	"github.com/dclob/exchange/internal/executor"
	"github.com/dclob/exchange/internal/infra/healthsrv"
	"github.com/dclob/exchange/internal/infrastructure/health"
	"github.com/dclob/exchange/internal/infrastructure/metrics"
	"github.com/dclob/exchange/internal/infrastructure/server"
	"github.com/dclob/exchange/internal/ledger"
	"github.com/dclob/exchange/internal/store"
	"github.com/dclob/exchange/internal/token"
)

var configFile = flag.String("config", "configs/orderbookd.yaml", "Path to configuration file")

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// buildTokenAdapter mirrors cmd/custodyd's: no Soroban SAC client exists in
// the example pack, so payoff settlement reads decimals off the same
// in-memory token.Fake rather than an invented production RPC client.
func buildTokenAdapter(tokens []config.TokenConfig) *token.Fake {
	fake := token.NewFake()
	for _, t := range tokens {
		fake.SetDecimals(t.Symbol, t.Decimals)
	}
	return fake
}

func openBookStore(cfg *bootstrap.Config) (store.Store, error) {
	if cfg.Store.Backend == "sqlite" {
		return store.NewSQLiteStore(cfg.Store.SQLitePath)
	}
	return store.NewMemoryStore(), nil
}

func main() {
	flag.Parse()

	app, err := bootstrap.NewApp(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "orderbookd: failed to start:", err)
		os.Exit(1)
	}
	logger := app.Logger
	cfg := app.Cfg

	bookStore, err := openBookStore(cfg)
	if err != nil {
		logger.Error("failed to open book store", "error", err)
		os.Exit(1)
	}
	defer bookStore.Close()

	books := ledger.New(events.NewLoggingSink(logger))
	tokens := buildTokenAdapter(cfg.Custody.Tokens)
	exec := executor.New(bookStore, books, tokens, logger)

	ctx := context.Background()
	pairs := make([]domain.Pair, 0, len(cfg.Custody.Pairs))
	for _, p := range cfg.Custody.Pairs {
		if err := exec.CreateBook(ctx, p.Symbol); err != nil {
			logger.Error("failed to create book", "pair", p.Symbol, "error", err)
			os.Exit(1)
		}
		pairs = append(pairs, domain.Pair{Symbol: p.Symbol, Token1: p.Token1, Token2: p.Token2, Status: domain.Listed})
	}

	healthMgr := health.NewHealthManager(logger)
	healthMgr.Register("order_books", func() error {
		for _, p := range pairs {
			if _, _, err := exec.Depth(ctx, p.Symbol); err != nil {
				return err
			}
		}
		return nil
	})

	var runners []bootstrap.Runner

	if cfg.Store.Backend == "sqlite" {
		sweeper := store.NewTTLSweeper(bookStore, logger, "book:",
			secondsToDuration(cfg.Store.TTLBumpSeconds),
			secondsToDuration(cfg.Store.TTLThresholdSeconds),
			secondsToDuration(cfg.Store.TTLSweepIntervalSeconds))
		healthMgr.RegisterWithSeverity("ttl_sweeper", health.Advisory, sweeper.LastSweepError)
		runners = append(runners, runnerFunc(func(ctx context.Context) error {
			sweeper.Start(ctx)
			return nil
		}))
	}

	if cfg.Telemetry.EnableMetrics {
		metricsSrv := metrics.NewServer(cfg.Telemetry.MetricsPort, logger)
		runners = append(runners, runnerFunc(func(ctx context.Context) error {
			metricsSrv.Start()
			<-ctx.Done()
			return metricsSrv.Stop(context.Background())
		}))
	}

	healthGRPC := healthsrv.New(":50062", healthMgr, logger)
	runners = append(runners, healthGRPC)

	httpHealth := server.NewHealthServer("8082", logger, healthMgr)
	runners = append(runners, runnerFunc(func(ctx context.Context) error {
		httpHealth.Start()
		<-ctx.Done()
		return httpHealth.Stop(context.Background())
	}))

	if err := app.Run(runners...); err != nil {
		os.Exit(1)
	}
}
