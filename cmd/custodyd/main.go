// Command custodyd runs the AssetManager custody contract: it loads
// configuration, wires the ledger/token/verifier collaborators, seeds the
// configured token and pair listings, constructs the operator dispatcher,
// and serves health, metrics and the TTL sweep until SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dclob/exchange/internal/bootstrap"
	"github.com/dclob/exchange/internal/custody"
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/internal/events"
	"github.com/dclob/exchange/internal/infra/healthsrv"
	"github.com/dclob/exchange/internal/infrastructure/health"
	"github.com/dclob/exchange/internal/infrastructure/metrics"
	"github.com/dclob/exchange/internal/infrastructure/server"
	"github.com/dclob/exchange/internal/ledger"
	"github.com/dclob/exchange/internal/operator"
	"github.com/dclob/exchange/internal/store"
	"github.com/dclob/exchange/internal/token"
	"github.com/dclob/exchange/internal/verify"
)

var configFile = flag.String("config", "configs/custodyd.yaml", "Path to configuration file")

// buildTokenAdapter backs internal/token.Transferer with the configured decimals
// table and an in-memory transfer ledger. No Soroban/stellar SAC client
// exists anywhere in the example pack to ground a production adapter on,
// so this rewrite keeps token.Fake as the transfer backend and documents
// the gap in DESIGN.md rather than inventing an ungrounded RPC client.
func buildTokenAdapter(cfg *bootstrap.Config) *token.Fake {
	fake := token.NewFake()
	for _, t := range cfg.Custody.Tokens {
		fake.SetDecimals(t.Symbol, t.Decimals)
	}
	return fake
}

// runnerFunc adapts a plain function to bootstrap.Runner.
type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func main() {
	flag.Parse()

	app, err := bootstrap.NewApp(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "custodyd: failed to start:", err)
		os.Exit(1)
	}
	logger := app.Logger
	cfg := app.Cfg

	books := ledger.New(events.NewLoggingSink(logger))
	tokens := buildTokenAdapter(cfg)
	verifier := verify.NewEd25519Verifier()
	sink := events.NewLoggingSink(logger)

	manager := custody.New(books, tokens, verifier, sink, logger)
	if err := manager.Initialize(cfg.Custody.Owner, cfg.Custody.OperatorManager, cfg.Custody.FeeCollector); err != nil {
		logger.Error("failed to initialize asset manager", "error", err)
		os.Exit(1)
	}

	for _, t := range cfg.Custody.Tokens {
		if err := manager.SetTokenStatus(cfg.Custody.Owner, t.Symbol, domain.Listed); err != nil {
			logger.Error("failed to list token", "token", t.Symbol, "error", err)
			os.Exit(1)
		}
	}
	for _, p := range cfg.Custody.Pairs {
		if err := manager.SetPairStatus(cfg.Custody.Owner, p.Symbol, p.Token1, p.Token2, domain.Listed); err != nil {
			logger.Error("failed to list pair", "pair", p.Symbol, "error", err)
			os.Exit(1)
		}
		logger.Info("pair listed", "pair", p.Symbol, "default_fee_rate", p.FeeRate.String())
	}

	dispatcher := operator.New(manager, cfg.Operator.BatchesPerSecond, logger)

	healthMgr := health.NewHealthManager(logger)
	healthMgr.Register("asset_manager", func() error {
		_, err := manager.Owner()
		return err
	})
	healthMgr.Register("operator_dispatcher", func() error {
		if dispatcher == nil {
			return fmt.Errorf("operator dispatcher not initialized")
		}
		return nil
	})

	var runners []bootstrap.Runner

	if cfg.Store.Backend == "sqlite" {
		keyStore, err := store.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite store", "error", err)
			os.Exit(1)
		}
		defer keyStore.Close()

		sweeper := store.NewTTLSweeper(keyStore, logger, "custody:",
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

	healthGRPC := healthsrv.New(":50061", healthMgr, logger)
	runners = append(runners, healthGRPC)

	// A human-facing /health and /status page, separate from the grpc
	// health check orchestrators poll and the Prometheus scrape target.
	httpHealth := server.NewHealthServer("8081", logger, healthMgr)
	runners = append(runners, runnerFunc(func(ctx context.Context) error {
		httpHealth.Start()
		<-ctx.Done()
		return httpHealth.Stop(context.Background())
	}))

	if err := app.Run(runners...); err != nil {
		os.Exit(1)
	}
}
