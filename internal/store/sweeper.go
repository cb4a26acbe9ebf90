package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/concurrency"
	"github.com/dclob/exchange/pkg/retry"
)

// TTLSweeper periodically bumps the expiry of every key under a prefix
// that is within Threshold of expiring, standing in for the host ledger's
// automatic key-TTL extension (spec.md §5) since this rewrite's store
// tracks expiry itself instead of relying on a managed ledger entry.
type TTLSweeper struct {
	store     Store
	pool      *concurrency.WorkerPool
	logger    domain.Logger
	Prefix    string
	BumpBy    time.Duration
	Threshold time.Duration
	Interval  time.Duration

	stop chan struct{}

	mu      sync.Mutex
	lastErr error
}

// NewTTLSweeper builds a sweeper over store's keys matching prefix,
// extending expiry by bumpBy whenever a key is within threshold of
// expiring, checked every interval.
func NewTTLSweeper(store Store, logger domain.Logger, prefix string, bumpBy, threshold, interval time.Duration) *TTLSweeper {
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:       "ttl-sweeper",
		MaxWorkers: 4,
	}, logger)
	return &TTLSweeper{
		store:     store,
		pool:      pool,
		logger:    logger.WithField("component", "ttl_sweeper"),
		Prefix:    prefix,
		BumpBy:    bumpBy,
		Threshold: threshold,
		Interval:  interval,
		stop:      make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
func (w *TTLSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

// Stop halts the sweep loop and drains the worker pool.
func (w *TTLSweeper) Stop() {
	close(w.stop)
	w.pool.Stop()
}

// LastSweepError reports the most recent sweep failure, if any, so a
// cmd/ process can register it as an Advisory health.HealthManager check:
// a lagging sweeper leaves custody/matching state correct, just with keys
// closer to expiry than intended, so it should degrade status rather than
// take the process out of serving.
func (w *TTLSweeper) LastSweepError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *TTLSweeper) setLastSweepError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
}

func (w *TTLSweeper) sweepOnce(ctx context.Context) {
	keys, err := w.store.Keys(ctx, w.Prefix)
	if err != nil {
		w.logger.Error("ttl sweep: list keys failed", "error", err)
		w.setLastSweepError(err)
		return
	}
	w.setLastSweepError(nil)
	now := time.Now()
	for _, key := range keys {
		key := key
		expiresAt, ok, err := w.store.ExpiresAt(ctx, key)
		if err != nil || !ok {
			continue
		}
		if expiresAt.Sub(now) > w.Threshold {
			continue
		}
		if err := w.pool.Submit(func() {
			w.bumpWithRetry(ctx, key)
		}); err != nil {
			w.logger.Warn("ttl sweep: submit failed", "key", key, "error", err)
		}
	}
}

func (w *TTLSweeper) bumpWithRetry(ctx context.Context, key string) {
	err := retry.Do(ctx, retry.DefaultPolicy, isBusy, func() error {
		return w.store.BumpTTL(ctx, key, w.BumpBy)
	})
	if err != nil {
		w.logger.Error("ttl sweep: bump failed", "key", key, "error", err)
	}
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrTxDone) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
