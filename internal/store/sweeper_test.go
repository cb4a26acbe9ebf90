package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dclob/exchange/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// erroringStore fails every Keys call, standing in for a sqlite backend
// that has gone unreachable mid-sweep.
type erroringStore struct {
	*MemoryStore
}

func newErroringStore() *erroringStore {
	return &erroringStore{MemoryStore: NewMemoryStore()}
}

func (s *erroringStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return nil, fmt.Errorf("store unavailable")
}

func TestTTLSweeper_BumpsKeysNearingExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "withdraw:1", []byte("v"), 10*time.Millisecond))
	require.NoError(t, tx.Commit())

	sweeper := NewTTLSweeper(s, logger, "withdraw:", time.Hour, time.Second, time.Millisecond)
	sweeper.sweepOnce(ctx)
	time.Sleep(20 * time.Millisecond)

	expiresAt, ok, err := s.ExpiresAt(ctx, "withdraw:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, expiresAt.After(time.Now().Add(time.Minute)))
}

func TestTTLSweeper_IgnoresKeysOutsideThreshold(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "withdraw:1", []byte("v"), time.Hour))
	require.NoError(t, tx.Commit())

	before, _, err := s.ExpiresAt(ctx, "withdraw:1")
	require.NoError(t, err)

	sweeper := NewTTLSweeper(s, logger, "withdraw:", time.Hour, time.Second, time.Millisecond)
	sweeper.sweepOnce(ctx)
	time.Sleep(20 * time.Millisecond)

	after, _, err := s.ExpiresAt(ctx, "withdraw:1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTTLSweeper_LastSweepErrorReflectsKeysFailure(t *testing.T) {
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)

	s := newErroringStore()
	sweeper := NewTTLSweeper(s, logger, "withdraw:", time.Hour, time.Second, time.Millisecond)
	require.NoError(t, sweeper.LastSweepError())

	sweeper.sweepOnce(context.Background())
	require.Error(t, sweeper.LastSweepError())
	assert.Contains(t, sweeper.LastSweepError().Error(), "store unavailable")
}
