package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CommitMakesWritesVisible(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "book:BTC-USD", []byte("state-1"), 0))

	_, ok, err := s.Get(ctx, "book:BTC-USD")
	require.NoError(t, err)
	assert.False(t, ok, "write must not be visible before commit")

	require.NoError(t, tx.Commit())

	value, ok, err := s.Get(ctx, "book:BTC-USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("state-1"), value)
}

func TestMemoryStore_RollbackDiscardsWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "k", []byte("v"), 0))
	require.NoError(t, tx.Rollback())

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ExpiredKeyReadsAsAbsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "k", []byte("v"), time.Millisecond))
	require.NoError(t, tx.Commit())

	time.Sleep(5 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_BumpTTLExtendsExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "k", []byte("v"), time.Second))
	require.NoError(t, tx.Commit())

	before, ok, err := s.ExpiresAt(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.BumpTTL(ctx, "k", time.Hour))

	after, ok, err := s.ExpiresAt(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, after.After(before))
}

func TestMemoryStore_KeysFiltersByPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "book:BTC-USD", []byte("a"), 0))
	require.NoError(t, tx.Put(ctx, "book:ETH-USD", []byte("b"), 0))
	require.NoError(t, tx.Put(ctx, "withdraw:1", []byte("c"), 0))
	require.NoError(t, tx.Commit())

	keys, err := s.Keys(ctx, "book:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"book:BTC-USD", "book:ETH-USD"}, keys)
}

func TestMemoryStore_DeleteRemovesKeyOnCommit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Put(ctx, "k", []byte("v"), 0))
	require.NoError(t, tx.Commit())

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Delete(ctx, "k"))
	require.NoError(t, tx.Commit())

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
