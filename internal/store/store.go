// Package store is the persistence collaborator standing in for the host
// ledger's keyed persistent and instance storage: a namespaced byte-blob KV
// with per-key expiry, transactional commit/rollback, and a periodic
// sweeper that bumps expiry on keys nearing it (spec.md §5's TTL-extension
// requirement, modeled since this rewrite has no host-managed key TTL).
package store

import (
	"context"
	"time"
)

// Tx is the narrow transaction boundary every domain package transacts
// through: load, mutate, then Commit or Rollback. Both MemoryStore and
// SQLiteStore implement it so callers never branch on backend.
type Tx interface {
	// Get reads key's value within the transaction's view.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put writes key's value within the transaction; visible to other
	// readers only after Commit.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key within the transaction.
	Delete(ctx context.Context, key string) error
	// Commit makes all writes in this transaction visible.
	Commit() error
	// Rollback discards all writes in this transaction.
	Rollback() error
}

// Store is the persistence backend: a flat namespaced KV plus transaction
// and TTL-sweep support.
type Store interface {
	// Begin opens a transaction.
	Begin(ctx context.Context) (Tx, error)
	// Get reads key outside of any transaction.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Keys lists every key with the given prefix, for the TTL sweeper and
	// for administrative listing.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// BumpTTL extends key's expiry by ttl from now, if the key exists.
	BumpTTL(ctx context.Context, key string, ttl time.Duration) error
	// ExpiresAt returns key's current expiry, if it has one.
	ExpiresAt(ctx context.Context, key string) (time.Time, bool, error)
	// Close releases backend resources.
	Close() error
}
