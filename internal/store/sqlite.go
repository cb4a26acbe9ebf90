package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is grounded on the teacher's engine/simple.SQLiteStore: WAL
// mode, a checksum alongside every written blob, serializable
// transactions. Generalized from the teacher's single-row state table to a
// namespaced key/value table with a per-row expiry column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) the kv table at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	checksum BLOB NOT NULL,
	expires_at INTEGER,
	updated_at INTEGER NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func checksum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func verifyChecksum(data, want []byte) error {
	got := checksum(data)
	if len(got) != len(want) {
		return fmt.Errorf("checksum length mismatch: expected %d, got %d", len(want), len(got))
	}
	for i := range got {
		if got[i] != want[i] {
			return errors.New("checksum verification failed: data corruption detected")
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT data, checksum, expires_at FROM kv WHERE key = ?`
	var data, sum []byte
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, q, key).Scan(&data, &sum, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	if expiresAt.Valid && time.Unix(0, expiresAt.Int64).Before(time.Now()) {
		return nil, false, nil
	}
	if err := verifyChecksum(data, sum); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, expires_at FROM kv WHERE key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()
	now := time.Now()
	var keys []string
	for rows.Next() {
		var key string
		var expiresAt sql.NullInt64
		if err := rows.Scan(&key, &expiresAt); err != nil {
			return nil, err
		}
		if expiresAt.Valid && time.Unix(0, expiresAt.Int64).Before(now) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *SQLiteStore) BumpTTL(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `UPDATE kv SET expires_at = ? WHERE key = ?`, time.Now().Add(ttl).UnixNano(), key)
	if err != nil {
		return fmt.Errorf("failed to bump ttl for %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) ExpiresAt(ctx context.Context, key string) (time.Time, bool, error) {
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT expires_at FROM kv WHERE key = ?`, key).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if !expiresAt.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(0, expiresAt.Int64), true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT data, checksum, expires_at FROM kv WHERE key = ?`
	var data, sum []byte
	var expiresAt sql.NullInt64
	err := t.tx.QueryRowContext(ctx, q, key).Scan(&data, &sum, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	if expiresAt.Valid && time.Unix(0, expiresAt.Int64).Before(time.Now()) {
		return nil, false, nil
	}
	if err := verifyChecksum(data, sum); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (t *sqliteTx) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	sum := checksum(value)
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	const q = `INSERT INTO kv (key, data, checksum, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, checksum = excluded.checksum,
			expires_at = excluded.expires_at, updated_at = excluded.updated_at`
	_, err := t.tx.ExecContext(ctx, q, key, value, sum, expiresAt, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (t *sqliteTx) Delete(ctx context.Context, key string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

var _ Store = (*SQLiteStore)(nil)
