// Package storage owns the sequencer's two independent backing stores:
// a primary column-family-style key/value engine (go.etcd.io/bbolt, whose
// buckets play the role RocksDB column families play in the original
// design — see DESIGN.md) and a secondary relational index
// (github.com/mattn/go-sqlite3). Both are opened under one data directory
// and exposed as stable handles to the rest of the core.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	bolt "go.etcd.io/bbolt"
)

// Column family names. These are exact: they appear on disk (as bbolt
// bucket names) and are referenced by the CLI inspection tool.
var (
	BucketAccounts   = []byte("accounts")
	BucketTxs        = []byte("txs")
	BucketBatches    = []byte("batches")
	BucketTxBySender = []byte("tx_by_sender")
	BucketTxByTime   = []byte("tx_by_time")
)

// allBuckets lists every column family opened at startup, in the order
// CF_NAMES is documented in spec.md §4.1 / §6.
var allBuckets = [][]byte{BucketAccounts, BucketTxs, BucketBatches, BucketTxBySender, BucketTxByTime}

// BucketNames returns the column family names as strings, for tooling that
// wants to iterate them by name (cmd/zelana-inspect).
func BucketNames() []string {
	names := make([]string, len(allBuckets))
	for i, b := range allBuckets {
		names[i] = string(b)
	}
	return names
}

// Config holds storage configuration.
type Config struct {
	// DataDir is the root directory under which the primary and secondary
	// stores are created: <DataDir>/rocksdb/ and <DataDir>/checkpoints.db.
	DataDir string
}

// Storage provides persistent storage for the sequencer core. It is safe
// to share across many concurrent readers and the single sequencer writer;
// bbolt's MVCC gives every read its own consistent snapshot, and the
// secondary store has its own internal connection pool.
type Storage struct {
	kv  *bolt.DB
	sql *sql.DB

	dataDir    string
	kvPath     string
	sqlitePath string
}

// New opens (creating if missing) both backing stores under cfg.DataDir.
func New(cfg *Config) (*Storage, error) {
	dataDir := expandPath(cfg.DataDir)
	rocksDir := filepath.Join(dataDir, "rocksdb")
	if err := os.MkdirAll(rocksDir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create primary store directory: %w", err)
	}

	kvPath := filepath.Join(rocksDir, "primary.db")
	kv, err := bolt.Open(kvPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open primary store: %w", err)
	}

	// create_missing_column_families equivalent: every bucket must exist
	// before first use. bbolt commits this as one atomic transaction, so
	// either all five CFs exist or none do.
	if err := kv.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		kv.Close()
		return nil, fmt.Errorf("storage: initialize column families: %w", err)
	}

	sqlitePath := filepath.Join(dataDir, "checkpoints.db")
	sqlDB, err := sql.Open("sqlite3", sqlitePath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("storage: open secondary store: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		kv.Close()
		sqlDB.Close()
		return nil, fmt.Errorf("storage: ping secondary store: %w", err)
	}
	// The secondary store is single-writer by construction (the sequencer
	// is the only writer, and commit writes are serialized already); cap
	// the pool the way the teacher caps its SQLite pool.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &Storage{kv: kv, sql: sqlDB, dataDir: dataDir, kvPath: kvPath, sqlitePath: sqlitePath}

	if err := s.initSecondarySchema(); err != nil {
		kv.Close()
		sqlDB.Close()
		return nil, fmt.Errorf("storage: initialize secondary schema: %w", err)
	}

	return s, nil
}

// initSecondarySchema creates the single `batches` table of §4.1.
func (s *Storage) initSecondarySchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY,
		new_root BLOB(32) NOT NULL,
		committed_at TEXT NOT NULL,
		proof_status TEXT DEFAULT 'Pending',
		l1_settlement_tx TEXT
	);
	`
	_, err := s.sql.Exec(schema)
	return err
}

// Close closes both backing stores.
func (s *Storage) Close() error {
	sqlErr := s.sql.Close()
	kvErr := s.kv.Close()
	if kvErr != nil {
		return kvErr
	}
	return sqlErr
}

// KV returns the underlying primary store handle. Callers run their own
// View/Update transactions against it (commit, the API's deposit handler,
// the cmd tools) rather than receiving raw bucket pointers — see
// DESIGN.md's discussion of the shared-handle design note.
func (s *Storage) KV() *bolt.DB { return s.kv }

// SQL returns the underlying secondary store connection.
func (s *Storage) SQL() *sql.DB { return s.sql }

// PrimaryPath reports the directory the primary store lives under, used by
// the readiness probe (see SPEC_FULL.md's health/readiness endpoints).
func (s *Storage) PrimaryPath() string { return filepath.Dir(s.kvPath) }

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
