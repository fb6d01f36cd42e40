// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package sqlitestore provides a persistent subdoc.Store backed by a single SQLite
// database.
//
// Tables:
//
//	documents(id, content, cas, expires_at)  PRIMARY KEY (id)
//	counters(name, value)                    PRIMARY KEY (name)
//
// CAS values come from the "cas" counter row, shared by all documents, so a
// document that is removed and created again never reuses a CAS.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	subdoc "github.com/netascode/go-subdoc"
)

var _ subdoc.Store = (*Store)(nil)

// Store is a subdoc.Store persisting documents in SQLite.
// Safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if needed) the database at dbPath
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps per-transaction pragmas on the transaction's connection
	db.SetMaxOpenConns(1)

	stmts := []string{
		"PRAGMA journal_mode=WAL",
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			cas INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		"INSERT OR IGNORE INTO counters (name, value) VALUES ('cas', 0)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlitestore: init %s: %w", dbPath, err)
		}
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements subdoc.Store
func (s *Store) Get(ctx context.Context, id string, opts subdoc.GetOptions) (subdoc.GetResult, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	content, cas, err := s.load(ctx, s.db, id)
	if err != nil {
		return subdoc.GetResult{}, err
	}
	return subdoc.GetResult{Content: content, Cas: cas}, nil
}

// Remove implements subdoc.Store
func (s *Store) Remove(ctx context.Context, id string, opts subdoc.RemoveOptions) error {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, opts.Durability, func(tx *sql.Tx) error {
		_, cas, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if opts.Cas != 0 && opts.Cas != cas {
			return subdoc.ErrCasMismatch
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
			return fmt.Errorf("sqlitestore: delete %q: %w", id, err)
		}
		return nil
	})
}

// LookupIn implements subdoc.Store
func (s *Store) LookupIn(ctx context.Context, id string, specs []subdoc.LookupInSpec, opts subdoc.LookupInOptions) (subdoc.LookupInResult, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	content, cas, err := s.load(ctx, s.db, id)
	if err != nil {
		return subdoc.LookupInResult{}, err
	}
	fields, err := subdoc.EvaluateLookup(content, specs)
	if err != nil {
		return subdoc.LookupInResult{}, err
	}
	return subdoc.LookupInResult{Fields: fields, Cas: cas}, nil
}

// MutateIn implements subdoc.Store
func (s *Store) MutateIn(ctx context.Context, id string, specs []subdoc.MutateInSpec, opts subdoc.MutateInOptions) (subdoc.MutateInResult, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	var res subdoc.MutateInResult
	err := s.inTx(ctx, opts.Durability, func(tx *sql.Tx) error {
		content, cas, expiresAt, err := s.loadRow(ctx, tx, id)
		exists := err == nil
		if err != nil && !errors.Is(err, subdoc.ErrDocumentNotFound) {
			return err
		}

		switch opts.Semantics {
		case subdoc.StoreInsert:
			if exists {
				return subdoc.ErrDocumentExists
			}
		case subdoc.StoreUpsert:
			if !exists && opts.Cas != 0 {
				return subdoc.ErrDocumentNotFound
			}
		default:
			if !exists {
				return subdoc.ErrDocumentNotFound
			}
		}
		if exists && opts.Cas != 0 && opts.Cas != cas {
			return subdoc.ErrCasMismatch
		}

		if !exists {
			content = subdoc.EmptyDocumentFor(specs)
			expiresAt = 0
		}
		next, err := subdoc.ApplyMutations(content, specs)
		if err != nil {
			return err
		}

		newCas, err := nextCas(ctx, tx)
		if err != nil {
			return err
		}
		if opts.Expiry > 0 {
			expiresAt = s.now().Add(opts.Expiry).UnixNano()
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (id, content, cas, expires_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET content = excluded.content, cas = excluded.cas, expires_at = excluded.expires_at`,
			id, string(next), int64(newCas), expiresAt, //nolint:gosec // G115: counter stays far below MaxInt64
		)
		if err != nil {
			return fmt.Errorf("sqlitestore: write %q: %w", id, err)
		}
		res.Cas = newCas
		return nil
	})
	if err != nil {
		return subdoc.MutateInResult{}, err
	}
	return res, nil
}

// PurgeExpired deletes expired documents and returns how many were removed.
// Expired documents are invisible to every other operation even before a purge.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE expires_at != 0 AND expires_at <= ?", s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) load(ctx context.Context, q querier, id string) ([]byte, uint64, error) {
	content, cas, _, err := s.loadRow(ctx, q, id)
	return content, cas, err
}

// loadRow reads a live document; expired rows are reported as absent
func (s *Store) loadRow(ctx context.Context, q querier, id string) ([]byte, uint64, int64, error) {
	var (
		raw       string
		cas       int64
		expiresAt int64
	)
	err := q.QueryRowContext(ctx,
		"SELECT content, cas, expires_at FROM documents WHERE id = ? AND (expires_at = 0 OR expires_at > ?)",
		id, s.now().UnixNano(),
	).Scan(&raw, &cas, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, 0, subdoc.ErrDocumentNotFound
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("sqlitestore: read %q: %w", id, err)
	}
	return []byte(raw), uint64(cas), expiresAt, nil //nolint:gosec // G115: cas is never negative
}

// inTx runs fn in a transaction. Persist durability levels commit with
// synchronous=FULL, the others with synchronous=NORMAL.
func (s *Store) inTx(ctx context.Context, level subdoc.DurabilityLevel, fn func(tx *sql.Tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("sqlitestore: connect: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA synchronous="+synchronousFor(level)); err != nil {
		return fmt.Errorf("sqlitestore: set durability %s: %w", level, err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // the original error is more useful
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

func synchronousFor(level subdoc.DurabilityLevel) string {
	switch level {
	case subdoc.DurabilityMajorityAndPersistToActive, subdoc.DurabilityPersistToMajority:
		return "FULL"
	default:
		return "NORMAL"
	}
}

func nextCas(ctx context.Context, tx *sql.Tx) (uint64, error) {
	if _, err := tx.ExecContext(ctx, "UPDATE counters SET value = value + 1 WHERE name = 'cas'"); err != nil {
		return 0, fmt.Errorf("sqlitestore: bump cas: %w", err)
	}
	var cas int64
	if err := tx.QueryRowContext(ctx, "SELECT value FROM counters WHERE name = 'cas'").Scan(&cas); err != nil {
		return 0, fmt.Errorf("sqlitestore: read cas: %w", err)
	}
	return uint64(cas), nil //nolint:gosec // G115: counter starts at 0 and only grows
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
