// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerkv is a small managed wrapper around badger/v4: a
// Config/DB pair with context-aware transaction helpers and an optional
// background GC runner. It is the durability layer under C3
// (internal/memstore).
//
// The teacher repository (services/trace/storage/badger) carries exactly
// this API surface — Config, DefaultConfig/InMemoryConfig, Open/OpenDB,
// DB.WithTxn/WithReadTxn, OpenInMemory/OpenWithPath, NewGCRunner,
// TempDir/CleanupDir — but its implementation file was not retrieved into
// the example pack, only services/trace/storage/badger/badger_test.go.
// This package reconstructs that surface from the test file's observed
// behavior (context-cancellation errors containing "context cancelled",
// rollback-on-handler-error, NewGCRunner's nil/interval/ratio validation)
// so internal/memstore has the same durable-KV foundation the teacher
// uses elsewhere in its codebase.
package badgerkv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config configures a managed badger database.
type Config struct {
	// InMemory opens a badger instance backed by memory only (tests).
	InMemory bool
	// Path is the on-disk directory; required unless InMemory.
	Path string
	// SyncWrites forces an fsync after every write transaction, needed to
	// satisfy spec §4.3's "successful inserts are persistent on return".
	SyncWrites bool
	// NumVersionsToKeep bounds badger's MVCC history; memory records are
	// not versioned by this spec, so 1 is the correct default.
	NumVersionsToKeep int
	// GCInterval is a value-log GC cadence for use with NewGCRunner.
	// OpenDB does not read it and starts no background GC itself.
	GCInterval time.Duration
}

// DefaultConfig returns the persistent-mode default: durable, synced
// writes, GCInterval of 5 minutes.
func DefaultConfig() Config {
	return Config{
		InMemory:          false,
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
	}
}

// InMemoryConfig returns the in-memory default used by tests: no sync (no
// disk to sync to), GC disabled.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
		GCInterval:        0,
	}
}

// DB wraps *badger.DB with context-aware transaction helpers.
type DB struct {
	inner *badger.DB
}

// Open opens a badger database per cfg. Persistent mode requires a
// non-empty Path.
func Open(cfg Config) (*badger.DB, error) {
	opts := toBadgerOptions(cfg)
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badgerkv: path is required for persistent databases")
	}
	return badger.Open(opts)
}

func toBadgerOptions(cfg Config) badger.Options {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)
	if cfg.NumVersionsToKeep > 0 {
		opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	}
	return opts
}

// OpenDB opens a managed DB per cfg.
func OpenDB(cfg Config) (*DB, error) {
	inner, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return &DB{inner: inner}, nil
}

// OpenInMemory is shorthand for OpenDB(InMemoryConfig()).
func OpenInMemory() (*DB, error) {
	return OpenDB(InMemoryConfig())
}

// OpenWithPath is shorthand for OpenDB with a persistent config at path.
func OpenWithPath(path string) (*DB, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	return OpenDB(cfg)
}

// Close closes the underlying badger database.
func (d *DB) Close() error { return d.inner.Close() }

// Update runs fn in a read-write transaction, matching badger.DB.Update's
// signature so callers familiar with raw badger can use DB the same way.
func (d *DB) Update(fn func(txn *badger.Txn) error) error { return d.inner.Update(fn) }

// View runs fn in a read-only transaction.
func (d *DB) View(fn func(txn *badger.Txn) error) error { return d.inner.View(fn) }

// WithTxn runs fn in a read-write transaction, aborting before it starts
// if ctx is already cancelled.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badgerkv: context cancelled: %w", err)
	}
	return d.inner.Update(fn)
}

// WithReadTxn runs fn in a read-only transaction, aborting before it
// starts if ctx is already cancelled.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badgerkv: context cancelled: %w", err)
	}
	return d.inner.View(fn)
}

// RunValueLogGC runs one pass of badger's value-log garbage collection,
// equivalent to the "explicit storage compaction (equivalent to SQL
// VACUUM)" spec §4.3 requires after a clear. An in-memory database has no
// value log to reclaim, so badger's in-memory GC error is treated like
// ErrNoRewrite and returns nil.
func (d *DB) RunValueLogGC(discardRatio float64) error {
	err := d.inner.RunValueLogGC(discardRatio)
	if err == badger.ErrNoRewrite || err == badger.ErrGCInMemoryMode {
		return nil
	}
	return err
}

// GCRunner periodically runs value-log GC in the background.
type GCRunner struct {
	db       *DB
	interval time.Duration
	ratio    float64
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewGCRunner validates its arguments and returns a runner that has not
// yet started (call Start).
func NewGCRunner(db *DB, interval time.Duration, ratio float64, logger *slog.Logger) (*GCRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("badgerkv: db must not be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("badgerkv: interval must be positive")
	}
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("badgerkv: ratio must be between 0 and 1")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCRunner{db: db, interval: interval, ratio: ratio, logger: logger, stop: make(chan struct{}), done: make(chan struct{})}, nil
}

// Start begins the background GC loop.
func (g *GCRunner) Start() {
	go func() {
		defer close(g.done)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := g.db.RunValueLogGC(g.ratio); err != nil {
					g.logger.Warn("badgerkv GC pass failed", "error", err)
				}
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop halts the background GC loop and waits for it to exit.
func (g *GCRunner) Stop() {
	close(g.stop)
	<-g.done
}

// TempDir creates a temporary directory for persistent-mode tests.
func TempDir(prefix string) (string, error) {
	return os.MkdirTemp("", prefix)
}

// CleanupDir removes a directory created by TempDir. A no-op on an empty
// path so callers can defer it unconditionally.
func CleanupDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
