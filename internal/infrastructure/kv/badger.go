package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig holds configuration for the Badger-backed store.
type BadgerConfig struct {
	// Path is the directory for Badger files. Ignored when InMemory is true.
	Path string
	// InMemory disables disk persistence. Used in tests.
	InMemory bool
	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
	// Logger receives Badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// BadgerBackend is a persistent physical store backed by an embedded
// Badger database. Records are stored as JSON.
type BadgerBackend struct {
	name string
	db   *badger.DB
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerBackend opens a Badger database with the given configuration.
func NewBadgerBackend(name string, cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger backend %s: path is required", name)
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	return &BadgerBackend{name: name, db: db}, nil
}

// Name implements Backend.
func (b *BadgerBackend) Name() string {
	return b.name
}

// Get implements Backend.
func (b *BadgerBackend) Get(_ context.Context, key string) (Record, bool, error) {
	var rec Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("badger get %q: %w", key, err)
	}
	return rec, true, nil
}

// Set implements Backend.
func (b *BadgerBackend) Set(_ context.Context, key string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record for %q: %w", key, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("badger set %q: %w", key, err)
	}
	return nil
}

// Delete implements Backend.
func (b *BadgerBackend) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %q: %w", key, err)
	}
	return nil
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
