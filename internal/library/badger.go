package library

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerConfig configures the embedded badger store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// BadgerStore keeps blobs in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) a badger-backed store.
func OpenBadger(cfg BadgerConfig, log zerolog.Logger) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent badger store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("failed to create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{log: log.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Load returns the blob stored under key.
func (s *BadgerStore) Load(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load library blob %s: %w", key, err)
	}
	return data, nil
}

// Save replaces the blob stored under key.
func (s *BadgerStore) Save(_ context.Context, key string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save library blob %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts zerolog to badger's Logger interface. Badger's info
// chatter is demoted to debug.
type badgerLogger struct {
	log zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}
