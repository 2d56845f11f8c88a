// Package library keeps the operator's saved portfolios and allocation
// policies. Each category is one JSON array stored under a versioned key.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Storage keys. The suffix versions the blob format.
const (
	KeySavedPortfolios    = "sentinel-desk.saved-portfolios.v1"
	KeyAllocationPolicies = "sentinel-desk.allocation-policies.v1"
)

// BlobStore persists whole blobs by key.
type BlobStore interface {
	// Load returns nil, nil when the key has never been written.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// SQLiteStore keeps blobs in the library_blobs table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps a migrated library database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the blob stored under key.
func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM library_blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load library blob %s: %w", key, err)
	}
	return []byte(data), nil
}

// Save replaces the blob stored under key.
func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO library_blobs (key, data, updated_at) VALUES (?, ?, ?)",
		key, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save library blob %s: %w", key, err)
	}
	return nil
}

// MemoryStore is a process-local BlobStore.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Load returns a copy of the blob under key.
func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// Save stores a copy of data under key.
func (s *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}
