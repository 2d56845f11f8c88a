package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned for unknown record ids.
	ErrNotFound = errors.New("library record not found")
	// ErrNameRequired is returned when a record has a blank name.
	ErrNameRequired = errors.New("library record name is required")
)

// Record is one named, timestamped library entry.
type Record[T any] struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Value     T         `json:"value"`
}

// Repository is the client-held collection interface.
type Repository[T any] interface {
	List(ctx context.Context) ([]Record[T], error)
	Get(ctx context.Context, id string) (Record[T], error)
	Put(ctx context.Context, rec Record[T]) (Record[T], error)
	Delete(ctx context.Context, id string) error
}

// Collection is a Repository over a BlobStore. The blob is read once on
// construction and rewritten in full on every change.
type Collection[T any] struct {
	mu      sync.RWMutex
	store   BlobStore
	key     string
	records []Record[T]
	now     func() time.Time
	log     zerolog.Logger
}

// NewCollection loads the collection stored under key. A missing blob is an
// empty collection; a corrupt one is an error.
func NewCollection[T any](ctx context.Context, store BlobStore, key string, log zerolog.Logger) (*Collection[T], error) {
	c := &Collection[T]{
		store: store,
		key:   key,
		now:   time.Now,
		log:   log.With().Str("repository", key).Logger(),
	}

	data, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.records); err != nil {
			return nil, fmt.Errorf("failed to decode library %s: %w", key, err)
		}
	}
	c.log.Debug().Int("records", len(c.records)).Msg("Library loaded")
	return c, nil
}

// List returns all records in insertion order.
func (c *Collection[T]) List(_ context.Context) ([]Record[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Record[T](nil), c.records...), nil
}

// Get returns a record by id.
func (c *Collection[T]) Get(_ context.Context, id string) (Record[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.records[i], nil
	}
	return Record[T]{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// FindByName returns the first record with the given name (case-insensitive).
func (c *Collection[T]) FindByName(_ context.Context, name string) (Record[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Record[T]{}, false
}

// Put inserts a record (generating an id when empty) or replaces the record
// with the same id, keeping its creation time.
func (c *Collection[T]) Put(ctx context.Context, rec Record[T]) (Record[T], error) {
	if strings.TrimSpace(rec.Name) == "" {
		return Record[T]{}, ErrNameRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	next := append([]Record[T](nil), c.records...)
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.UpdatedAt = now
	if i := c.indexLocked(rec.ID); i >= 0 {
		rec.CreatedAt = next[i].CreatedAt
		next[i] = rec
	} else {
		rec.CreatedAt = now
		next = append(next, rec)
	}

	if err := c.persistLocked(ctx, next); err != nil {
		return Record[T]{}, err
	}
	return rec, nil
}

// Delete removes a record by id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := make([]Record[T], 0, len(c.records)-1)
	next = append(next, c.records[:i]...)
	next = append(next, c.records[i+1:]...)
	return c.persistLocked(ctx, next)
}

func (c *Collection[T]) indexLocked(id string) int {
	for i, r := range c.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes next and only then makes it current, so a failed
// write leaves memory matching the stored blob.
func (c *Collection[T]) persistLocked(ctx context.Context, next []Record[T]) error {
	if next == nil {
		next = []Record[T]{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode library %s: %w", c.key, err)
	}
	if err := c.store.Save(ctx, c.key, data); err != nil {
		return err
	}
	c.records = next
	c.log.Debug().Int("records", len(next)).Msg("Library saved")
	return nil
}
