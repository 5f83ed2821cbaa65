// Package store keeps processed derivatives so repeated requests for the same
// input and preset are served without running the pipeline again.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no derivative matches an id or key.
var ErrNotFound = errors.New("derivative not found")

// Derivative is one encoded pipeline result.
type Derivative struct {
	ID string
	// Key identifies the input bytes and preset the derivative was built from.
	Key         string
	Preset      string
	ContentType string
	Width       int
	Height      int
	Body        []byte
	CreatedAt   time.Time
}

// Store persists derivatives.
type Store interface {
	// Put stores d, assigning an ID and creation time when they are unset, and
	// returns the ID.
	Put(ctx context.Context, d *Derivative) (string, error)
	Get(ctx context.Context, id string) (*Derivative, error)
	GetByKey(ctx context.Context, key string) (*Derivative, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Config selects and tunes a store implementation.
type Config struct {
	Type             string        `yaml:"type"`
	ConnectionString string        `yaml:"connectionString"`
	TTL              time.Duration `yaml:"ttl"`
	Capacity         int           `yaml:"capacity"`
}

// Types lists the accepted Config.Type values.
var Types = []string{"memory", "sqlite", "redis"}

// New creates the store named by cfg.Type.
func New(cfg Config) (store Store, err error) {
	switch cfg.Type {
	case "memory", "":
		store = NewMemoryStore(cfg.Capacity)
	case "sqlite":
		store, err = NewSQLiteStore(cfg.ConnectionString)
	case "redis":
		store, err = NewRedisStore(cfg.ConnectionString, cfg.TTL)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("Store: initialized", "type", cfg.Type)
	return store, nil
}

func prepare(d *Derivative) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
}
