// Package kv provides the key-value store behind the idempotency cache and
// the shared reachability flags.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is a byte-oriented key-value store with optional expiry.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Flags exposes string flags shared between processes, such as the
// external system reachability flag.
type Flags struct {
	store Store
}

// NewFlags wraps store.
func NewFlags(store Store) *Flags {
	return &Flags{store: store}
}

// Flag returns the flag value, or nil when the flag is unset.
func (f *Flags) Flag(ctx context.Context, key string) (*string, error) {
	value, err := f.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s := string(value)
	return &s, nil
}

// SetFlag sets the flag without expiry.
func (f *Flags) SetFlag(ctx context.Context, key, value string) error {
	return f.store.Set(ctx, key, []byte(value), 0)
}

// ClearFlag removes the flag.
func (f *Flags) ClearFlag(ctx context.Context, key string) error {
	return f.store.Delete(ctx, key)
}
