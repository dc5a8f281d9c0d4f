// Package cache is the two-tier resolution cache consulted before any
// network activity: a locally learned input->resolved mapping and a
// read-only table of well-known redirectors shipped with the application.
package cache

import (
	"context"
	"strings"
)

// LocalStore is the durable, learned mapping. Insert is an upsert with
// last-write-wins semantics and no expiry.
type LocalStore interface {
	Get(ctx context.Context, url string) (string, bool, error)
	Insert(ctx context.Context, url, resolved string) error
}

// BuiltInStore is the immutable shipped table.
type BuiltInStore interface {
	Get(ctx context.Context, url string) (string, bool, error)
}

// Resolved fronts both tiers behind one key normalization. Either store may
// be nil when its tier is not configured; lookups against a nil store miss.
type Resolved struct {
	local   LocalStore
	builtin BuiltInStore
}

func New(local LocalStore, builtin BuiltInStore) *Resolved {
	return &Resolved{local: local, builtin: builtin}
}

// Normalize is the cache key form of an input URL: exact string match after
// trimming surrounding whitespace. No canonical URL rewriting happens here.
func Normalize(url string) string {
	return strings.TrimSpace(url)
}

func (c *Resolved) LookupLocal(ctx context.Context, url string) (string, bool, error) {
	if c.local == nil {
		return "", false, nil
	}
	return c.local.Get(ctx, Normalize(url))
}

func (c *Resolved) LookupBuiltIn(ctx context.Context, url string) (string, bool, error) {
	if c.builtin == nil {
		return "", false, nil
	}
	return c.builtin.Get(ctx, Normalize(url))
}

// Insert records a fresh resolution. No-op without a local store.
func (c *Resolved) Insert(ctx context.Context, url, resolved string) error {
	if c.local == nil {
		return nil
	}
	return c.local.Insert(ctx, Normalize(url), resolved)
}
