package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store is the redis-backed local resolution cache. Entries never expire:
// a learned mapping stays valid until a newer resolution of the same input
// overwrites it.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get retrieves the learned resolution for an input URL. A miss is
// (_, false, nil), not an error.
func (s *Store) Get(ctx context.Context, url string) (string, bool, error) {
	resolved, err := s.client.Get(ctx, ResolvedKey(url)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get cached resolution: %w", err)
	}
	return resolved, true, nil
}

// Insert upserts a learned mapping. Last write wins; no TTL (0 = no expiry).
func (s *Store) Insert(ctx context.Context, url, resolved string) error {
	if err := s.client.Set(ctx, ResolvedKey(url), resolved, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache resolution: %w", err)
	}
	return nil
}

// Delete removes a learned mapping. Used by the maintenance endpoint, never
// by the resolution path.
func (s *Store) Delete(ctx context.Context, url string) error {
	if err := s.client.Del(ctx, ResolvedKey(url)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached resolution: %w", err)
	}
	return nil
}

// Flush removes every learned mapping.
func (s *Store) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixResolved+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}
