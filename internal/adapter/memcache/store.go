package memcache

import (
	"context"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store is the in-process result cache backend. It never returns an error.
type Store struct {
	lru *LRU[[]byte]
}

// NewStore creates a store bounded to maxEntries payloads.
func NewStore(maxEntries int, clock clockwork.Clock) *Store {
	return &Store{lru: NewLRU[[]byte](maxEntries, clock)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.lru.Put(key, slices.Clone(value), ttl)
	return nil
}

// Close is a no-op; it lets Store stand in wherever a closable backend is expected.
func (s *Store) Close() error {
	return nil
}
