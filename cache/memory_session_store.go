package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/gramforge/gramcast/domain"
)

// MemorySessionStore implements SessionStore using ttlcache. Used by tests
// and single-node dev runs where no Redis backend is reachable.
type MemorySessionStore struct {
	cache *ttlcache.Cache[string, *domain.SessionRecord]
}

// NewMemorySessionStore creates an in-memory store with automatic cleanup.
func NewMemorySessionStore() *MemorySessionStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.SessionRecord](),
	)
	go cache.Start()

	return &MemorySessionStore{cache: cache}
}

// Set implements SessionStore.Set.
func (s *MemorySessionStore) Set(_ context.Context, handle string, rec *domain.SessionRecord, ttl time.Duration) error {
	s.cache.Set(sessionKey(handle), rec, ttl)
	return nil
}

// Get implements SessionStore.Get.
func (s *MemorySessionStore) Get(_ context.Context, handle string) (*domain.SessionRecord, error) {
	item := s.cache.Get(sessionKey(handle))
	if item == nil {
		return nil, domain.ErrSessionNotFound
	}
	return item.Value(), nil
}

// Close stops the cleanup goroutine.
func (s *MemorySessionStore) Close() error {
	s.cache.Stop()
	return nil
}
