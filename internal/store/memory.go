package store

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps responses for the lifetime of the process.
// Expired entries are swept every cleanup interval until Close.
type MemoryStore struct {
	cache *gocache.Cache

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMemoryStore creates a new memory store; a non-positive cleanup
// interval expires entries lazily on read
func NewMemoryStore(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryStore {
	// go-cache's own janitor cannot be stopped, so sweep here
	s := &MemoryStore{cache: gocache.New(defaultTTL, 0)}
	if cleanupInterval > 0 {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.sweep(cleanupInterval)
	}
	return s
}

func (s *MemoryStore) sweep(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cache.DeleteExpired()
		case <-s.stop:
			return
		}
	}
}

// Close stops the expiry sweep; the store stays readable
func (s *MemoryStore) Close() error {
	if s.stop == nil {
		return nil
	}
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// Get retrieves a response
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	if val, found := s.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a response; a zero TTL uses the store default
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	s.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a response
func (s *MemoryStore) Delete(key string) error {
	s.cache.Delete(key)
	return nil
}

// Clear removes all responses
func (s *MemoryStore) Clear() error {
	s.cache.Flush()
	return nil
}

// Len returns the number of unexpired responses
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
