package store

import (
	"errors"
	"time"
)

// LayeredStore checks a fast front store before a durable back store
type LayeredStore struct {
	front Store
	back  Store
}

// NewLayeredStore creates a new layered store
func NewLayeredStore(front, back Store) *LayeredStore {
	return &LayeredStore{
		front: front,
		back:  back,
	}
}

// Get checks the front store first, then the back store
func (s *LayeredStore) Get(key string) ([]byte, bool) {
	if val, found := s.front.Get(key); found {
		return val, true
	}

	if val, found := s.back.Get(key); found {
		// Promote to the front store
		_ = s.front.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a response in both stores
func (s *LayeredStore) Set(key string, value []byte, ttl time.Duration) error {
	if err := s.front.Set(key, value, ttl); err != nil {
		return err
	}
	return s.back.Set(key, value, ttl)
}

// Delete removes a response from both stores
func (s *LayeredStore) Delete(key string) error {
	return errors.Join(s.front.Delete(key), s.back.Delete(key))
}

// Clear removes all responses from both stores
func (s *LayeredStore) Clear() error {
	return errors.Join(s.front.Clear(), s.back.Clear())
}

// Close closes any layer that holds resources
func (s *LayeredStore) Close() error {
	var errs []error
	for _, layer := range []Store{s.front, s.back} {
		if c, ok := layer.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
