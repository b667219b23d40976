package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ppiankov/newsintel/internal/model"
)

// Store persists raw API responses between runs
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a store key from a resource fingerprint key
func Key(fingerprint string) string {
	hash := sha256.Sum256([]byte(fingerprint))
	return "newsintel:v1:" + hex.EncodeToString(hash[:])
}

// Open builds the store selected by the cache configuration.
// PersistNone returns a nil Store.
func Open(cfg model.CacheConfig) (Store, error) {
	switch cfg.Persist {
	case "", model.PersistNone:
		return nil, nil
	case model.PersistMemory:
		return NewMemoryStore(cfg.PersistTTL, 10*time.Minute), nil
	case model.PersistDisk:
		return NewDiskStore(filepath.Join(cfg.Dir, "responses"), cfg.PersistTTL), nil
	case model.PersistSQLite:
		s, err := OpenSQLite(filepath.Join(cfg.Dir, "responses.db"), cfg.PersistTTL)
		if err != nil {
			return nil, err
		}
		if _, err := s.Prune(); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case model.PersistLayered:
		return NewLayeredStore(
			NewMemoryStore(cfg.PersistTTL, 10*time.Minute),
			NewDiskStore(filepath.Join(cfg.Dir, "responses"), cfg.PersistTTL),
		), nil
	default:
		return nil, fmt.Errorf("unknown persist mode: %s", cfg.Persist)
	}
}
