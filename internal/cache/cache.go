package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/newsintel/internal/store"
)

const (
	defaultTTL        = 5 * time.Minute
	defaultMaxEntries = 500
)

var (
	// ErrClosed is returned after Close
	ErrClosed = errors.New("cache closed")

	// ErrRemoved is returned to a waiter whose entry was removed or evicted mid-fetch
	ErrRemoved = errors.New("cache entry removed")
)

// State is the lifecycle state of an entry
type State string

const (
	StatePending State = "pending"
	StateFresh   State = "fresh"
	StateStale   State = "stale"
	StateError   State = "error"
)

// Entry is a read-only snapshot of a cached resource
type Entry struct {
	Fingerprint Fingerprint
	Data        json.RawMessage
	Err         error
	FetchedAt   time.Time
	State       State
	Fetching    bool
	Version     uint64 // increases whenever the entry is replaced
}

// HasData reports whether the entry holds a response, possibly stale
func (e Entry) HasData() bool {
	return e.Data != nil
}

// Fetcher performs the network call for a fingerprint
type Fetcher func(ctx context.Context) (json.RawMessage, error)

// Listener receives entry snapshots after every change
type Listener func(Entry)

// Stats are cumulative cache counters
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Fetches   int64
	Coalesced int64
	Errors    int64
	Discarded int64
	Evictions int64
}

type record struct {
	entry Entry
	elem  *list.Element

	gen      uint64
	inflight bool
	cancel   context.CancelFunc
	done     chan struct{}
	waiters  int

	// set by Invalidate while a fetch is in flight
	staleOnArrival bool
}

type persisted struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Cache is the process-wide resource cache.
// It coalesces concurrent fetches per fingerprint and serves stale data while revalidating.
type Cache struct {
	mu      sync.Mutex
	records map[string]*record
	lru     *list.List // front is most recently accessed
	subs    map[string]map[uint64]Listener
	nextSub uint64
	stats   Stats
	closed  bool

	ttl        time.Duration
	maxEntries int
	store      store.Store
	persistTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL sets how long a response stays fresh
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of entries; 0 disables eviction
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithStore persists successful responses and hydrates misses from s
func WithStore(s store.Store, ttl time.Duration) Option {
	return func(c *Cache) {
		c.store = s
		c.persistTTL = ttl
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache
func New(opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		records:    make(map[string]*record),
		lru:        list.New(),
		subs:       make(map[string]map[uint64]Listener),
		ttl:        defaultTTL,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

type fetchOptions struct {
	maxAge time.Duration
	force  bool
}

// FetchOption adjusts a single access
type FetchOption func(*fetchOptions)

// MaxAge overrides the TTL for this access
func MaxAge(d time.Duration) FetchOption {
	return func(o *fetchOptions) {
		o.maxAge = d
	}
}

// Force starts a fetch even when the entry is fresh
func Force() FetchOption {
	return func(o *fetchOptions) {
		o.force = true
	}
}

// GetOrFetch returns the current snapshot for fp and starts a fetch when the entry
// is missing, stale or failed. At most one fetch per fingerprint runs at a time.
func (c *Cache) GetOrFetch(fp Fingerprint, fetch Fetcher, opts ...FetchOption) Entry {
	rec, ok := c.acquire(fp, fetch, opts)
	if !ok {
		return Entry{Fingerprint: fp, State: StateError, Err: ErrClosed}
	}
	snap := c.snapshotLocked(rec)
	c.mu.Unlock()
	return snap
}

// Fetch is the blocking form of GetOrFetch: it returns as soon as data is
// present (stale data is returned while revalidating) or waits for the fetch.
func (c *Cache) Fetch(ctx context.Context, fp Fingerprint, fetch Fetcher, opts ...FetchOption) (Entry, error) {
	rec, ok := c.acquire(fp, fetch, opts)
	if !ok {
		return Entry{}, ErrClosed
	}

	snap := c.snapshotLocked(rec)
	if snap.HasData() || !rec.inflight {
		c.mu.Unlock()
		if !snap.HasData() && snap.Err != nil {
			return snap, snap.Err
		}
		return snap, nil
	}

	rec.waiters++
	done := rec.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		c.mu.Lock()
		rec.waiters--
		c.maybeCancelLocked(fp.Key(), rec)
		c.mu.Unlock()
		return Entry{}, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec.waiters--

	if c.closed {
		return Entry{}, ErrClosed
	}
	if c.records[fp.Key()] != rec {
		return Entry{}, ErrRemoved
	}
	snap = c.snapshotLocked(rec)
	if !snap.HasData() && snap.Err != nil {
		return snap, snap.Err
	}
	return snap, nil
}

// acquire looks up or creates the record and starts a fetch when needed.
// On success the lock is held on return.
func (c *Cache) acquire(fp Fingerprint, fetch Fetcher, opts []FetchOption) (*record, bool) {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}

	key := fp.Key()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false
	}
	if rec, ok := c.records[key]; ok {
		c.accessLocked(key, rec, fetch, o)
		return rec, true
	}
	c.mu.Unlock()

	// Store reads happen outside the lock
	hydrated, found := c.hydrate(key)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false
	}
	if rec, ok := c.records[key]; ok {
		c.accessLocked(key, rec, fetch, o)
		return rec, true
	}

	c.stats.Misses++
	rec := &record{entry: Entry{Fingerprint: fp, State: StatePending}}
	if found {
		rec.entry.Data = hydrated.Data
		rec.entry.FetchedAt = hydrated.FetchedAt
		rec.entry.State = StateStale
		rec.entry.Version = 1
	}
	rec.elem = c.lru.PushFront(key)
	c.records[key] = rec

	c.startFetchLocked(key, rec, fetch)
	c.evictLocked()
	return rec, true
}

func (c *Cache) accessLocked(key string, rec *record, fetch Fetcher, o fetchOptions) {
	c.lru.MoveToFront(rec.elem)

	if rec.inflight {
		c.stats.Coalesced++
		return
	}

	c.expireLocked(rec, o.maxAge)

	switch {
	case o.force, rec.entry.State != StateFresh:
		c.startFetchLocked(key, rec, fetch)
	default:
		c.stats.Hits++
	}
}

// expireLocked turns a fresh entry stale once it outlives maxAge (or the TTL)
func (c *Cache) expireLocked(rec *record, maxAge time.Duration) {
	if rec.entry.State != StateFresh {
		return
	}
	ttl := c.ttl
	if maxAge > 0 {
		ttl = maxAge
	}
	if c.now().Sub(rec.entry.FetchedAt) > ttl {
		rec.entry.State = StateStale
		rec.entry.Version++
	}
}

func (c *Cache) startFetchLocked(key string, rec *record, fetch Fetcher) {
	if fetch == nil {
		return
	}

	rec.gen++
	gen := rec.gen
	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})

	rec.inflight = true
	rec.cancel = cancel
	rec.done = done
	rec.staleOnArrival = false
	c.stats.Fetches++

	c.logger.Debug("fetch started", zap.String("key", key), zap.Uint64("gen", gen))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		defer cancel()

		data, err := fetch(ctx)
		c.complete(key, rec, gen, data, err)
	}()
}

func (c *Cache) complete(key string, rec *record, gen uint64, data json.RawMessage, err error) {
	c.mu.Lock()

	if c.records[key] != rec || rec.gen != gen {
		c.stats.Discarded++
		c.mu.Unlock()
		c.logger.Debug("fetch result discarded", zap.String("key", key), zap.Uint64("gen", gen))
		return
	}

	rec.inflight = false
	rec.cancel = nil

	if err != nil {
		rec.entry.State = StateError
		rec.entry.Err = err
		c.stats.Errors++
	} else {
		if data == nil {
			data = json.RawMessage("null")
		}
		rec.entry.Data = data
		rec.entry.Err = nil
		rec.entry.FetchedAt = c.now()
		rec.entry.State = StateFresh
		if rec.staleOnArrival {
			rec.entry.State = StateStale
		}
	}
	rec.staleOnArrival = false
	rec.entry.Version++

	snap := c.snapshotLocked(rec)
	listeners := c.listenersLocked(key)
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("fetch failed", zap.String("key", key), zap.Error(err))
	} else {
		c.persist(key, snap)
	}

	notify(listeners, snap)
}

// Subscribe registers l for changes of fp. Dropping the last subscriber
// cancels an in-flight fetch that nobody is waiting on.
func (c *Cache) Subscribe(fp Fingerprint, l Listener) (unsubscribe func()) {
	key := fp.Key()

	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	if c.subs[key] == nil {
		c.subs[key] = make(map[uint64]Listener)
	}
	c.subs[key][id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			delete(c.subs[key], id)
			if len(c.subs[key]) > 0 {
				return
			}
			delete(c.subs, key)

			if rec, ok := c.records[key]; ok {
				c.maybeCancelLocked(key, rec)
			}
		})
	}
}

// maybeCancelLocked cancels an in-flight fetch with no remaining audience
func (c *Cache) maybeCancelLocked(key string, rec *record) {
	if !rec.inflight || rec.waiters > 0 || len(c.subs[key]) > 0 {
		return
	}
	if c.records[key] != rec {
		return
	}

	rec.cancel()
	rec.gen++
	rec.inflight = false
	rec.cancel = nil
	rec.staleOnArrival = false

	c.logger.Debug("fetch cancelled", zap.String("key", key))

	if !rec.entry.HasData() {
		c.deleteLocked(key, rec)
		return
	}
	if rec.entry.State == StateFresh {
		rec.entry.State = StateStale
		rec.entry.Version++
	}
}

// Invalidate marks matching entries stale; an in-flight fetch for a matching
// entry lands as stale. Persisted copies are deleted. Returns the match count.
func (c *Cache) Invalidate(m Matcher) int {
	type change struct {
		snap      Entry
		listeners []Listener
	}

	c.mu.Lock()
	var (
		changes []change
		keys    []string
	)
	for key, rec := range c.records {
		if !m(rec.entry.Fingerprint) {
			continue
		}
		keys = append(keys, key)

		if rec.inflight {
			rec.staleOnArrival = true
		}
		if rec.entry.State == StateFresh {
			rec.entry.State = StateStale
			rec.entry.Version++
		}
		changes = append(changes, change{snap: c.snapshotLocked(rec), listeners: c.listenersLocked(key)})
	}
	c.mu.Unlock()

	for _, key := range keys {
		c.unpersist(key)
	}
	for _, ch := range changes {
		notify(ch.listeners, ch.snap)
	}

	if len(keys) > 0 {
		c.logger.Debug("invalidated", zap.Int("entries", len(keys)))
	}
	return len(keys)
}

// Remove drops the entry for fp and cancels its fetch.
// Subscribers are notified with an empty pending snapshot.
func (c *Cache) Remove(fp Fingerprint) bool {
	key := fp.Key()

	c.mu.Lock()
	rec, ok := c.records[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.dropLocked(key, rec)
	listeners := c.listenersLocked(key)
	c.mu.Unlock()

	c.unpersist(key)
	notify(listeners, Entry{Fingerprint: fp, State: StatePending})
	return true
}

// Clear drops every entry and the persistent store contents
func (c *Cache) Clear() error {
	type change struct {
		fp        Fingerprint
		listeners []Listener
	}

	c.mu.Lock()
	var changes []change
	for key, rec := range c.records {
		fp := rec.entry.Fingerprint
		c.dropLocked(key, rec)
		if listeners := c.listenersLocked(key); len(listeners) > 0 {
			changes = append(changes, change{fp: fp, listeners: listeners})
		}
	}
	c.mu.Unlock()

	for _, ch := range changes {
		notify(ch.listeners, Entry{Fingerprint: ch.fp, State: StatePending})
	}

	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
	}
	return nil
}

// Close cancels in-flight fetches, waits for them and closes the store
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, rec := range c.records {
		// Completions after Close are discarded
		rec.gen++
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Peek returns the snapshot for fp without fetching
func (c *Cache) Peek(fp Fingerprint) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[fp.Key()]
	if !ok {
		return Entry{}, false
	}
	c.expireLocked(rec, 0)
	return c.snapshotLocked(rec), true
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Stats returns a copy of the counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = len(c.records)
	return s
}

// evictLocked removes least-recently-accessed idle entries above the bound.
// Entries with a fetch in flight or with subscribers are never evicted.
func (c *Cache) evictLocked() {
	if c.maxEntries <= 0 {
		return
	}

	for elem := c.lru.Back(); elem != nil && len(c.records) > c.maxEntries; {
		prev := elem.Prev()
		key := elem.Value.(string)
		rec := c.records[key]

		if !rec.inflight && len(c.subs[key]) == 0 {
			c.deleteLocked(key, rec)
			c.stats.Evictions++
			c.logger.Debug("evicted", zap.String("key", key))
		}
		elem = prev
	}
}

// dropLocked cancels any fetch and deletes the record
func (c *Cache) dropLocked(key string, rec *record) {
	if rec.inflight {
		rec.cancel()
		rec.gen++
		rec.inflight = false
		rec.cancel = nil
	}
	c.deleteLocked(key, rec)
}

func (c *Cache) deleteLocked(key string, rec *record) {
	c.lru.Remove(rec.elem)
	delete(c.records, key)
}

func (c *Cache) snapshotLocked(rec *record) Entry {
	snap := rec.entry
	snap.Fetching = rec.inflight
	return snap
}

func (c *Cache) listenersLocked(key string) []Listener {
	subs := c.subs[key]
	if len(subs) == 0 {
		return nil
	}
	listeners := make([]Listener, 0, len(subs))
	for _, l := range subs {
		listeners = append(listeners, l)
	}
	return listeners
}

func notify(listeners []Listener, snap Entry) {
	for _, l := range listeners {
		l(snap)
	}
}

func (c *Cache) hydrate(key string) (persisted, bool) {
	if c.store == nil {
		return persisted{}, false
	}

	raw, ok := c.store.Get(store.Key(key))
	if !ok {
		return persisted{}, false
	}

	var p persisted
	if err := json.Unmarshal(raw, &p); err != nil || p.Data == nil {
		c.logger.Warn("dropping unreadable stored response", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(store.Key(key))
		return persisted{}, false
	}
	return p, true
}

func (c *Cache) persist(key string, snap Entry) {
	if c.store == nil {
		return
	}

	raw, err := json.Marshal(persisted{Data: snap.Data, FetchedAt: snap.FetchedAt})
	if err != nil {
		c.logger.Warn("encode stored response", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(store.Key(key), raw, c.persistTTL); err != nil {
		c.logger.Warn("persist response", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) unpersist(key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Delete(store.Key(key)); err != nil {
		c.logger.Warn("delete stored response", zap.String("key", key), zap.Error(err))
	}
}
