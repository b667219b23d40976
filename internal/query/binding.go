package query

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/newsintel/internal/cache"
	"github.com/ppiankov/newsintel/internal/transport"
)

// Decoder turns a raw response into a value
type Decoder[T any] func(json.RawMessage) (T, error)

// DecodeJSON is the default Decoder
func DecodeJSON[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, transport.NewDecodeError(raw, err)
	}
	return v, nil
}

// Result is what a view renders
type Result[T any] struct {
	Fingerprint cache.Fingerprint
	Data        T
	HasData     bool
	IsLoading   bool // no data yet and a fetch is pending
	IsFetching  bool
	IsStale     bool
	IsError     bool
	Err         error
	UpdatedAt   time.Time
}

type settings struct {
	enabled  bool
	maxAge   time.Duration
	onChange func()
	logger   *zap.Logger
}

// Option configures a Binding
type Option func(*settings)

// Disabled declares the binding inert until SetEnabled(true)
func Disabled() Option {
	return func(s *settings) {
		s.enabled = false
	}
}

// WithMaxAge overrides the cache TTL for this binding
func WithMaxAge(d time.Duration) Option {
	return func(s *settings) {
		s.maxAge = d
	}
}

// OnChange is called after every change of Result, outside any lock
func OnChange(fn func()) Option {
	return func(s *settings) {
		s.onChange = fn
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Binding is a managed cache subscription for one view.
// Lock order: Binding.mu before the cache lock.
type Binding[T any] struct {
	cache  *cache.Cache
	decode Decoder[T]
	cfg    settings

	mu          sync.Mutex
	fp          cache.Fingerprint
	key         string
	bound       bool
	fetch       cache.Fetcher
	unsubscribe func()
	closed      bool

	entry      cache.Entry
	decoded    T
	decodeErr  error
	memoVer    uint64
	memoAt     time.Time
	memoFilled bool

	changed chan struct{}
}

// New creates an unbound binding; a nil decode uses DecodeJSON
func New[T any](c *cache.Cache, decode Decoder[T], opts ...Option) *Binding[T] {
	if decode == nil {
		decode = DecodeJSON[T]
	}

	cfg := settings{enabled: true, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Binding[T]{
		cache:   c,
		decode:  decode,
		cfg:     cfg,
		changed: make(chan struct{}),
	}
}

// Bind declares the fingerprint the view depends on. Binding an equal
// fingerprint is a no-op; a different one moves the subscription.
func (b *Binding[T]) Bind(fp cache.Fingerprint, fetch cache.Fetcher) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.bound && b.fp.Equal(fp) {
		b.fetch = fetch
		b.mu.Unlock()
		return
	}

	b.detachLocked()
	b.fp = fp
	b.key = fp.Key()
	b.bound = true
	b.fetch = fetch
	b.entry = cache.Entry{Fingerprint: fp, State: cache.StatePending}
	b.resetMemoLocked()

	if b.cfg.enabled {
		b.attachLocked()
	} else if e, ok := b.cache.Peek(fp); ok {
		b.applyLocked(e)
	}
	b.signalLocked()
	b.mu.Unlock()

	b.notify()
}

// SetEnabled toggles the binding. Enabling triggers the first fetch;
// disabling drops the subscription.
func (b *Binding[T]) SetEnabled(enabled bool) {
	b.mu.Lock()
	if b.closed || b.cfg.enabled == enabled {
		b.mu.Unlock()
		return
	}
	b.cfg.enabled = enabled

	if b.bound {
		if enabled {
			b.attachLocked()
		} else {
			b.detachLocked()
		}
	}
	b.signalLocked()
	b.mu.Unlock()

	b.notify()
}

// Enabled reports whether the binding may fetch
func (b *Binding[T]) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.enabled
}

// Refetch forces a network call for the bound fingerprint
func (b *Binding[T]) Refetch() {
	b.mu.Lock()
	if b.closed || !b.bound || !b.cfg.enabled {
		b.mu.Unlock()
		return
	}
	b.applyLocked(b.cache.GetOrFetch(b.fp, b.fetch, cache.Force()))
	b.signalLocked()
	b.mu.Unlock()

	b.notify()
}

// Result returns the current view state
func (b *Binding[T]) Result() Result[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resultLocked()
}

// Wait blocks until the binding is neither loading nor fetching
func (b *Binding[T]) Wait(ctx context.Context) (Result[T], error) {
	for {
		b.mu.Lock()
		r := b.resultLocked()
		if b.closed || (!r.IsLoading && !r.IsFetching) {
			b.mu.Unlock()
			return r, nil
		}
		changed := b.changed
		b.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return r, ctx.Err()
		}
	}
}

// Close tears the binding down. A shared in-flight fetch keeps running
// while other subscribers depend on it.
func (b *Binding[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.detachLocked()
	b.signalLocked()
}

func (b *Binding[T]) attachLocked() {
	key := b.key
	// Subscribe before reading so no completion is missed
	b.unsubscribe = b.cache.Subscribe(b.fp, func(cache.Entry) {
		b.handle(key)
	})
	b.applyLocked(b.cache.GetOrFetch(b.fp, b.fetch, b.accessOptions()...))
}

func (b *Binding[T]) detachLocked() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

func (b *Binding[T]) accessOptions() []cache.FetchOption {
	if b.cfg.maxAge > 0 {
		return []cache.FetchOption{cache.MaxAge(b.cfg.maxAge)}
	}
	return nil
}

// handle re-reads the entry on every notification; snapshots may arrive out of order
func (b *Binding[T]) handle(key string) {
	b.mu.Lock()
	if b.closed || !b.bound || key != b.key || !b.cfg.enabled {
		// Superseded fingerprint
		b.mu.Unlock()
		return
	}

	e, ok := b.cache.Peek(b.fp)
	switch {
	case !ok:
		// Removed from the cache while still in use
		e = b.cache.GetOrFetch(b.fp, b.fetch, b.accessOptions()...)
	case e.State == cache.StateStale && !e.Fetching:
		b.cfg.logger.Debug("revalidating", zap.String("key", key))
		e = b.cache.GetOrFetch(b.fp, b.fetch, b.accessOptions()...)
	}
	b.applyLocked(e)
	b.signalLocked()
	b.mu.Unlock()

	b.notify()
}

func (b *Binding[T]) applyLocked(e cache.Entry) {
	b.entry = e
	if !e.HasData() {
		return
	}
	if b.memoFilled && b.memoVer == e.Version && b.memoAt.Equal(e.FetchedAt) {
		return
	}

	b.decoded, b.decodeErr = b.decode(e.Data)
	b.memoVer = e.Version
	b.memoAt = e.FetchedAt
	b.memoFilled = true

	if b.decodeErr != nil {
		b.cfg.logger.Warn("decode failed", zap.String("key", b.key), zap.Error(b.decodeErr))
	}
}

func (b *Binding[T]) resetMemoLocked() {
	var zero T
	b.decoded = zero
	b.decodeErr = nil
	b.memoFilled = false
	b.memoVer = 0
	b.memoAt = time.Time{}
}

func (b *Binding[T]) resultLocked() Result[T] {
	e := b.entry
	r := Result[T]{
		Fingerprint: b.fp,
		IsFetching:  e.Fetching,
		IsStale:     e.State == cache.StateStale,
		UpdatedAt:   e.FetchedAt,
	}

	if e.HasData() && b.memoFilled && b.decodeErr == nil {
		r.Data = b.decoded
		r.HasData = true
	}

	r.IsLoading = b.bound && b.cfg.enabled && !b.closed && !r.HasData &&
		(e.State == cache.StatePending || e.Fetching) && b.decodeErr == nil

	switch {
	case b.decodeErr != nil:
		r.IsError = true
		r.Err = b.decodeErr
	case e.State == cache.StateError:
		r.IsError = true
		r.Err = e.Err
	}

	return r
}

func (b *Binding[T]) signalLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

func (b *Binding[T]) notify() {
	if b.cfg.onChange != nil {
		b.cfg.onChange()
	}
}
