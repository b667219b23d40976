package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/newsintel/internal/cache"
	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/mutation"
	"github.com/ppiankov/newsintel/internal/query"
	"github.com/ppiankov/newsintel/internal/store"
	"github.com/ppiankov/newsintel/internal/transport"
)

const retryBaseDelay = 500 * time.Millisecond

// fetchSleepFunc is overridden in tests
var fetchSleepFunc = time.Sleep

// Client is the typed entry point to the News Intelligence Hub API.
// Reads go through the resource cache, writes through the mutation dispatcher.
type Client struct {
	transport *transport.Client
	cache     *cache.Cache
	mutations *mutation.Dispatcher
	cached    bool

	adminPrefix string
	language    model.Language
	retries     int
	workers     int
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*options)

type options struct {
	logger     *zap.Logger
	httpClient *http.Client
	cache      *cache.Cache
}

// WithLogger sets the logger shared by all components
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient replaces the transport's HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithCache shares an existing cache instead of building one from the config
func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// New wires transport, cache, persistent store and dispatcher from cfg
func New(cfg *model.Config, opts ...Option) (*Client, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	tc, err := transport.NewClient(transport.Options{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.HTTP.Timeout,
		UserAgent:    cfg.HTTP.UserAgent,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Headers:      cfg.HTTP.Headers,
		InsecureTLS:  cfg.HTTP.InsecureTLS,
		HTTPProxy:    cfg.HTTP.HTTPProxy,
		HTTPSProxy:   cfg.HTTP.HTTPSProxy,
		NoProxy:      cfg.HTTP.NoProxy,
		Limiter:      transport.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		Logger:       o.logger.Named("transport"),
		HTTPClient:   o.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	c := o.cache
	if c == nil {
		cacheOpts := []cache.Option{
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
			cache.WithLogger(o.logger.Named("cache")),
		}
		if cfg.Cache.Enabled {
			s, err := store.Open(cfg.Cache)
			if err != nil {
				return nil, fmt.Errorf("open response store: %w", err)
			}
			if s != nil {
				cacheOpts = append(cacheOpts, cache.WithStore(s, cfg.Cache.PersistTTL))
			}
		}
		c = cache.New(cacheOpts...)
	}

	workers := cfg.Concurrency.Workers
	if workers <= 0 {
		workers = 1
	}

	prefix := "/" + strings.Trim(cfg.API.AdminPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	return &Client{
		transport:   tc,
		cache:       c,
		mutations:   mutation.NewDispatcher(tc, c, o.logger.Named("mutation")),
		cached:      cfg.Cache.Enabled,
		adminPrefix: prefix,
		language:    model.ParseLanguage(cfg.API.Language),
		retries:     max(cfg.HTTP.Retries, 0),
		workers:     workers,
		logger:      o.logger,
	}, nil
}

// Cache exposes the resource cache for bindings and diagnostics
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.transport.BaseURL()
}

// Close stops in-flight fetches and closes the persistent store
func (c *Client) Close() error {
	return c.cache.Close()
}

// Health checks the backend, bypassing the cache
func (c *Client) Health(ctx context.Context) (model.Health, error) {
	raw, err := c.transport.Do(ctx, transport.Request{Path: EndpointHealth})
	if err != nil {
		return model.Health{}, err
	}
	return decodeObject[model.Health](raw)
}

// authParam carries the credential identity of an authenticated read
const authParam = "~auth"

// credentialSalt is drawn once per process; admin fingerprints do not match across runs
var credentialSalt = uuid.New()

// Fingerprint returns the cache identity of a read request. Authenticated
// reads are keyed by credential so one login never sees another's cached payload.
func Fingerprint(r transport.Request) cache.Fingerprint {
	if r.Auth != nil {
		return cache.NewFingerprint(r.Path, r.PathParams, r.Query, map[string]any{authParam: credentialID(r.Auth)})
	}
	return cache.NewFingerprint(r.Path, r.PathParams, r.Query)
}

func credentialID(cr *transport.Credentials) string {
	mac := hmac.New(sha256.New, credentialSalt[:])
	_, _ = mac.Write([]byte(cr.Username))
	_, _ = mac.Write([]byte{0})
	_, _ = mac.Write([]byte(cr.Password))
	return cr.Username + ":" + hex.EncodeToString(mac.Sum(nil)[:8])
}

// Watch binds a read request to a live Result that follows invalidations
func Watch[T any](c *Client, r transport.Request, decode query.Decoder[T], opts ...query.Option) *query.Binding[T] {
	opts = append([]query.Option{query.WithLogger(c.logger.Named("query"))}, opts...)
	b := query.New[T](c.cache, decode, opts...)
	b.Bind(Fingerprint(r), c.fetcher(r))
	return b
}

// get reads r through the cache and decodes the payload
func get[T any](ctx context.Context, c *Client, r transport.Request, decode query.Decoder[T], opts ...cache.FetchOption) (T, error) {
	var zero T
	raw, err := c.read(ctx, r, opts...)
	if err != nil {
		return zero, err
	}
	return decode(raw)
}

func (c *Client) read(ctx context.Context, r transport.Request, opts ...cache.FetchOption) (json.RawMessage, error) {
	fetch := c.fetcher(r)
	if !c.cached {
		return fetch(ctx)
	}

	e, err := c.cache.Fetch(ctx, Fingerprint(r), fetch, opts...)
	if err != nil {
		return nil, err
	}
	return e.Data, nil
}

func (c *Client) fetcher(r transport.Request) cache.Fetcher {
	return func(ctx context.Context) (json.RawMessage, error) {
		return c.doWithRetry(ctx, r)
	}
}

// doWithRetry retries network failures, 5xx and 429 with exponential backoff.
// Auth and other client errors fail immediately.
func (c *Client) doWithRetry(ctx context.Context, r transport.Request) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := retryBaseDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying read",
				zap.String("path", r.Path),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			fetchSleepFunc(backoff)
			if ctx.Err() != nil {
				return nil, lastErr
			}
		}

		raw, err := c.transport.Do(ctx, r)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !transport.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// mutate sends op and decodes the response into T
func mutate[T any](ctx context.Context, c *Client, op mutation.Operation) (T, error) {
	var zero T
	raw, err := c.mutations.Mutate(ctx, op)
	if err != nil {
		return zero, err
	}
	return decodeObject[T](raw)
}

var errNotObject = errors.New("expected a JSON object")

// decodeObject rejects bodies that are not a JSON object
func decodeObject[T any](raw json.RawMessage) (T, error) {
	var zero T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return zero, transport.NewDecodeError(raw, errNotObject)
	}
	return query.DecodeJSON[T](trimmed)
}

// decodePage decodes a list envelope; a missing results key is an empty page
func decodePage[T any](raw json.RawMessage) (model.Page[T], error) {
	page, err := decodeObject[model.Page[T]](raw)
	if err != nil {
		return page, err
	}
	page.Normalize()
	return page, nil
}

// nonEmpty drops blank strings from query params
func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// positive drops zero values from query params
func positive[N int | int64 | float64](n N) any {
	if n <= 0 {
		return nil
	}
	return n
}
