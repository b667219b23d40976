package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 10_000_000
)

// Credentials are per-request basic auth credentials for admin endpoints
type Credentials struct {
	Username string
	Password string
}

// Request describes one API call
type Request struct {
	Method     string
	Path       string // template, e.g. /api/keywords/{id}
	PathParams Params
	Query      Params
	Body       any     // JSON-encoded when non-nil
	Upload     *Upload // multipart body, takes precedence over Body
	Auth       *Credentials
}

// Options configures a Client
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Headers      map[string]string
	InsecureTLS  bool
	HTTPProxy    string
	HTTPSProxy   string
	NoProxy      string
	Limiter      *Limiter
	Logger       *zap.Logger

	// HTTPClient replaces the built-in client (tests)
	HTTPClient *http.Client
}

// Client issues requests against the API base URL
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	headers    map[string]string
	limiter    *Limiter
	logger     *zap.Logger
}

// NewClient creates a Client with the given options
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}

		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:               NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
				TLSHandshakeTimeout: 10 * time.Second,
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: opts.InsecureTLS}, //nolint:gosec
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: httpClient,
		userAgent:  opts.UserAgent,
		maxBytes:   opts.MaxBodyBytes,
		headers:    opts.Headers,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}, nil
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the absolute URL of a request
func (c *Client) URL(r Request) (string, error) {
	path, err := ExpandPath(r.Path, r.PathParams)
	if err != nil {
		return "", err
	}

	u := c.baseURL + path
	if q := r.Query.Encode(); q != "" {
		u += "?" + q
	}
	return u, nil
}

// Do performs the request and returns the raw JSON body
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	rawURL, err := c.URL(r)
	if err != nil {
		return nil, fmt.Errorf("build URL: %w", err)
	}

	body, contentType, err := encodeBody(r)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return nil, &NetworkError{Method: method, URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, val := range c.headers {
		req.Header.Set(key, val)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.Auth != nil {
		req.SetBasicAuth(r.Auth.Username, r.Auth.Password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("network error",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &NetworkError{Method: method, URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	// Read body with size limit
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, &NetworkError{Method: method, URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{
			Status:  resp.StatusCode,
			Body:    respBody,
			Message: serverMessage(respBody),
		}
		c.logger.Warn("api error",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
			zap.String("message", httpErr.Message),
			zap.String("request_id", requestID))
		if resp.StatusCode == http.StatusTooManyRequests {
			if d, ok := retryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
				c.limiter.Pause(rawURL, d)
			}
		}
		return nil, httpErr
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return json.RawMessage("null"), nil
	}

	if !json.Valid(respBody) {
		decodeErr := &DecodeError{
			Snippet: snippet(respBody),
			Err:     fmt.Errorf("invalid JSON (content-type %q)", resp.Header.Get("Content-Type")),
		}
		c.logger.Error("malformed response",
			zap.String("url", rawURL),
			zap.String("request_id", requestID),
			zap.Error(decodeErr))
		return nil, decodeErr
	}

	return json.RawMessage(respBody), nil
}

func encodeBody(r Request) (io.Reader, string, error) {
	if r.Upload != nil {
		body, contentType, err := r.Upload.encode()
		if err != nil {
			return nil, "", fmt.Errorf("encode upload: %w", err)
		}
		return body, contentType, nil
	}

	if r.Body == nil {
		return nil, "", nil
	}

	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}
