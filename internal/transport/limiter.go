package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxPause caps how long a Retry-After header can stall a host
const maxPause = time.Minute

// Limiter paces requests per API host and honours server back-off.
// A nil Limiter never blocks.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	bucket *rate.Limiter
	until  time.Time // no requests before this instant
}

// NewLimiter creates a per-host limiter; a non-positive rate only applies server back-off
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limit: limit,
		burst: burst,
		now:   time.Now,
		hosts: make(map[string]*hostState),
	}
}

// Wait blocks until the host of rawURL may be called again
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil {
		return nil
	}

	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}

	st, pause := l.state(host)
	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return st.bucket.Wait(ctx)
}

// Pause holds back requests to the host of rawURL for d (at most maxPause)
func (l *Limiter) Pause(rawURL string, d time.Duration) {
	if l == nil || d <= 0 {
		return
	}
	host, err := hostOf(rawURL)
	if err != nil {
		return
	}
	if d > maxPause {
		d = maxPause
	}

	st, _ := l.state(host)

	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(d); until.After(st.until) {
		st.until = until
	}
}

// state returns the host's bucket and the remaining server-requested pause
func (l *Limiter) state(host string) (*hostState, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.hosts[host]
	if !ok {
		st = &hostState{bucket: rate.NewLimiter(l.limit, l.burst)}
		l.hosts[host] = st
	}
	return st, st.until.Sub(l.now())
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	return parsed.Host, nil
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date
func retryAfter(header string, now time.Time) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(header); err == nil {
		return at.Sub(now), true
	}
	return 0, false
}
