package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ppiankov/newsintel/internal/cache"
	"github.com/ppiankov/newsintel/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type keyword struct {
	ID        int64  `json:"id"`
	KeywordEN string `json:"keyword_en"`
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	c := cache.New()
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func keywordFP(id int) cache.Fingerprint {
	return cache.NewFingerprint("/api/keywords/{id}", map[string]any{"id": id, "language": "en"})
}

// keywordServer answers keyword(id) after the id's gate opens
type keywordServer struct {
	calls atomic.Int32
	gates map[int]chan struct{}
}

func newKeywordServer(ids ...int) *keywordServer {
	s := &keywordServer{gates: make(map[int]chan struct{})}
	for _, id := range ids {
		s.gates[id] = make(chan struct{})
	}
	return s
}

func (s *keywordServer) fetcher(id int) cache.Fetcher {
	return func(ctx context.Context) (json.RawMessage, error) {
		s.calls.Add(1)
		if gate, ok := s.gates[id]; ok {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return json.RawMessage(fmt.Sprintf(`{"id":%d,"keyword_en":"kw-%d"}`, id, id)), nil
	}
}

func (s *keywordServer) release(id int) {
	close(s.gates[id])
}

func waitResult[T any](t *testing.T, b *Binding[T]) Result[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r, err := b.Wait(ctx)
	require.NoError(t, err)
	return r
}

func TestBinding_LoadsData(t *testing.T) {
	c := newCache(t)
	srv := newKeywordServer(5)
	b := New[keyword](c, nil)
	defer b.Close()

	b.Bind(keywordFP(5), srv.fetcher(5))
	r := b.Result()
	assert.True(t, r.IsLoading)
	assert.False(t, r.HasData)

	srv.release(5)
	r = waitResult(t, b)
	assert.False(t, r.IsLoading)
	assert.True(t, r.HasData)
	assert.Equal(t, keyword{ID: 5, KeywordEN: "kw-5"}, r.Data)
	assert.False(t, r.IsError)
}

func TestBinding_NoFlickerWhenCached(t *testing.T) {
	c := newCache(t)
	srv := newKeywordServer()
	_, err := c.Fetch(context.Background(), keywordFP(5), srv.fetcher(5))
	require.NoError(t, err)

	b := New[keyword](c, nil)
	defer b.Close()
	b.Bind(keywordFP(5), srv.fetcher(5))

	r := b.Result()
	assert.False(t, r.IsLoading)
	assert.True(t, r.HasData)
	assert.Equal(t, int64(5), r.Data.ID)
	assert.Equal(t, int32(1), srv.calls.Load())
}

func TestBinding_DisabledUntilEnabled(t *testing.T) {
	c := newCache(t)
	srv := newKeywordServer()
	b := New[keyword](c, nil, Disabled())
	defer b.Close()

	b.Bind(keywordFP(1), srv.fetcher(1))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), srv.calls.Load(), "an inert binding must not fetch")
	assert.False(t, b.Result().IsLoading)

	b.SetEnabled(true)
	r := waitResult(t, b)
	assert.Equal(t, int32(1), srv.calls.Load())
	assert.True(t, r.HasData)
}

func TestBinding_SupersededFingerprintIgnored(t *testing.T) {
	c := newCache(t)
	srv := newKeywordServer(5, 6)
	b := New[keyword](c, nil)
	defer b.Close()

	// A second view keeps the id=5 fetch alive after this binding moves on
	other := New[keyword](c, nil)
	defer other.Close()
	other.Bind(keywordFP(5), srv.fetcher(5))

	b.Bind(keywordFP(5), srv.fetcher(5))
	b.Bind(keywordFP(6), srv.fetcher(6))

	srv.release(6)
	r := waitResult(t, b)
	require.Equal(t, int64(6), r.Data.ID)

	srv.release(5)
	waitResult(t, other)

	r = b.Result()
	assert.Equal(t, int64(6), r.Data.ID, "a late id=5 response must not overwrite id=6")
	assert.True(t, keywordFP(6).Equal(r.Fingerprint))
}

func TestBinding_BindSameFingerprintIsNoop(t *testing.T) {
	c := newCache(t)
	srv := newKeywordServer()
	b := New[keyword](c, nil)
	defer b.Close()

	b.Bind(keywordFP(3), srv.fetcher(3))
	waitResult(t, b)
	b.Bind(keywordFP(3), srv.fetcher(3))
	b.Bind(keywordFP(3), srv.fetcher(3))

	assert.Equal(t, int32(1), srv.calls.Load())
}

func TestBinding_CloseKeepsSharedFetch(t *testing.T) {
	c := newCache(t)
	srv := newKeywordServer(7)

	a := New[keyword](c, nil)
	b := New[keyword](c, nil)
	defer b.Close()

	a.Bind(keywordFP(7), srv.fetcher(7))
	b.Bind(keywordFP(7), srv.fetcher(7))
	a.Close()

	srv.release(7)
	r := waitResult(t, b)
	assert.True(t, r.HasData)
	assert.Equal(t, int32(1), srv.calls.Load())
}

func TestBinding_InvalidationTriggersRefetch(t *testing.T) {
	c := newCache(t)
	srv := newKeywordServer()

	var changes atomic.Int32
	b := New[keyword](c, nil, OnChange(func() { changes.Add(1) }))
	defer b.Close()

	b.Bind(keywordFP(2), srv.fetcher(2))
	waitResult(t, b)
	require.Equal(t, int32(1), srv.calls.Load())

	c.Invalidate(cache.MatchEndpoint("/api/keywords/{id}"))

	require.Eventually(t, func() bool { return srv.calls.Load() == 2 }, time.Second, time.Millisecond)
	r := waitResult(t, b)
	assert.True(t, r.HasData)
	assert.False(t, r.IsStale)
	assert.Greater(t, changes.Load(), int32(1))
}

func TestBinding_Refetch(t *testing.T) {
	c := newCache(t)
	srv := newKeywordServer()
	b := New[keyword](c, nil)
	defer b.Close()

	b.Bind(keywordFP(4), srv.fetcher(4))
	waitResult(t, b)

	b.Refetch()
	waitResult(t, b)
	assert.Equal(t, int32(2), srv.calls.Load())
}

func TestBinding_DecodeError(t *testing.T) {
	c := newCache(t)
	b := New[keyword](c, nil)
	defer b.Close()

	b.Bind(cache.NewFingerprint("/bad"), func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`["not","an","object"]`), nil
	})

	r := waitResult(t, b)
	assert.True(t, r.IsError)
	assert.False(t, r.HasData)

	var decodeErr *transport.DecodeError
	assert.True(t, errors.As(r.Err, &decodeErr))
}

func TestBinding_FetchError(t *testing.T) {
	c := newCache(t)
	b := New[keyword](c, nil)
	defer b.Close()

	httpErr := &transport.HTTPError{Status: 404, Message: "Keyword not found"}
	b.Bind(keywordFP(404), func(ctx context.Context) (json.RawMessage, error) {
		return nil, httpErr
	})

	r := waitResult(t, b)
	assert.True(t, r.IsError)
	assert.ErrorIs(t, r.Err, httpErr)
	assert.Equal(t, "Keyword not found", transport.UserMessage(r.Err))
}

func TestBinding_CustomDecoder(t *testing.T) {
	c := newCache(t)
	var decodes atomic.Int32
	decode := func(raw json.RawMessage) (string, error) {
		decodes.Add(1)
		return string(raw), nil
	}

	b := New[string](c, decode)
	defer b.Close()
	b.Bind(cache.NewFingerprint("/health"), func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{"status":"ok"}`), nil
	})

	r := waitResult(t, b)
	assert.Equal(t, `{"status":"ok"}`, r.Data)

	// Decoding is memoised per entry version
	b.Result()
	b.Result()
	assert.Equal(t, int32(1), decodes.Load())
}
