package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/newsintel/internal/cache"
	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/transport"
)

func requireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
			return
		}
		h(w, r)
	}
}

func TestAdmin_Unauthorized(t *testing.T) {
	noSleep(t)
	b := newBackend()
	b.handle(http.MethodGet, "/api/admin/sources", requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sources":[]}`))
	}))
	client := newTestClient(t, b, func(cfg *model.Config) { cfg.Cache.Enabled = false })

	_, err := client.Admin("admin", "wrong").Sources(context.Background(), false)
	assert.ErrorIs(t, err, transport.ErrUnauthorized)
	assert.Equal(t, int32(1), b.count(http.MethodGet, "/api/admin/sources"), "auth failures are never retried")

	sources, err := client.Admin("admin", "secret").Sources(context.Background(), false)
	require.NoError(t, err)
	assert.NotNil(t, sources)
	assert.Empty(t, sources)
}

func TestAdmin_CachedReadsAreScopedToCredentials(t *testing.T) {
	noSleep(t)
	b := newBackend()
	b.handle(http.MethodGet, "/api/admin/sources", requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sources":[{"id":1,"name":"Bangkok Post"}]}`))
	}))
	client := newTestClient(t, b)
	ctx := context.Background()

	sources, err := client.Admin("admin", "secret").Sources(ctx, false)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	_, err = client.Admin("admin", "wrong").Sources(ctx, false)
	assert.ErrorIs(t, err, transport.ErrUnauthorized, "other credentials must not be served the cached payload")

	_, err = client.Admin("admin", "secret").Sources(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.count(http.MethodGet, "/api/admin/sources"))

	same := Fingerprint(client.Admin("admin", "secret").SourcesRequest(false))
	other := Fingerprint(client.Admin("admin", "wrong").SourcesRequest(false))
	assert.False(t, same.Equal(other))
	assert.NotContains(t, same.Key(), "secret")
}

func TestAdmin_CustomPrefix(t *testing.T) {
	b := newBackend()
	b.json(http.MethodGet, "/admin/keywords/suggestions/stats",
		`{"total_suggestions":4,"by_status":{"pending":2,"approved":1,"rejected":1,"merged":0},"top_pending":[]}`)
	client := newTestClient(t, b, func(cfg *model.Config) { cfg.API.AdminPrefix = "admin/" })

	stats, err := client.Admin("", "").Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByStatus.Pending)
}

func TestAdmin_PendingSuggestionsToleratesEvaluationFailures(t *testing.T) {
	b := newBackend()
	b.json(http.MethodGet, "/api/admin/keywords/suggestions/pending", `{"pending_suggestions":[
		{"id":1,"keyword_en":"A","votes":5},
		{"id":2,"keyword_en":"B","votes":3},
		{"id":3,"keyword_en":"C","votes":1}],"total":3}`)
	b.json(http.MethodGet, "/api/admin/keywords/suggestions/1/evaluations",
		`{"suggestion_id":1,"evaluations":[{"decision":"approve","reasoning":"newest"},{"decision":"reject"}]}`)
	b.handle(http.MethodGet, "/api/admin/keywords/suggestions/2/evaluations", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	b.json(http.MethodGet, "/api/admin/keywords/suggestions/3/evaluations", `{"suggestion_id":3}`)
	client := newTestClient(t, b)

	pending, err := client.Admin("admin", "secret").PendingSuggestions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	require.NotNil(t, pending[0].LatestEvaluation)
	assert.Equal(t, "newest", pending[0].LatestEvaluation.Reasoning)
	assert.Nil(t, pending[1].LatestEvaluation)
	assert.Nil(t, pending[2].LatestEvaluation)
	assert.Equal(t, []string{"A", "B", "C"}, []string{pending[0].KeywordEN, pending[1].KeywordEN, pending[2].KeywordEN})
}

func TestAdmin_PendingSuggestionsEmpty(t *testing.T) {
	b := newBackend()
	b.json(http.MethodGet, "/api/admin/keywords/suggestions/pending", `{"total":0}`)
	client := newTestClient(t, b)

	pending, err := client.Admin("admin", "secret").PendingSuggestions(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)
}

func TestAdmin_ToggleSourceInvalidatesSources(t *testing.T) {
	b := newBackend()
	b.json(http.MethodGet, "/api/admin/sources", `{"sources":[{"id":5,"name":"Bangkok Post","enabled":true}]}`)
	var enabled, body atomic.Value
	b.handle(http.MethodPost, "/api/admin/sources/5/toggle", requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		enabled.Store(r.URL.Query().Get("enabled"))
		data, _ := io.ReadAll(r.Body)
		body.Store(string(data))
		_, _ = w.Write([]byte(`{"source":{"id":5,"name":"Bangkok Post","enabled":false}}`))
	}))
	client := newTestClient(t, b)
	admin := client.Admin("admin", "secret")
	ctx := context.Background()

	_, err := admin.Sources(ctx, false)
	require.NoError(t, err)

	src, err := admin.ToggleSource(ctx, 5, false)
	require.NoError(t, err)
	assert.False(t, src.Enabled)
	assert.Equal(t, "false", enabled.Load())
	assert.Equal(t, "{}", body.Load())

	_, err = admin.Sources(ctx, false)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return b.count(http.MethodGet, "/api/admin/sources") == 2
	}, time.Second, 5*time.Millisecond)
}

func TestAdmin_ApproveInvalidatesReviewReads(t *testing.T) {
	b := newBackend()
	b.json(http.MethodGet, "/api/admin/keywords/suggestions/stats", `{"total_suggestions":1,"by_status":{"pending":1}}`)
	b.json(http.MethodGet, "/api/keywords/", `{"results":[]}`)
	b.json(http.MethodGet, "/api/suggestions/9", `{"id":9,"keyword_en":"Rice"}`)
	b.json(http.MethodGet, "/api/suggestions/10", `{"id":10,"keyword_en":"Tea"}`)
	var trigger atomic.Value
	b.handle(http.MethodPost, "/api/admin/keywords/suggestions/9/approve", func(w http.ResponseWriter, r *http.Request) {
		trigger.Store(r.URL.Query().Get("trigger_search"))
		_, _ = w.Write([]byte(`{"success":true,"keyword":{"id":40,"keyword_en":"Rice"},"message":"Keyword 'Rice' approved and created"}`))
	})
	client := newTestClient(t, b)
	admin := client.Admin("admin", "secret")
	ctx := context.Background()

	_, err := admin.Stats(ctx)
	require.NoError(t, err)
	_, err = client.SearchKeywords(ctx, KeywordQuery{})
	require.NoError(t, err)
	_, err = client.Suggestion(ctx, 9)
	require.NoError(t, err)
	_, err = client.Suggestion(ctx, 10)
	require.NoError(t, err)

	res, err := admin.ApproveSuggestion(ctx, 9, true)
	require.NoError(t, err)
	require.NotNil(t, res.Keyword)
	assert.Equal(t, int64(40), res.Keyword.ID)
	assert.Equal(t, "true", trigger.Load())

	tests := []struct {
		name  string
		req   transport.Request
		stale bool
	}{
		{"stats", admin.StatsRequest(), true},
		{"keyword search", client.KeywordsRequest(KeywordQuery{}), true},
		{"approved suggestion", client.SuggestionRequest(9), true},
		{"other suggestion", client.SuggestionRequest(10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := client.Cache().Peek(Fingerprint(tt.req))
			require.True(t, ok)
			assert.Equal(t, tt.stale, e.State != cache.StateFresh, "state %s", e.State)
		})
	}
}

func TestAdmin_RejectApplicationError(t *testing.T) {
	b := newBackend()
	b.json(http.MethodPost, "/api/admin/keywords/suggestions/3/reject", `{"success":false,"detail":"Suggestion already reviewed"}`)
	client := newTestClient(t, b)

	_, err := client.Admin("admin", "secret").RejectSuggestion(context.Background(), 3, "duplicate")
	var appErr *transport.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Suggestion already reviewed", appErr.Message)
}

func TestAdmin_IngestionHistory(t *testing.T) {
	b := newBackend()
	var limit atomic.Value
	b.handle(http.MethodGet, "/api/admin/sources/2/ingestion", func(w http.ResponseWriter, r *http.Request) {
		limit.Store(r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"source":{"id":2,"name":"Nation"}}`))
	})
	client := newTestClient(t, b)

	history, err := client.Admin("admin", "secret").IngestionHistory(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "20", limit.Load())
	assert.NotNil(t, history.History)
	require.NotNil(t, history.Source)
	assert.Equal(t, "Nation", history.Source.Name)
}
