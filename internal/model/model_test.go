package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestKeywordLabel(t *testing.T) {
	k := Keyword{KeywordEN: "Thailand", KeywordTH: ptr("ประเทศไทย"), KeywordDE: ptr("")}

	tests := []struct {
		lang Language
		want string
	}{
		{LanguageEN, "Thailand"},
		{LanguageTH, "ประเทศไทย"},
		{LanguageDE, "Thailand"}, // empty translation
		{LanguageDA, "Thailand"}, // missing translation
	}

	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			assert.Equal(t, tt.want, k.Label(tt.lang))
		})
	}
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LanguageTH, ParseLanguage("th"))
	assert.Equal(t, LanguageDA, ParseLanguage("da"))
	assert.Equal(t, LanguageEN, ParseLanguage(""))
	assert.Equal(t, LanguageEN, ParseLanguage("fr"))
	assert.Equal(t, LanguageEN, ParseLanguage("TH"))
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name       string
		points     []*float64
		want       TrendDirection
		wantChange float64
	}{
		{"empty", nil, TrendInsufficientData, 0},
		{"single point", []*float64{ptr(0.4)}, TrendInsufficientData, 0},
		{"missing endpoint", []*float64{ptr(0.4), ptr(0.1), nil}, TrendUnknown, 0},
		{"improving", []*float64{ptr(0.2), nil, ptr(0.3)}, TrendImproving, 50},
		{"declining from negative", []*float64{ptr(-0.4), ptr(-0.5)}, TrendDeclining, -25},
		{"stable", []*float64{ptr(0.1), ptr(0.9), ptr(0.1)}, TrendStable, 0},
		{"from zero", []*float64{ptr(0.0), ptr(0.5)}, TrendImproving, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tl SentimentTimeline
			for _, p := range tt.points {
				tl.Timeline = append(tl.Timeline, TimelinePoint{AvgSentiment: p})
			}

			got := tl.ComputeTrend()
			assert.Equal(t, tt.want, got.Direction)
			assert.InDelta(t, tt.wantChange, got.ChangePercent, 0.01)
		})
	}
}

func TestEffectiveTrend(t *testing.T) {
	tl := SentimentTimeline{Timeline: []TimelinePoint{{AvgSentiment: ptr(0.1)}, {AvgSentiment: ptr(0.2)}}}
	assert.Equal(t, TrendImproving, tl.EffectiveTrend().Direction)

	tl.Trend = &Trend{Direction: TrendStable, ChangePercent: 1.5}
	assert.Equal(t, Trend{Direction: TrendStable, ChangePercent: 1.5}, tl.EffectiveTrend())

	tl.Trend = &Trend{}
	assert.Equal(t, TrendImproving, tl.EffectiveTrend().Direction, "blank server trend falls back")
}

func TestPage(t *testing.T) {
	var p Page[Article]
	require.NoError(t, json.Unmarshal([]byte(`{"pagination":{"page":1,"page_size":20,"total":0,"total_pages":0}}`), &p))
	assert.Nil(t, p.Results)

	p.Normalize()
	assert.NotNil(t, p.Results)
	assert.Empty(t, p.Results)
	assert.False(t, p.HasNext())

	p.Pagination = Pagination{Page: 1, PageSize: 20, Total: 45, TotalPages: 3}
	assert.True(t, p.HasNext())
	p.Pagination.Page = 3
	assert.False(t, p.HasNext())
}

func TestEvaluationListLatest(t *testing.T) {
	assert.Nil(t, EvaluationList{}.Latest())

	l := EvaluationList{Evaluations: []Evaluation{{Decision: "approve"}, {Decision: "reject"}}}
	latest := l.Latest()
	require.NotNil(t, latest)
	assert.Equal(t, "approve", latest.Decision)

	latest.Decision = "changed"
	assert.Equal(t, "approve", l.Evaluations[0].Decision, "Latest returns a copy")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "/api/admin", cfg.API.AdminPrefix)
	assert.Equal(t, PersistNone, cfg.Cache.Persist)
	assert.True(t, cfg.Cache.Enabled)
	assert.Empty(t, cfg.LLM.Provider, "digest is opt-in")
	assert.NotSame(t, cfg, DefaultConfig())
}
