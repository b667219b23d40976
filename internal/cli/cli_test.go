package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/newsintel/internal/api"
	"github.com/ppiankov/newsintel/internal/compare"
	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/transport"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	require.NoError(t, registerDefaults(v, model.DefaultConfig()))
	v.SetEnvPrefix("NEWSINTEL")
	v.SetEnvKeyReplacer(envReplacer())
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newViper(t))
	require.NoError(t, err)

	def := model.DefaultConfig()
	assert.Equal(t, def.API, cfg.API)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, model.PersistNone, cfg.Cache.Persist)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("NEWSINTEL_API_BASE_URL", "https://news.example.org")
	t.Setenv("NEWSINTEL_HTTP_TIMEOUT", "45s")
	t.Setenv("NEWSINTEL_ADMIN_PASSWORD", "s3cret")
	t.Setenv("NEWSINTEL_CACHE_PERSIST", "sqlite")

	cfg, err := loadConfig(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "https://news.example.org", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "s3cret", cfg.Admin.Password)
	assert.Equal(t, model.PersistSQLite, cfg.Cache.Persist)

	shown := redacted(cfg)
	assert.Equal(t, "********", shown.Admin.Password)
	assert.Equal(t, "s3cret", cfg.Admin.Password, "redaction must not touch the live config")
}

func TestLoadConfig_RejectsUnknownFormat(t *testing.T) {
	v := newViper(t)
	v.Set("output.format", "xml")

	_, err := loadConfig(v)
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".newsintel")

	path, err := writeDefaultConfig(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "NEWSINTEL_ADMIN_PASSWORD")

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, model.DefaultConfig().API.AdminPrefix, cfg.API.AdminPrefix)
	assert.Equal(t, model.DefaultConfig().Cache.TTL, cfg.Cache.TTL)

	_, err = writeDefaultConfig(dir)
	assert.ErrorContains(t, err, "already exists")
}

func TestRender(t *testing.T) {
	v := struct {
		KeywordEN string   `json:"keyword_en"`
		Score     *float64 `json:"average_sentiment"`
	}{KeywordEN: "Thailand"}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", v, nil))
	assert.JSONEq(t, `{"keyword_en":"Thailand","average_sentiment":null}`, buf.String())

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", v, nil))
	assert.Contains(t, buf.String(), "keyword_en: Thailand")

	buf.Reset()
	require.NoError(t, render(&buf, "text", v, func(w io.Writer) error {
		_, err := io.WriteString(w, "Thailand")
		return err
	}))
	assert.Equal(t, "Thailand", buf.String())
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unauthorized",
			err:  fmt.Errorf("list sources: %w", &transport.HTTPError{Status: http.StatusUnauthorized}),
			want: "Authentication failed. Set admin.username",
		},
		{
			name: "client error uses server message",
			err:  fmt.Errorf("get keyword 9: %w", &transport.HTTPError{Status: http.StatusNotFound, Message: "Keyword not found"}),
			want: "Keyword not found",
		},
		{
			name: "server error is generic",
			err:  &transport.HTTPError{Status: http.StatusBadGateway},
			want: "The server encountered an error",
		},
		{
			name: "application error is verbatim",
			err:  &transport.ApplicationError{Message: "Keyword already suggested"},
			want: "Keyword already suggested",
		},
		{
			name: "local error keeps its text",
			err:  errors.New("invalid id \"x\""),
			want: "invalid id \"x\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatError(tt.err), tt.want)
		})
	}
}

func TestCompareIDs(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(file, []byte("# watched\n7\n8, 9\n"), 0o600))

	ids, err := compareIDs([]string{"1,2", "3"}, file)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 7, 8, 9}, ids)

	_, err = compareIDs([]string{"abc"}, "")
	assert.Error(t, err)
}

func TestComparisonView(t *testing.T) {
	d1 := civil.Date{Year: 2024, Month: 3, Day: 1}
	d2 := civil.Date{Year: 2024, Month: 3, Day: 2}
	series := []compare.Series{
		{EntityID: 1, Label: "Thailand", Index: 0, Points: []compare.Point{{Date: d1, Value: 0.1}, {Date: d2, Value: 0.3}}},
		{EntityID: 2, Label: "EU", Index: 1, Points: []compare.Point{{Date: d2, Value: -0.2}}},
		{EntityID: 3, Label: "#3", Index: 2},
	}
	pos := 0.2
	cmp := &api.Comparison{
		Days:   30,
		Series: series,
		Rows:   compare.Merge(series),
		Legend: compare.Legend(series, compare.DefaultPalette),
		Summary: &model.SentimentComparison{Summary: model.ComparisonSummary{
			MostPositive: &model.KeywordComparison{KeywordID: 1, KeywordEN: "Thailand", AvgSentiment: &pos},
		}},
		Failures: map[int64]error{3: &transport.HTTPError{Status: http.StatusNotFound, Message: "Keyword not found"}},
	}

	view := newComparisonView(cmp)

	var buf bytes.Buffer
	require.NoError(t, view.text(&buf))
	out := buf.String()
	assert.Contains(t, out, "2024-03-01")
	assert.Contains(t, out, "+0.30")
	assert.Contains(t, out, "Most positive: Thailand (+0.20)")
	assert.Contains(t, out, "#3: Keyword not found")

	buf.Reset()
	require.NoError(t, render(&buf, "json", view, view.text))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	rows := decoded["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "2024-03-01", first["date"])
	assert.NotContains(t, first["values"], "EU", "a missing day is absent, not zero")
	assert.Equal(t, "Keyword not found", decoded["failures"].(map[string]any)["3"])
}

// execute runs the CLI against a fake API and returns stdout
func execute(t *testing.T, handler http.Handler, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cache:\n  persist: none\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--base-url", srv.URL}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExecute_Health(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","version":"2.1.0"}`))
	})

	out, err := execute(t, mux, "health", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy (version 2.1.0)")
}

func TestExecute_KeywordJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/keywords/12", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "th", r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(`{"id":12,"keyword_en":"Thailand","keyword_th":"ประเทศไทย","category":"place"}`))
	})

	out, err := execute(t, mux, "keyword", "get", "12", "--lang", "th", "-o", "json")
	require.NoError(t, err)

	var k model.Keyword
	require.NoError(t, json.Unmarshal([]byte(out), &k))
	assert.Equal(t, int64(12), k.ID)
	assert.Equal(t, "ประเทศไทย", k.Label(model.LanguageTH))
}

func TestExecute_KeywordGetShowsSentiment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/keywords/12", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":12,"keyword_en":"Thailand","category":"place"}`))
	})
	mux.HandleFunc("/api/sentiment/keywords/12/sentiment", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"keyword_id":12,"keyword_en":"Thailand","total_articles":6,
			"sentiment_distribution":{"strongly_positive":1,"positive":2,"neutral":1,"negative":1,"strongly_negative":1}}`))
	})

	out, err := execute(t, mux, "keyword", "get", "12", "--lang", "en", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Thailand (#12)")
	assert.Contains(t, out, "Breakdown:  3 positive, 1 neutral, 2 negative")
}

func TestExecute_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/keywords/99", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Keyword not found"}`))
	})

	_, err := execute(t, mux, "keyword", "get", "99", "--lang", "en", "-o", "text")
	require.Error(t, err)
	assert.Equal(t, "Keyword not found", FormatError(err))
}
