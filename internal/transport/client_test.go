package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Options{BaseURL: url, Timeout: 5 * time.Second, UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/keywords/5" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.RawQuery != "language=en" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":5,"keyword_en":"Thailand"}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	raw, err := c.Do(context.Background(), Request{
		Path:       "/api/keywords/{id}",
		PathParams: Params{"id": int64(5)},
		Query:      Params{"language": "en"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(raw) != `{"id":5,"keyword_en":"Thailand"}` {
		t.Errorf("Unexpected body: %s", raw)
	}
}

func TestDo_QueryIsDeterministic(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		_, _ = fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	var missing *int
	for i := 0; i < 5; i++ {
		_, err := c.Do(context.Background(), Request{
			Path:  "/api/keywords/",
			Query: Params{"q": "eu", "page": 2, "page_size": 10, "language": nil, "sort": missing},
		})
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
	}

	for _, q := range queries {
		if q != "page=2&page_size=10&q=eu" {
			t.Errorf("unexpected query %q", q)
		}
	}
}

func TestDo_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"detail":"At least 2 keywords required for comparison"}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), Request{Path: "/api/sentiment/keywords/compare"})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected HTTPError, got %T %v", err, err)
	}
	if httpErr.Status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", httpErr.Status)
	}
	if httpErr.Message != "At least 2 keywords required for comparison" {
		t.Errorf("Unexpected message: %q", httpErr.Message)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("400 must not match ErrUnauthorized")
	}
	if got := UserMessage(err); got != "At least 2 keywords required for comparison" {
		t.Errorf("Unexpected user message: %q", got)
	}
}

func TestDo_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "wrong" {
			t.Errorf("unexpected basic auth: %v %s %s", ok, user, pass)
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"detail":"Invalid credentials"}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), Request{
		Path: "/admin/sources",
		Auth: &Credentials{Username: "admin", Password: "wrong"},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("auth failures must not be retryable")
	}
}

func TestDo_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>gateway</html>")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), Request{Path: "/health"})

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %T %v", err, err)
	}
	if !strings.Contains(decodeErr.Snippet, "gateway") {
		t.Errorf("Expected snippet to contain body, got %q", decodeErr.Snippet)
	}
}

func TestDo_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	raw, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/x"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(raw) != "null" {
		t.Errorf("Expected null, got %s", raw)
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(t, url)
	_, err := c.Do(context.Background(), Request{Path: "/health"})

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError, got %T %v", err, err)
	}
	if !IsRetryable(err) {
		t.Error("connection failures should be retryable")
	}
	if got := UserMessage(err); !strings.HasPrefix(got, "Can't reach the server") {
		t.Errorf("Unexpected user message: %q", got)
	}
}

func TestDo_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	c, err := NewClient(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.Do(context.Background(), Request{Path: "/slow"})
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError, got %T %v", err, err)
	}
	if !netErr.Timeout() {
		t.Errorf("Expected timeout, got %v", netErr.Err)
	}
}

func TestDo_JSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"keyword_en":"Test"}` {
			t.Errorf("unexpected body %s", body)
		}
		_, _ = fmt.Fprint(w, `{"success":true}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/suggestions/",
		Body:   map[string]string{"keyword_en": "Test"},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestDo_Multipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("source") != "Reuters" {
			t.Errorf("unexpected source field %q", r.FormValue("source"))
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer func() { _ = f.Close() }()
		content, _ := io.ReadAll(f)
		if header.Filename != "doc.txt" || string(content) != "hello" {
			t.Errorf("unexpected file %s %q", header.Filename, content)
		}
		_, _ = fmt.Fprint(w, `{"success":true}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/documents/upload",
		Upload: &Upload{
			FileName: "doc.txt",
			Content:  strings.NewReader("hello"),
			Fields:   map[string]string{"source": "Reuters", "title": ""},
		},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestDo_RateLimited(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	c, err := NewClient(Options{BaseURL: server.URL, Limiter: NewLimiter(0.001, 1)})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := c.Do(context.Background(), Request{Path: "/a"}); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Do(ctx, Request{Path: "/a"}); err == nil {
		t.Error("expected limiter to block past the deadline")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Error("expected error without base URL")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"503", &HTTPError{Status: 503}, true},
		{"500", &HTTPError{Status: 500}, true},
		{"429", &HTTPError{Status: 429}, true},
		{"404", &HTTPError{Status: 404}, false},
		{"401", &HTTPError{Status: 401}, false},
		{"refused", &NetworkError{Err: errors.New("connection refused")}, true},
		{"cancelled", &NetworkError{Err: context.Canceled}, false},
		{"decode", &DecodeError{Err: errors.New("bad")}, false},
		{"application", &ApplicationError{Message: "duplicate"}, false},
		{"wrapped 502", fmt.Errorf("get keyword: %w", &HTTPError{Status: 502}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"application verbatim", &ApplicationError{Message: "duplicate"}, "duplicate"},
		{"4xx without message", &HTTPError{Status: 404}, "Not Found"},
		{"5xx generic", &HTTPError{Status: 500, Message: "stack trace"}, "The server encountered an error. Please try again later."},
		{"decode generic", &DecodeError{Err: errors.New("x")}, "Received an unexpected response from the server."},
		{"auth", &HTTPError{Status: 403}, "Authentication failed. Please sign in again."},
		{"unknown", errors.New("boom"), "Something went wrong."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
