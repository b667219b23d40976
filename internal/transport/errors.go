package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized is matched by HTTP errors with status 401 or 403
var ErrUnauthorized = errors.New("authentication required")

// NetworkError means no response was received
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request timed out
func (e *NetworkError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}

// HTTPError means a response was received with a non-2xx status
type HTTPError struct {
	Status  int
	Body    []byte
	Message string // server-provided detail, if any
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("unexpected status: %d %s", e.Status, http.StatusText(e.Status))
}

// Unwrap exposes ErrUnauthorized for auth failures
func (e *HTTPError) Unwrap() error {
	if e.IsAuth() {
		return ErrUnauthorized
	}
	return nil
}

// IsAuth reports whether the server rejected the credentials
func (e *HTTPError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsClient reports a 4xx status
func (e *HTTPError) IsClient() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsServer reports a 5xx status
func (e *HTTPError) IsServer() bool {
	return e.Status >= 500
}

// DecodeError means the response body was not the JSON that was expected
type DecodeError struct {
	Snippet string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("decode response: %v", e.Err)
	}
	return fmt.Sprintf("decode response: %v (body: %q)", e.Err, e.Snippet)
}

// NewDecodeError wraps a decoding failure of body
func NewDecodeError(body []byte, err error) *DecodeError {
	return &DecodeError{Snippet: snippet(body), Err: err}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ApplicationError is a success:false body on an otherwise successful response
type ApplicationError struct {
	Message string
	Body    json.RawMessage
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return "request was not successful"
	}
	return e.Message
}

// IsRetryable reports whether retrying the request may succeed
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		// Cancellation by the caller is final
		return !errors.Is(netErr.Err, context.Canceled)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsServer() || httpErr.Status == http.StatusTooManyRequests
	}

	return false
}

// UserMessage renders an error for display
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		netErr    *NetworkError
		httpErr   *HTTPError
		decodeErr *DecodeError
		appErr    *ApplicationError
	)

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Authentication failed. Please sign in again."
	case errors.As(err, &appErr):
		return appErr.Error()
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return "The server took too long to respond. Please try again."
		}
		return "Can't reach the server. Check your connection and try again."
	case errors.As(err, &httpErr):
		if httpErr.IsClient() {
			if httpErr.Message != "" {
				return httpErr.Message
			}
			return http.StatusText(httpErr.Status)
		}
		return "The server encountered an error. Please try again later."
	case errors.As(err, &decodeErr):
		return "Received an unexpected response from the server."
	default:
		return "Something went wrong."
	}
}

// serverMessage extracts detail/message from a JSON error body
func serverMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		// Validation errors arrive as a list of objects
		return strings.TrimSpace(string(payload.Detail))
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func snippet(body []byte) string {
	const maxSnippet = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippet {
		return s[:maxSnippet] + "..."
	}
	return s
}
