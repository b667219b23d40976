package mutation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/newsintel/internal/cache"
	"github.com/ppiankov/newsintel/internal/transport"
)

// Doer performs a transport request
type Doer interface {
	Do(ctx context.Context, r transport.Request) (json.RawMessage, error)
}

// Invalidator marks cache entries stale
type Invalidator interface {
	Invalidate(m cache.Matcher) int
}

// Operation is a write request and the reads it makes stale
type Operation struct {
	Name        string
	Method      string // defaults to POST
	Path        string
	PathParams  transport.Params
	Query       transport.Params
	Body        any
	Upload      *transport.Upload
	Auth        *transport.Credentials
	Invalidates []cache.Matcher
}

// Dispatcher sends mutations and invalidates the cache on success.
// Mutations are never deduplicated and never retried.
type Dispatcher struct {
	doer   Doer
	cache  Invalidator
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher; a nil logger is replaced with a no-op
func NewDispatcher(doer Doer, c Invalidator, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{doer: doer, cache: c, logger: logger}
}

// Mutate sends op. On failure nothing is invalidated and the error is
// returned as is; a success:false body becomes an ApplicationError.
func (d *Dispatcher) Mutate(ctx context.Context, op Operation) (json.RawMessage, error) {
	method := op.Method
	if method == "" {
		method = http.MethodPost
	}

	raw, err := d.doer.Do(ctx, transport.Request{
		Method:     method,
		Path:       op.Path,
		PathParams: op.PathParams,
		Query:      op.Query,
		Body:       op.Body,
		Upload:     op.Upload,
		Auth:       op.Auth,
	})
	if err != nil {
		d.logger.Debug("mutation failed", zap.String("op", op.Name), zap.Error(err))
		return nil, err
	}

	if appErr := applicationError(raw); appErr != nil {
		d.logger.Info("mutation rejected",
			zap.String("op", op.Name),
			zap.String("message", appErr.Message))
		return raw, appErr
	}

	invalidated := 0
	if d.cache != nil {
		for _, m := range op.Invalidates {
			invalidated += d.cache.Invalidate(m)
		}
	}

	d.logger.Debug("mutation applied",
		zap.String("op", op.Name),
		zap.Int("invalidated", invalidated))

	return raw, nil
}

// applicationError reports a {"success": false} body
func applicationError(raw json.RawMessage) *transport.ApplicationError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var envelope struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil
	}
	if envelope.Success == nil || *envelope.Success {
		return nil
	}

	msg := envelope.Message
	if msg == "" {
		msg = envelope.Detail
	}
	if msg == "" {
		msg = envelope.Error
	}
	return &transport.ApplicationError{Message: msg, Body: raw}
}
