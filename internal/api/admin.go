package api

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/newsintel/internal/cache"
	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/mutation"
	"github.com/ppiankov/newsintel/internal/transport"
)

// Admin issues admin calls with basic-auth credentials attached to every request.
// Cached admin reads are scoped to the credentials that fetched them.
type Admin struct {
	c    *Client
	auth *transport.Credentials
}

// Admin returns an authenticated view of the admin API
func (c *Client) Admin(username, password string) *Admin {
	return &Admin{
		c:    c,
		auth: &transport.Credentials{Username: username, Password: password},
	}
}

func (c *Client) adminPath(route string) string {
	return c.adminPrefix + route
}

func (a *Admin) request(method, route string, pathParams, query transport.Params) transport.Request {
	return transport.Request{
		Method:     method,
		Path:       a.c.adminPath(route),
		PathParams: pathParams,
		Query:      query,
		Auth:       a.auth,
	}
}

func (a *Admin) operation(name, method, route string, id int64, query transport.Params, body any, invalidates ...cache.Matcher) mutation.Operation {
	var pathParams transport.Params
	if id > 0 {
		pathParams = transport.Params{"id": id}
	}
	return mutation.Operation{
		Name:        name,
		Method:      method,
		Path:        a.c.adminPath(route),
		PathParams:  pathParams,
		Query:       query,
		Body:        body,
		Auth:        a.auth,
		Invalidates: invalidates,
	}
}

// SourcesRequest builds the source listing request
func (a *Admin) SourcesRequest(onlyEnabled bool) transport.Request {
	var q transport.Params
	if onlyEnabled {
		q = transport.Params{"only_enabled": true}
	}
	return a.request(http.MethodGet, AdminSources, nil, q)
}

// Sources lists the scraping sources
func (a *Admin) Sources(ctx context.Context, onlyEnabled bool) ([]model.NewsSource, error) {
	list, err := get(ctx, a.c, a.SourcesRequest(onlyEnabled), decodeObject[model.SourceList])
	if err != nil {
		return nil, err
	}
	if list.Sources == nil {
		return []model.NewsSource{}, nil
	}
	return list.Sources, nil
}

// CreateSource registers a new scraping source
func (a *Admin) CreateSource(ctx context.Context, in model.SourceInput) (model.NewsSource, error) {
	res, err := mutate[model.SourceResult](ctx, a.c, a.operation("create-source", http.MethodPost, AdminSources, 0, nil, in,
		cache.MatchEndpoint(a.c.adminPath(AdminSources)),
	))
	return res.Source, err
}

// UpdateSource patches a scraping source
func (a *Admin) UpdateSource(ctx context.Context, id int64, in model.SourceInput) (model.NewsSource, error) {
	res, err := mutate[model.SourceResult](ctx, a.c, a.operation("update-source", http.MethodPatch, AdminSource, id, nil, in,
		a.sourceMatcher(id),
	))
	return res.Source, err
}

// ToggleSource enables or disables a scraping source
func (a *Admin) ToggleSource(ctx context.Context, id int64, enabled bool) (model.NewsSource, error) {
	res, err := mutate[model.SourceResult](ctx, a.c, a.operation("toggle-source", http.MethodPost, AdminSourceToggle, id,
		transport.Params{"enabled": enabled}, struct{}{},
		a.sourceMatcher(id),
	))
	return res.Source, err
}

func (a *Admin) sourceMatcher(id int64) cache.Matcher {
	return cache.MatchAny(
		cache.MatchEndpoint(a.c.adminPath(AdminSources)),
		cache.MatchParam(a.c.adminPath(AdminSourceIngestion), "id", strconv.FormatInt(id, 10)),
	)
}

// IngestionRequest builds the ingestion history request
func (a *Admin) IngestionRequest(id int64, limit int) transport.Request {
	if limit <= 0 {
		limit = DefaultIngestionLimit
	}
	return a.request(http.MethodGet, AdminSourceIngestion, transport.Params{"id": id}, transport.Params{"limit": limit})
}

// IngestionHistory returns the recent scraping runs of a source
func (a *Admin) IngestionHistory(ctx context.Context, id int64, limit int) (model.IngestionHistory, error) {
	history, err := get(ctx, a.c, a.IngestionRequest(id, limit), decodeObject[model.IngestionHistory])
	if err != nil {
		return history, err
	}
	if history.History == nil {
		history.History = []model.IngestionEntry{}
	}
	return history, nil
}

// PendingRequest builds the pending suggestions request
func (a *Admin) PendingRequest(limit int) transport.Request {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	return a.request(http.MethodGet, AdminPending, nil, transport.Params{"limit": limit})
}

// PendingSuggestions lists suggestions awaiting review, each enriched with its
// latest evaluation. Evaluations are loaded in parallel; one that fails to load
// leaves LatestEvaluation nil instead of failing the listing.
func (a *Admin) PendingSuggestions(ctx context.Context, limit int) ([]model.Suggestion, error) {
	pending, err := get(ctx, a.c, a.PendingRequest(limit), decodeObject[model.PendingSuggestions])
	if err != nil {
		return nil, err
	}

	suggestions := pending.Suggestions
	if suggestions == nil {
		return []model.Suggestion{}, nil
	}

	var g errgroup.Group
	g.SetLimit(a.c.workers)
	for i := range suggestions {
		g.Go(func() error {
			list, err := a.Evaluations(ctx, suggestions[i].ID)
			if err != nil {
				a.c.logger.Debug("evaluation unavailable",
					zap.Int64("suggestion", suggestions[i].ID),
					zap.Error(err))
				return nil
			}
			suggestions[i].LatestEvaluation = list.Latest()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// EvaluationsRequest builds the evaluation history request
func (a *Admin) EvaluationsRequest(id int64) transport.Request {
	return a.request(http.MethodGet, AdminEvaluations, transport.Params{"id": id}, nil)
}

// Evaluations returns the AI evaluations of a suggestion, newest first
func (a *Admin) Evaluations(ctx context.Context, id int64) (model.EvaluationList, error) {
	list, err := get(ctx, a.c, a.EvaluationsRequest(id), decodeObject[model.EvaluationList])
	if err != nil {
		return list, err
	}
	if list.Evaluations == nil {
		list.Evaluations = []model.Evaluation{}
	}
	return list, nil
}

// StatsRequest builds the suggestion statistics request
func (a *Admin) StatsRequest() transport.Request {
	return a.request(http.MethodGet, AdminStats, nil, nil)
}

// Stats returns suggestion counts per status
func (a *Admin) Stats(ctx context.Context) (model.SuggestionStats, error) {
	return get(ctx, a.c, a.StatsRequest(), decodeObject[model.SuggestionStats])
}

// ProcessSuggestion runs the AI evaluation of a suggestion
func (a *Admin) ProcessSuggestion(ctx context.Context, id int64) (model.ReviewResult, error) {
	return mutate[model.ReviewResult](ctx, a.c, a.operation("process-suggestion", http.MethodPost, AdminProcess, id, nil, struct{}{},
		a.reviewMatcher(id, false),
	))
}

// ApproveSuggestion turns a suggestion into a tracked keyword
func (a *Admin) ApproveSuggestion(ctx context.Context, id int64, triggerSearch bool) (model.ReviewResult, error) {
	return mutate[model.ReviewResult](ctx, a.c, a.operation("approve-suggestion", http.MethodPost, AdminApprove, id,
		transport.Params{"trigger_search": triggerSearch}, struct{}{},
		a.reviewMatcher(id, true),
	))
}

// RejectSuggestion rejects a suggestion with an optional reason
func (a *Admin) RejectSuggestion(ctx context.Context, id int64, reason string) (model.ReviewResult, error) {
	return mutate[model.ReviewResult](ctx, a.c, a.operation("reject-suggestion", http.MethodPost, AdminReject, id,
		transport.Params{"reason": nonEmpty(reason)}, struct{}{},
		a.reviewMatcher(id, false),
	))
}

// reviewMatcher covers the review queue, the suggestion itself and,
// once approved, the keyword listing
func (a *Admin) reviewMatcher(id int64, approved bool) cache.Matcher {
	matchers := []cache.Matcher{
		cache.MatchEndpoint(a.c.adminPath(AdminPending), a.c.adminPath(AdminStats), EndpointSuggestions),
		cache.MatchExact(Fingerprint(a.c.SuggestionRequest(id))),
		cache.MatchParam(a.c.adminPath(AdminEvaluations), "id", strconv.FormatInt(id, 10)),
	}
	if approved {
		matchers = append(matchers, cache.MatchEndpoint(EndpointKeywords))
	}
	return cache.MatchAny(matchers...)
}
