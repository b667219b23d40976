package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ppiankov/newsintel/internal/cache"
	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/mutation"
	"github.com/ppiankov/newsintel/internal/transport"
)

// ErrEmptyKeyword is returned for a suggestion without an English keyword
var ErrEmptyKeyword = errors.New("keyword_en is required")

// SuggestionsRequest builds the public suggestion listing request
func (c *Client) SuggestionsRequest(status model.SuggestionStatus, limit int) transport.Request {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	return transport.Request{
		Path: EndpointSuggestions,
		Query: transport.Params{
			"status": nonEmpty(string(status)),
			"limit":  limit,
		},
	}
}

// Suggestions lists suggestions, optionally filtered by status
func (c *Client) Suggestions(ctx context.Context, status model.SuggestionStatus, limit int) (model.SuggestionList, error) {
	list, err := get(ctx, c, c.SuggestionsRequest(status, limit), decodeObject[model.SuggestionList])
	if err != nil {
		return list, err
	}
	if list.Suggestions == nil {
		list.Suggestions = []model.Suggestion{}
	}
	return list, nil
}

// SuggestionRequest builds the suggestion detail request
func (c *Client) SuggestionRequest(id int64) transport.Request {
	return transport.Request{
		Path:       EndpointSuggestion,
		PathParams: transport.Params{"id": id},
	}
}

// Suggestion returns one suggestion
func (c *Client) Suggestion(ctx context.Context, id int64) (model.Suggestion, error) {
	return get(ctx, c, c.SuggestionRequest(id), decodeObject[model.Suggestion])
}

// CreateSuggestion submits a keyword proposal. A duplicate proposal is
// counted as a vote by the server and reported through Message.
func (c *Client) CreateSuggestion(ctx context.Context, s model.NewSuggestion) (model.SuggestionResult, error) {
	s.KeywordEN = strings.TrimSpace(s.KeywordEN)
	if s.KeywordEN == "" {
		return model.SuggestionResult{}, ErrEmptyKeyword
	}

	return mutate[model.SuggestionResult](ctx, c, mutation.Operation{
		Name: "create-suggestion",
		Path: EndpointSuggestions,
		Body: s,
		Invalidates: []cache.Matcher{
			cache.MatchEndpoint(EndpointSuggestions),
			cache.MatchEndpoint(c.adminPath(AdminPending), c.adminPath(AdminStats)),
		},
	})
}

// VoteSuggestion adds one vote to a suggestion
func (c *Client) VoteSuggestion(ctx context.Context, id int64) (model.SuggestionResult, error) {
	return mutate[model.SuggestionResult](ctx, c, mutation.Operation{
		Name:       "vote-suggestion",
		Method:     http.MethodPost,
		Path:       EndpointSuggestionVote,
		PathParams: transport.Params{"id": id},
		Invalidates: []cache.Matcher{
			cache.MatchEndpoint(EndpointSuggestions),
			cache.MatchExact(Fingerprint(c.SuggestionRequest(id))),
		},
	})
}
