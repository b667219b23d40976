package api

import (
	"context"

	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/transport"
)

// SemanticQuery is an embedding search. Zero values are left to server defaults.
type SemanticQuery struct {
	Query         string
	Limit         int
	Page          int
	PageSize      int
	MinSimilarity float64
	KeywordID     int64
	Source        string
	Language      string
}

// ArticleSearch filters stored articles
type ArticleSearch struct {
	Query        string
	KeywordID    int64
	Source       string
	Language     string
	StartDate    string // ISO 8601
	EndDate      string
	SentimentMin *float64
	SentimentMax *float64
	SortBy       string // date_desc, date_asc, sentiment_desc, sentiment_asc, relevance
	Page         int
	PageSize     int
}

// SemanticSearchRequest builds the semantic search request
func (c *Client) SemanticSearchRequest(q SemanticQuery) transport.Request {
	return transport.Request{
		Path: EndpointSemanticSearch,
		Query: transport.Params{
			"q":              q.Query,
			"limit":          positive(q.Limit),
			"page":           positive(q.Page),
			"page_size":      positive(q.PageSize),
			"min_similarity": positive(q.MinSimilarity),
			"keyword_id":     positive(q.KeywordID),
			"source":         nonEmpty(q.Source),
			"language":       nonEmpty(q.Language),
		},
	}
}

// SemanticSearch finds articles by meaning
func (c *Client) SemanticSearch(ctx context.Context, q SemanticQuery) (model.SemanticSearchResult, error) {
	return getSemantic(ctx, c, c.SemanticSearchRequest(q))
}

// SimilarArticlesRequest builds the similar articles request
func (c *Client) SimilarArticlesRequest(articleID int64, limit int, minSimilarity float64) transport.Request {
	return transport.Request{
		Path:       EndpointSimilarArticles,
		PathParams: transport.Params{"article_id": articleID},
		Query: transport.Params{
			"limit":          positive(limit),
			"min_similarity": positive(minSimilarity),
		},
	}
}

// SimilarArticles finds articles close to articleID
func (c *Client) SimilarArticles(ctx context.Context, articleID int64, limit int, minSimilarity float64) (model.SemanticSearchResult, error) {
	return getSemantic(ctx, c, c.SimilarArticlesRequest(articleID, limit, minSimilarity))
}

// ArticleSearchRequest builds the article search request
func (c *Client) ArticleSearchRequest(q ArticleSearch) transport.Request {
	return transport.Request{
		Path: EndpointArticleSearch,
		Query: transport.Params{
			"q":             nonEmpty(q.Query),
			"keyword_id":    positive(q.KeywordID),
			"source":        nonEmpty(q.Source),
			"language":      nonEmpty(q.Language),
			"start_date":    nonEmpty(q.StartDate),
			"end_date":      nonEmpty(q.EndDate),
			"sentiment_min": q.SentimentMin,
			"sentiment_max": q.SentimentMax,
			"sort_by":       nonEmpty(q.SortBy),
			"page":          positive(q.Page),
			"page_size":     positive(q.PageSize),
		},
	}
}

// SearchArticles runs a filtered full-text article search
func (c *Client) SearchArticles(ctx context.Context, q ArticleSearch) (model.Page[model.Article], error) {
	return get(ctx, c, c.ArticleSearchRequest(q), decodePage[model.Article])
}

func getSemantic(ctx context.Context, c *Client, r transport.Request) (model.SemanticSearchResult, error) {
	result, err := get(ctx, c, r, decodeObject[model.SemanticSearchResult])
	if err != nil {
		return result, err
	}
	if result.Results == nil {
		result.Results = []model.SemanticResult{}
	}
	return result, nil
}
