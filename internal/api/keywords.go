package api

import (
	"context"

	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/transport"
)

// KeywordQuery filters the keyword listing
type KeywordQuery struct {
	Query    string
	Language model.Language
	Page     int
	PageSize int
}

// ArticleSort orders a keyword's articles
type ArticleSort string

const (
	SortByDate      ArticleSort = "date"
	SortBySentiment ArticleSort = "sentiment"
)

// ArticleQuery pages through a keyword's articles
type ArticleQuery struct {
	Page     int
	PageSize int
	SortBy   ArticleSort
}

// KeywordsRequest builds the keyword listing request
func (c *Client) KeywordsRequest(q KeywordQuery) transport.Request {
	lang := q.Language
	if lang == "" {
		lang = c.language
	}
	return transport.Request{
		Path: EndpointKeywords,
		Query: transport.Params{
			"q":         nonEmpty(q.Query),
			"language":  string(lang),
			"page":      positive(q.Page),
			"page_size": positive(q.PageSize),
		},
	}
}

// SearchKeywords lists keywords matching q
func (c *Client) SearchKeywords(ctx context.Context, q KeywordQuery) (model.Page[model.Keyword], error) {
	return get(ctx, c, c.KeywordsRequest(q), decodePage[model.Keyword])
}

// KeywordRequest builds the keyword detail request
func (c *Client) KeywordRequest(id int64, lang model.Language) transport.Request {
	if lang == "" {
		lang = c.language
	}
	return transport.Request{
		Path:       EndpointKeyword,
		PathParams: transport.Params{"id": id},
		Query:      transport.Params{"language": string(lang)},
	}
}

// Keyword returns one keyword
func (c *Client) Keyword(ctx context.Context, id int64, lang model.Language) (model.Keyword, error) {
	return get(ctx, c, c.KeywordRequest(id, lang), decodeObject[model.Keyword])
}

// KeywordArticlesRequest builds the keyword articles request
func (c *Client) KeywordArticlesRequest(id int64, q ArticleQuery) transport.Request {
	return transport.Request{
		Path:       EndpointKeywordArticles,
		PathParams: transport.Params{"id": id},
		Query: transport.Params{
			"page":      positive(q.Page),
			"page_size": positive(q.PageSize),
			"sort_by":   nonEmpty(string(q.SortBy)),
		},
	}
}

// KeywordArticles pages through the articles linked to a keyword
func (c *Client) KeywordArticles(ctx context.Context, id int64, q ArticleQuery) (model.Page[model.Article], error) {
	return get(ctx, c, c.KeywordArticlesRequest(id, q), decodePage[model.Article])
}

// RelationsRequest builds the relation graph request; minStrength <= 0 uses the default
func (c *Client) RelationsRequest(id int64, minStrength float64) transport.Request {
	if minStrength <= 0 {
		minStrength = DefaultMinStrength
	}
	return transport.Request{
		Path:       EndpointKeywordRelations,
		PathParams: transport.Params{"id": id},
		Query:      transport.Params{"min_strength": minStrength},
	}
}

// Relations returns the mind-map of keywords related to id
func (c *Client) Relations(ctx context.Context, id int64, minStrength float64) (model.RelationGraph, error) {
	graph, err := get(ctx, c, c.RelationsRequest(id, minStrength), decodeObject[model.RelationGraph])
	if err != nil {
		return graph, err
	}
	if graph.Nodes == nil {
		graph.Nodes = []model.MindMapNode{}
	}
	if graph.Edges == nil {
		graph.Edges = []model.MindMapEdge{}
	}
	return graph, nil
}
