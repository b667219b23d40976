package api

import (
	"context"

	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/transport"
)

// SentimentRequest builds the keyword sentiment request
func (c *Client) SentimentRequest(id int64) transport.Request {
	return transport.Request{
		Path:       EndpointKeywordSentiment,
		PathParams: transport.Params{"id": id},
	}
}

// Sentiment returns the aggregated sentiment of a keyword
func (c *Client) Sentiment(ctx context.Context, id int64) (model.SentimentSnapshot, error) {
	return get(ctx, c, c.SentimentRequest(id), decodeObject[model.SentimentSnapshot])
}

// TimelineRequest builds the sentiment timeline request; days <= 0 uses the default
func (c *Client) TimelineRequest(id int64, days int) transport.Request {
	if days <= 0 {
		days = DefaultTimelineDays
	}
	return transport.Request{
		Path:       EndpointKeywordTimeline,
		PathParams: transport.Params{"id": id},
		Query:      transport.Params{"days": days},
	}
}

// Timeline returns a keyword's daily sentiment. A missing server trend is
// filled in from the first and last point.
func (c *Client) Timeline(ctx context.Context, id int64, days int) (model.SentimentTimeline, error) {
	timeline, err := get(ctx, c, c.TimelineRequest(id, days), decodeObject[model.SentimentTimeline])
	if err != nil {
		return timeline, err
	}
	if timeline.Timeline == nil {
		timeline.Timeline = []model.TimelinePoint{}
	}
	trend := timeline.EffectiveTrend()
	timeline.Trend = &trend
	return timeline, nil
}

// CompareRequest builds the server-side comparison request
func (c *Client) CompareRequest(ids []int64) transport.Request {
	return transport.Request{
		Path:  EndpointCompare,
		Query: transport.Params{"keyword_ids": ids},
	}
}

// CompareSentiment asks the server to rank the given keywords
func (c *Client) CompareSentiment(ctx context.Context, ids []int64) (model.SentimentComparison, error) {
	cmp, err := get(ctx, c, c.CompareRequest(ids), decodeObject[model.SentimentComparison])
	if err != nil {
		return cmp, err
	}
	if cmp.Comparison == nil {
		cmp.Comparison = []model.KeywordComparison{}
	}
	return cmp, nil
}

// ArticleSentimentRequest builds the article sentiment request
func (c *Client) ArticleSentimentRequest(articleID int64) transport.Request {
	return transport.Request{
		Path:       EndpointArticleSentiment,
		PathParams: transport.Params{"id": articleID},
	}
}

// ArticleSentiment returns the sentiment detail of one article
func (c *Client) ArticleSentiment(ctx context.Context, articleID int64) (model.ArticleSentimentDetail, error) {
	return get(ctx, c, c.ArticleSentimentRequest(articleID), decodeObject[model.ArticleSentimentDetail])
}
