package api

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/query"
)

var errNoData = errors.New("no data received")

// KeywordDetail is a keyword with its sentiment distribution, if any
type KeywordDetail struct {
	model.Keyword
	Sentiment *model.SentimentSnapshot `json:"sentiment,omitempty"`
}

// KeywordView binds the keyword detail page. The sentiment binding stays
// inert until the keyword itself has loaded.
type KeywordView struct {
	id        int64
	keyword   *query.Binding[model.Keyword]
	sentiment *query.Binding[model.SentimentSnapshot]
	logger    *zap.Logger
}

// WatchKeyword declares the bindings of a keyword detail view
func (c *Client) WatchKeyword(id int64, lang model.Language, opts ...query.Option) *KeywordView {
	dependent := append(append([]query.Option{}, opts...), query.Disabled())
	return &KeywordView{
		id:        id,
		keyword:   Watch(c, c.KeywordRequest(id, lang), decodeObject[model.Keyword], opts...),
		sentiment: Watch(c, c.SentimentRequest(id), decodeObject[model.SentimentSnapshot], dependent...),
		logger:    c.logger,
	}
}

// Load waits for the keyword, then enables and waits for its sentiment.
// A sentiment failure leaves Sentiment nil; a keyword failure is returned.
func (v *KeywordView) Load(ctx context.Context) (KeywordDetail, error) {
	kr, err := v.keyword.Wait(ctx)
	if err != nil {
		return KeywordDetail{}, err
	}
	if !kr.HasData {
		if kr.Err != nil {
			return KeywordDetail{}, kr.Err
		}
		return KeywordDetail{}, fmt.Errorf("keyword %d: %w", v.id, errNoData)
	}

	detail := KeywordDetail{Keyword: kr.Data}

	v.sentiment.SetEnabled(true)
	sr, err := v.sentiment.Wait(ctx)
	if err != nil {
		return detail, err
	}
	if sr.HasData {
		snap := sr.Data
		detail.Sentiment = &snap
	} else if sr.Err != nil {
		v.logger.Warn("keyword sentiment unavailable", zap.Int64("keyword_id", v.id), zap.Error(sr.Err))
	}
	return detail, nil
}

// Close releases both bindings
func (v *KeywordView) Close() {
	v.sentiment.Close()
	v.keyword.Close()
}
