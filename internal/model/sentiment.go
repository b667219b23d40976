package model

import "math"

// SentimentDistribution counts articles per sentiment class
type SentimentDistribution struct {
	StronglyPositive int `json:"strongly_positive"`
	Positive         int `json:"positive"`
	Neutral          int `json:"neutral"`
	Negative         int `json:"negative"`
	StronglyNegative int `json:"strongly_negative"`
}

// SourceSentiment is the average sentiment of one news source
type SourceSentiment struct {
	Source       string  `json:"source"`
	AvgSentiment float64 `json:"average_sentiment"`
}

// SourceExtremes holds the most positive and most negative sources
type SourceExtremes struct {
	MostPositive *SourceSentiment `json:"most_positive"`
	MostNegative *SourceSentiment `json:"most_negative"`
}

// SentimentSnapshot is the aggregated sentiment of a keyword
type SentimentSnapshot struct {
	KeywordID     int64                 `json:"keyword_id"`
	KeywordEN     string                `json:"keyword_en"`
	TotalArticles int                   `json:"total_articles"`
	AvgSentiment  *float64              `json:"average_sentiment"`
	Distribution  SentimentDistribution `json:"sentiment_distribution"`
	BySource      *SourceExtremes       `json:"by_source,omitempty"`
}

// TimelinePoint is one day of a keyword's sentiment timeline
type TimelinePoint struct {
	Date          string         `json:"date"`
	AvgSentiment  *float64       `json:"average_sentiment"` // nil when no scored articles that day
	PositiveCount int            `json:"positive_count"`
	NegativeCount int            `json:"negative_count"`
	NeutralCount  int            `json:"neutral_count"`
	TotalArticles int            `json:"total_articles"`
	TopSources    map[string]any `json:"top_sources,omitempty"`
}

// TimelinePeriod is the date range covered by a timeline
type TimelinePeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// TrendDirection classifies a timeline's overall movement
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendDeclining        TrendDirection = "declining"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
	TrendUnknown          TrendDirection = "unknown"
)

// Trend is the direction and relative change between first and last point
type Trend struct {
	Direction     TrendDirection `json:"direction"`
	ChangePercent float64        `json:"change_percent"`
}

// SentimentTimeline is the payload of /api/sentiment/keywords/{id}/sentiment/timeline
type SentimentTimeline struct {
	KeywordID int64           `json:"keyword_id"`
	KeywordEN string          `json:"keyword_en"`
	Period    TimelinePeriod  `json:"period"`
	Timeline  []TimelinePoint `json:"timeline"`
	Trend     *Trend          `json:"trend,omitempty"`
}

// ComputeTrend derives the trend from the first and last point of the timeline
func (t SentimentTimeline) ComputeTrend() Trend {
	if len(t.Timeline) < 2 {
		return Trend{Direction: TrendInsufficientData}
	}

	first := t.Timeline[0].AvgSentiment
	last := t.Timeline[len(t.Timeline)-1].AvgSentiment
	if first == nil || last == nil {
		return Trend{Direction: TrendUnknown}
	}

	trend := Trend{Direction: TrendStable}
	switch {
	case *last > *first:
		trend.Direction = TrendImproving
	case *last < *first:
		trend.Direction = TrendDeclining
	}

	if *first != 0 {
		change := (*last - *first) / math.Abs(*first) * 100
		trend.ChangePercent = math.Round(change*10) / 10
	}

	return trend
}

// EffectiveTrend returns the server trend when present, otherwise the computed one
func (t SentimentTimeline) EffectiveTrend() Trend {
	if t.Trend != nil && t.Trend.Direction != "" {
		return *t.Trend
	}
	return t.ComputeTrend()
}

// KeywordComparison is one keyword's row in the server-side comparison
type KeywordComparison struct {
	KeywordID     int64    `json:"keyword_id"`
	KeywordEN     string   `json:"keyword_en"`
	KeywordTH     *string  `json:"keyword_th,omitempty"`
	AvgSentiment  *float64 `json:"average_sentiment"`
	TotalArticles int      `json:"total_articles"`
	PositiveCount int      `json:"positive_count"`
	NegativeCount int      `json:"negative_count"`
	NeutralCount  int      `json:"neutral_count"`
}

// ComparisonSummary ranks the compared keywords
type ComparisonSummary struct {
	MostPositive  *KeywordComparison `json:"most_positive"`
	MostNegative  *KeywordComparison `json:"most_negative"`
	TotalKeywords int                `json:"total_keywords"`
}

// SentimentComparison is the payload of /api/sentiment/keywords/compare
type SentimentComparison struct {
	Comparison []KeywordComparison `json:"comparison"`
	Summary    ComparisonSummary   `json:"summary"`
}

// ArticleSentimentDetail is the payload of /api/sentiment/articles/{id}/sentiment
type ArticleSentimentDetail struct {
	ArticleID      int64    `json:"article_id"`
	Title          string   `json:"title,omitempty"`
	Overall        *float64 `json:"overall"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Subjectivity   *float64 `json:"subjectivity,omitempty"`
	Classification string   `json:"classification,omitempty"`
}
