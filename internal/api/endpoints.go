package api

// Public route templates; {name} placeholders are filled from path params
const (
	EndpointKeywords         = "/api/keywords/"
	EndpointKeyword          = "/api/keywords/{id}"
	EndpointKeywordArticles  = "/api/keywords/{id}/articles"
	EndpointKeywordRelations = "/api/keywords/{id}/relations"

	EndpointArticleSearch   = "/api/search/articles"
	EndpointSemanticSearch  = "/api/search/semantic"
	EndpointSimilarArticles = "/api/search/similar/{article_id}"

	EndpointKeywordSentiment = "/api/sentiment/keywords/{id}/sentiment"
	EndpointKeywordTimeline  = "/api/sentiment/keywords/{id}/sentiment/timeline"
	EndpointCompare          = "/api/sentiment/keywords/compare"
	EndpointArticleSentiment = "/api/sentiment/articles/{id}/sentiment"

	EndpointUpload = "/api/documents/upload"

	EndpointSuggestions    = "/api/suggestions/"
	EndpointSuggestion     = "/api/suggestions/{id}"
	EndpointSuggestionVote = "/api/suggestions/{id}/vote"

	EndpointHealth = "/health"
)

// Admin route templates, relative to the configured admin prefix
const (
	AdminSources         = "/sources"
	AdminSource          = "/sources/{id}"
	AdminSourceToggle    = "/sources/{id}/toggle"
	AdminSourceIngestion = "/sources/{id}/ingestion"

	AdminPending     = "/keywords/suggestions/pending"
	AdminStats       = "/keywords/suggestions/stats"
	AdminEvaluations = "/keywords/suggestions/{id}/evaluations"
	AdminProcess     = "/keywords/suggestions/{id}/process"
	AdminApprove     = "/keywords/suggestions/{id}/approve"
	AdminReject      = "/keywords/suggestions/{id}/reject"
)

// Defaults mirrored from the web client
const (
	DefaultMinStrength     = 0.3
	DefaultTimelineDays    = 30
	DefaultSuggestionLimit = 50
	DefaultIngestionLimit  = 20
	DefaultPendingLimit    = 100
)
