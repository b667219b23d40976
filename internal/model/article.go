package model

// ArticleSentiment is the sentiment block embedded in an article
type ArticleSentiment struct {
	Overall        float64  `json:"overall"`
	Confidence     float64  `json:"confidence"`
	Classification string   `json:"classification"`
	Subjectivity   *float64 `json:"subjectivity,omitempty"`
}

// Article represents a news article linked to one or more keywords
type Article struct {
	ID             int64            `json:"id"`
	Title          string           `json:"title"`
	Summary        string           `json:"summary"`
	Source         string           `json:"source"`
	SourceURL      string           `json:"source_url"`
	PublishedDate  string           `json:"published_date"`
	Sentiment      ArticleSentiment `json:"sentiment"`
	Classification string           `json:"classification"`
	Keywords       []string         `json:"keywords,omitempty"`
}

// SemanticSentiment is the reduced sentiment block of a search hit
type SemanticSentiment struct {
	Overall        *float64 `json:"overall"`
	Classification *string  `json:"classification"`
}

// SemanticResult is an article match returned by embedding search
type SemanticResult struct {
	ID            int64              `json:"id"`
	Title         string             `json:"title"`
	Summary       *string            `json:"summary,omitempty"`
	Source        string             `json:"source"`
	SourceURL     string             `json:"source_url"`
	PublishedDate *string            `json:"published_date,omitempty"`
	Similarity    *float64           `json:"similarity_score"`
	Sentiment     *SemanticSentiment `json:"sentiment,omitempty"`
	Language      *string            `json:"language,omitempty"`
	Keywords      []string           `json:"keywords,omitempty"`
}

// SemanticSearchResult is the payload of /api/search/semantic and /api/search/similar
type SemanticSearchResult struct {
	Query           string           `json:"query,omitempty"`
	SourceArticleID *int64           `json:"source_article_id,omitempty"`
	SourceTitle     *string          `json:"source_title,omitempty"`
	Results         []SemanticResult `json:"results"`
	Pagination      *Pagination      `json:"pagination,omitempty"`
	Total           int              `json:"total,omitempty"`
}

// UploadedArticle is the article created from an uploaded document
type UploadedArticle struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	WordCount int    `json:"word_count"`
}

// ExtractedKeyword is a keyword derived from an uploaded document
type ExtractedKeyword struct {
	ID       int64  `json:"id"`
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

// DocumentUpload is the response of /api/documents/upload
type DocumentUpload struct {
	Success        bool               `json:"success"`
	Article        UploadedArticle    `json:"article"`
	Sentiment      ArticleSentiment   `json:"sentiment"`
	Keywords       []ExtractedKeyword `json:"keywords"`
	Classification string             `json:"classification"`
	Message        string             `json:"message"`
}
