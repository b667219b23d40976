package model

// Keyword represents a tracked keyword with its translations
type Keyword struct {
	ID              int64    `json:"id"`
	KeywordEN       string   `json:"keyword_en"`
	KeywordTH       *string  `json:"keyword_th,omitempty"`
	KeywordDE       *string  `json:"keyword_de,omitempty"`
	KeywordDA       *string  `json:"keyword_da,omitempty"`
	Category        string   `json:"category"`
	ArticleCount    *int     `json:"article_count,omitempty"`
	PopularityScore *float64 `json:"popularity_score,omitempty"`
	AvgSentiment    *float64 `json:"average_sentiment,omitempty"` // nil when no scored articles
	CreatedAt       *string  `json:"created_at,omitempty"`
	UpdatedAt       *string  `json:"updated_at,omitempty"`
}

// Label returns the display label for the given language, falling back to English
func (k Keyword) Label(lang Language) string {
	var translated *string
	switch lang {
	case LanguageTH:
		translated = k.KeywordTH
	case LanguageDE:
		translated = k.KeywordDE
	case LanguageDA:
		translated = k.KeywordDA
	}
	if translated != nil && *translated != "" {
		return *translated
	}
	return k.KeywordEN
}

// Language is a UI language supported by the API
type Language string

const (
	LanguageEN Language = "en"
	LanguageTH Language = "th"
	LanguageDE Language = "de"
	LanguageDA Language = "da"
)

// ParseLanguage validates a language code, defaulting to English
func ParseLanguage(s string) Language {
	switch Language(s) {
	case LanguageTH, LanguageDE, LanguageDA:
		return Language(s)
	default:
		return LanguageEN
	}
}

// MindMapNode is a node of a keyword relation graph
type MindMapNode struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"` // central, related
	Category string `json:"category"`
}

// MindMapEdge is a weighted edge of a keyword relation graph
type MindMapEdge struct {
	Source           string  `json:"source"`
	Target           string  `json:"target"`
	Strength         float64 `json:"strength"`
	RelationshipType string  `json:"relationship_type"`
}

// RelationGraph is the mind-map of keywords related to one keyword
type RelationGraph struct {
	KeywordID      int64         `json:"keyword_id"`
	KeywordEN      string        `json:"keyword_en"`
	Nodes          []MindMapNode `json:"nodes"`
	Edges          []MindMapEdge `json:"edges"`
	TotalRelations int           `json:"total_relations"`
}
