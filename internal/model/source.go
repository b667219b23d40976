package model

// NewsSource is a scraping source managed by admins
type NewsSource struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	BaseURL   string   `json:"base_url"`
	Enabled   bool     `json:"enabled"`
	Language  string   `json:"language"`
	Country   *string  `json:"country,omitempty"`
	Priority  int      `json:"priority"`
	Parser    *string  `json:"parser,omitempty"`
	Tags      []string `json:"tags"`
	CreatedAt *string  `json:"created_at,omitempty"`
	UpdatedAt *string  `json:"updated_at,omitempty"`
}

// SourceInput is the body used to create or update a source
type SourceInput struct {
	Name     string   `json:"name,omitempty"`
	BaseURL  string   `json:"base_url,omitempty"`
	Language *string  `json:"language,omitempty"`
	Country  *string  `json:"country,omitempty"`
	Priority *int     `json:"priority,omitempty"`
	Parser   *string  `json:"parser,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty"`
}

// SourceList is the payload of /admin/sources
type SourceList struct {
	Sources []NewsSource `json:"sources"`
}

// SourceResult wraps a single source returned by source mutations
type SourceResult struct {
	Source NewsSource `json:"source"`
}

// IngestionEntry is one scraping run of a source
type IngestionEntry struct {
	ID               int64   `json:"id"`
	LastRunAt        *string `json:"last_run_at"`
	ArticlesIngested int     `json:"articles_ingested"`
	Success          bool    `json:"success"`
	Notes            *string `json:"notes,omitempty"`
}

// IngestionHistory is the payload of /admin/sources/{id}/ingestion
type IngestionHistory struct {
	Source  *NewsSource      `json:"source,omitempty"`
	History []IngestionEntry `json:"history"`
}

// Health is the payload of /health
type Health struct {
	Status   string          `json:"status"`
	Version  string          `json:"version,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}
