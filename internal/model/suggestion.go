package model

// SuggestionStatus is the review state of a keyword suggestion
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionMerged   SuggestionStatus = "merged"
)

// Suggestion is a visitor-submitted keyword proposal
type Suggestion struct {
	ID        int64            `json:"id"`
	KeywordEN string           `json:"keyword_en"`
	KeywordTH *string          `json:"keyword_th,omitempty"`
	Category  string           `json:"category"`
	Reason    *string          `json:"reason,omitempty"`
	Status    SuggestionStatus `json:"status"`
	Votes     int              `json:"votes"`
	CreatedAt string           `json:"created_at"`

	// Only populated by the admin pending listing
	LatestEvaluation *Evaluation `json:"latest_evaluation,omitempty"`
}

// NewSuggestion is the body of a suggestion submission
type NewSuggestion struct {
	KeywordEN    string  `json:"keyword_en"`
	KeywordTH    *string `json:"keyword_th,omitempty"`
	Category     *string `json:"category,omitempty"`
	Reason       *string `json:"reason,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
}

// SuggestionResult is the response of suggestion submission and voting
type SuggestionResult struct {
	Success    bool       `json:"success"`
	Suggestion Suggestion `json:"suggestion"`
	Message    string     `json:"message,omitempty"`
}

// SuggestionList is the payload of /api/suggestions/
type SuggestionList struct {
	Suggestions []Suggestion `json:"suggestions"`
	Total       int          `json:"total,omitempty"`
}

// Evaluation is an AI assessment of a suggestion
type Evaluation struct {
	SearchabilityScore *float64 `json:"searchability_score,omitempty"`
	SignificanceScore  *float64 `json:"significance_score,omitempty"`
	Specificity        string   `json:"specificity,omitempty"`
	Decision           string   `json:"decision,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
	CreatedAt          string   `json:"created_at,omitempty"`
}

// EvaluationList is the payload of /admin/keywords/suggestions/{id}/evaluations
type EvaluationList struct {
	SuggestionID int64        `json:"suggestion_id,omitempty"`
	Evaluations  []Evaluation `json:"evaluations"`
}

// Latest returns the most recent evaluation, if any
func (l EvaluationList) Latest() *Evaluation {
	if len(l.Evaluations) == 0 {
		return nil
	}
	e := l.Evaluations[0]
	return &e
}

// PendingSuggestions is the payload of /admin/keywords/suggestions/pending
type PendingSuggestions struct {
	Suggestions []Suggestion `json:"pending_suggestions"`
	Total       int          `json:"total"`
}

// StatusCounts counts suggestions per review state
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Merged   int `json:"merged"`
}

// SuggestionStats is the payload of /admin/keywords/suggestions/stats
type SuggestionStats struct {
	Total      int          `json:"total_suggestions"`
	ByStatus   StatusCounts `json:"by_status"`
	TopPending []Suggestion `json:"top_pending"`
}

// ReviewResult is the response of the admin process, approve and reject actions
type ReviewResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Keyword *Keyword       `json:"keyword,omitempty"`
	Result  map[string]any `json:"result,omitempty"` // AI processing outcome
}
