package model

// Pagination describes the position of a page within a list
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Page is the envelope returned by list endpoints
type Page[T any] struct {
	Results    []T        `json:"results"`
	Pagination Pagination `json:"pagination"`
}

// Normalize treats a missing results key as an empty page
func (p *Page[T]) Normalize() {
	if p.Results == nil {
		p.Results = []T{}
	}
}

// HasNext reports whether another page follows this one
func (p Page[T]) HasNext() bool {
	return p.Pagination.Page < p.Pagination.TotalPages
}
