package models

import "fmt"

// SearchMode selects between free-text note search and browsing a topic.
type SearchMode string

const (
	SearchModeNotes  SearchMode = "notes"
	SearchModeTopics SearchMode = "topics"
)

// Default search configuration values
const (
	DefaultSearchLimit  = 50
	DefaultSearchOffset = 0
	MaxSearchLimit      = 100
)

// ParseSearchMode accepts "notes" or "topics"; empty means notes.
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(s) {
	case "", SearchModeNotes:
		return SearchModeNotes, nil
	case SearchModeTopics:
		return SearchModeTopics, nil
	default:
		return "", fmt.Errorf("unknown search mode: %q (supported: notes, topics)", s)
	}
}

// SearchRequest scopes a note search.
type SearchRequest struct {
	Query   string
	TopicID *string
	Offset  int
	Limit   int
	Mode    SearchMode
	UserID  string
}

// ApplyDefaults fills in default values for unset fields
func (r *SearchRequest) ApplyDefaults() {
	if r.Limit <= 0 {
		r.Limit = DefaultSearchLimit
	}
	if r.Limit > MaxSearchLimit {
		r.Limit = MaxSearchLimit
	}
	if r.Offset < 0 {
		r.Offset = DefaultSearchOffset
	}
	if r.Mode == "" {
		r.Mode = SearchModeNotes
	}
}

// SearchResponse is one page of matching notes. Total counts every match,
// not only the returned page.
type SearchResponse struct {
	Items  []Note `json:"items"`
	Total  int    `json:"total"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// HasMore reports whether there are matches beyond this page.
func (r *SearchResponse) HasMore() bool {
	return r.Offset+len(r.Items) < r.Total
}

// LastSearch describes the most recently completed search.
type LastSearch struct {
	Mode    SearchMode
	Query   string
	TopicID *string
}
