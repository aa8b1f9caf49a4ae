package models

import "time"

// Article is a ranked, enriched content item persisted under a research request
type Article struct {
	ID             string     `json:"id"`
	RequestID      string     `json:"request_id"`
	Title          string     `json:"title"`
	URL            string     `json:"url,omitempty"`
	Source         string     `json:"source"` // wikipedia, hackernews, etc.
	Content        string     `json:"content,omitempty"`
	Summary        string     `json:"summary,omitempty"`
	Keywords       []string   `json:"keywords,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ExtractedAt    time.Time  `json:"extracted_at"`
	RelevanceScore int        `json:"relevance_score"` // 0-100
}

// FetchedArticle is a provider candidate before enrichment and persistence
type FetchedArticle struct {
	Title          string
	URL            string
	Source         string
	Content        string
	Summary        string
	Keywords       []string
	PublishedAt    *time.Time
	RelevanceScore int
}
