// Package aggregator fans research queries out to the configured content
// providers and merges their results into a ranked candidate list.
package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"research-agent/core/models"
	"research-agent/core/textproc"
)

const (
	// MaxResults bounds the merged candidate list.
	MaxResults = 5

	maxKeywords      = 10
	summarySentences = 3
)

// Provider is an external content source queried during data gathering
type Provider interface {
	Name() string
	Search(ctx context.Context, topic string, limit int) ([]models.FetchedArticle, error)
}

// Source pairs a provider with its per-provider result cap
type Source struct {
	Provider Provider
	Limit    int
}

// Aggregator coordinates concurrent provider fetches
type Aggregator struct {
	sources []Source
	logger  *slog.Logger
}

// New creates an aggregator over the given sources
func New(logger *slog.Logger, sources ...Source) *Aggregator {
	return &Aggregator{sources: sources, logger: logger}
}

// Gather queries every provider concurrently and returns up to MaxResults
// enriched candidates sorted by relevance. A provider failure contributes an
// empty result; Gather itself never fails, and all providers failing yields
// an empty list.
func (a *Aggregator) Gather(ctx context.Context, topic string) []models.FetchedArticle {
	results := make([][]models.FetchedArticle, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			articles, err := src.Provider.Search(ctx, topic, src.Limit)
			if err != nil {
				a.logger.Warn("provider fetch failed", "provider", src.Provider.Name(), "error", err)
				return
			}
			results[i] = articles
		}(i, src)
	}
	wg.Wait()

	var merged []models.FetchedArticle
	for _, articles := range results {
		merged = append(merged, articles...)
	}

	for i := range merged {
		enrich(&merged[i])
	}

	// Stable: ties keep provider-fetch order.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})

	if len(merged) > MaxResults {
		merged = merged[:MaxResults]
	}

	a.logger.Info("gathered articles", "topic", topic, "count", len(merged))
	return merged
}

// enrich derives a summary and keywords for candidates that lack them
func enrich(article *models.FetchedArticle) {
	if article.Summary == "" && article.Content != "" {
		article.Summary = textproc.Summarize(article.Content, summarySentences)
	}
	article.Keywords = textproc.Keywords(article.Title+" "+article.Content, maxKeywords)
}
