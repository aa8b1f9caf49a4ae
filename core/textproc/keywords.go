// Package textproc holds the bounded text-analysis routines used to enrich
// fetched articles: a frequency-based keyword extractor and a lead-sentence
// summarizer. Both are deterministic.
package textproc

import (
	"regexp"
	"sort"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "up": {},
	"about": {}, "into": {}, "through": {}, "during": {}, "before": {}, "after": {},
	"above": {}, "below": {}, "between": {}, "among": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"may": {}, "might": {}, "must": {}, "can": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {},
	"me": {}, "him": {}, "her": {}, "us": {}, "them": {},
}

// Keywords extracts up to max keywords from text by frequency. Text is
// lower-cased and non-word characters become spaces; tokens must be longer
// than three characters and outside the stop-word set. Ties keep first-seen
// order.
func Keywords(text string, max int) []string {
	if strings.TrimSpace(text) == "" || max <= 0 {
		return nil
	}

	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")

	freq := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if freq[word] == 0 {
			order = append(order, word)
		}
		freq[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	if len(order) > max {
		order = order[:max]
	}
	return order
}
