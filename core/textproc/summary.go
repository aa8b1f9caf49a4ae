package textproc

import (
	"regexp"
	"strings"
)

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// Summarize returns an extractive summary of at most maxSentences lead
// sentences, rejoined with ". " and a trailing period. Input with fewer
// sentences comes back whole.
func Summarize(text string, maxSentences int) string {
	if strings.TrimSpace(text) == "" || maxSentences <= 0 {
		return ""
	}

	parts := sentenceEnd.Split(text, -1)
	var sentences []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return ""
	}

	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, ". ") + "."
}
