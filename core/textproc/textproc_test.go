package textproc

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{
			name: "frequency ranking",
			text: "quantum computing uses quantum effects for quantum speedups",
			max:  10,
			want: []string{"quantum", "computing", "uses", "effects", "speedups"},
		},
		{
			name: "stop words and short tokens excluded",
			text: "the cat ran to the big barn and the dog",
			max:  10,
			want: []string{"barn"},
		},
		{
			name: "ties keep first-seen order",
			text: "alpha beta alpha beta gamma",
			max:  10,
			want: []string{"alpha", "beta", "gamma"},
		},
		{
			name: "punctuation becomes spaces",
			text: "Graphs, graphs! GRAPHS; and trees.",
			max:  10,
			want: []string{"graphs", "trees"},
		},
		{
			name: "capped at max",
			text: "apples bananas cherries oranges",
			max:  2,
			want: []string{"apples", "bananas"},
		},
		{
			name: "empty input",
			text: "   ",
			max:  10,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keywords(tt.text, tt.max))
		})
	}
}

func TestKeywordsDeterministic(t *testing.T) {
	text := "neural networks learn representations; networks generalize when representations transfer"
	first := Keywords(text, 10)
	require.NotEmpty(t, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Keywords(text, 10))
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{
			name: "fewer sentences than max returns all",
			text: "One fish. Two fish! Red fish?",
			max:  3,
			want: "One fish. Two fish. Red fish.",
		},
		{
			name: "truncates to max sentences",
			text: "First. Second. Third. Fourth. Fifth.",
			max:  3,
			want: "First. Second. Third.",
		},
		{
			name: "single sentence",
			text: "Just one thought",
			max:  3,
			want: "Just one thought.",
		},
		{
			name: "punctuation runs collapse",
			text: "Really?! Yes... Certainly.",
			max:  3,
			want: "Really. Yes. Certainly.",
		},
		{
			name: "empty input",
			text: "",
			max:  3,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.text, tt.max))
		})
	}
}

func TestSummarizeNeverExceedsMax(t *testing.T) {
	text := "A. B. C. D. E. F. G."
	got := Summarize(text, 3)
	assert.Equal(t, "A. B. C.", got)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{name: "shorter than max unchanged", text: "abc", max: 10, want: "abc"},
		{name: "ascii cut", text: "abcdef", max: 4, want: "abcd"},
		{name: "multibyte counted as characters", text: "ééééé", max: 3, want: "ééé"},
		{name: "cjk cut on rune boundary", text: "研究研究研究", max: 3, want: "研究研"},
		{name: "zero max", text: "anything", max: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.text, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
