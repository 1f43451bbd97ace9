package lexical

import (
	"regexp"
	"strings"
)

// MinTokenLength is the shortest token kept by the tokenizer.
const MinTokenLength = 3

var wordRegex = regexp.MustCompile(`\w+`)

// defaultStopWords are dropped from both documents and queries.
var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "had", "have", "he", "her", "him", "his", "in", "is", "it",
	"its", "of", "on", "or", "our", "out", "so", "that", "the", "their",
	"them", "then", "these", "they", "this", "to", "was", "were", "which",
	"will", "with", "would", "you", "your",
}

// Tokenizer splits normalized text into search terms: lower-case word runs,
// minimum length filter, stop-word removal.
type Tokenizer struct {
	stop map[string]struct{}
}

// NewTokenizer creates a tokenizer with the default stop-word set plus any
// extra words from configuration.
func NewTokenizer(extraStopWords []string) *Tokenizer {
	stop := make(map[string]struct{}, len(defaultStopWords)+len(extraStopWords))
	for _, w := range defaultStopWords {
		stop[w] = struct{}{}
	}
	for _, w := range extraStopWords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stop: stop}
}

// Tokenize splits text on non-word boundaries, lower-cases, and discards
// tokens shorter than MinTokenLength or in the stop-word set.
func (t *Tokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < MinTokenLength {
			continue
		}
		if _, skip := t.stop[w]; skip {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}
