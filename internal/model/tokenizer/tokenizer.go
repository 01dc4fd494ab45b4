// Package tokenizer provides the text analysis used by the sentiment
// vectorizer. It lower-cases input, splits it into runs of word characters,
// drops single-character tokens and English stop-words, and expands the
// remaining tokens into word n-grams.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and returns every run of two or more word
// characters (letters, numerics, underscore) that is not a stop-word.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if !atLeastTwoRunes(word) {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// NGrams expands tokens into all contiguous n-grams with minN <= n <= maxN,
// joined by a single space. Unigrams come first, then bigrams, and so on.
func NGrams(tokens []string, minN, maxN int) []string {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	if maxN == 1 {
		out := make([]string, len(tokens))
		copy(out, tokens)
		return out
	}
	out := make([]string, 0, len(tokens)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				out = append(out, tokens[i])
				continue
			}
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// Analyze tokenizes text and expands it into unigrams and bigrams.
func Analyze(text string) []string {
	return NGrams(Tokenize(text), 1, 2)
}

// isWordRune reports Unicode word characters: letters, any numeric rune
// (superscripts and roman numerals included) and underscore. Combining marks
// split words.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}

func atLeastTwoRunes(s string) bool {
	n := 0
	for range s {
		n++
		if n >= 2 {
			return true
		}
	}
	return false
}
