package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"stop words and case", "This movie was FANTASTIC, and brilliant!", []string{"movie", "fantastic", "brilliant"}},
		{"single characters dropped", "a b c plot", []string{"plot"}},
		{"apostrophes split words", "don't watch it's bad", []string{"don", "watch", "bad"}},
		{"underscore is a word char", "snake_case 42nd", []string{"snake_case", "42nd"}},
		{"unicode letters", "Très bon café", []string{"très", "bon", "café"}},
		{"combining marks split words", "cafe\u0301 noir", []string{"cafe", "noir"}},
		{"numeric symbols are word chars", "room m² ⅻⅰ", []string{"room", "m²", "ⅻⅰ"}},
		{"empty", "", []string{}},
		{"only punctuation", "!!! ... ???", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestNGrams(t *testing.T) {
	tokens := []string{"terrible", "waste", "time"}

	assert.Equal(t, tokens, NGrams(tokens, 1, 1))
	assert.Equal(t,
		[]string{"terrible", "waste", "time", "terrible waste", "waste time"},
		NGrams(tokens, 1, 2),
	)
	assert.Equal(t, []string{"terrible waste", "waste time"}, NGrams(tokens, 2, 2))
	assert.Empty(t, NGrams(nil, 1, 2))
}

func TestAnalyzeBuildsBigramsAfterStopWordRemoval(t *testing.T) {
	got := Analyze("terrible waste of time, awful")
	assert.Equal(t, []string{
		"terrible", "waste", "time", "awful",
		"terrible waste", "waste time", "time awful",
	}, got)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("well"))
	assert.False(t, IsStopWord("movie"))
	assert.False(t, IsStopWord("fantastic"))
}
