package search

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	stop := DefaultStopWords()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"stop words dropped", "kopi dekat saya", []string{"kopi"}},
		{"english filler dropped", "coffee near me", []string{"coffee"}},
		{"case folded", "Bakso MALANG", []string{"bakso", "malang"}},
		{"short tokens dropped", "es teh manis", []string{"teh", "manis"}},
		{"duplicates kept in order", "kopi susu kopi", []string{"kopi", "susu", "kopi"}},
		{"extra whitespace", "  nasi\t goreng \n", []string{"nasi", "goreng"}},
		{"empty", "", []string{}},
		{"only filler", "di sini saya", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.text, stop))
		})
	}
}

func TestStopWordsCaseInsensitive(t *testing.T) {
	stop := NewStopWords(" Dekat ", "", "SAYA")

	assert.Equal(t, 2, stop.Len())
	assert.True(t, stop.Contains("dekat"))
	assert.True(t, stop.Contains("Saya"))
	assert.False(t, stop.Contains("kopi"))
}

func TestProperty_KeywordsAreLowercaseLongAndNotStopWords(t *testing.T) {
	properties := gopter.NewProperties(nil)
	stop := DefaultStopWords()

	words := gen.OneConstOf("kopi", "dekat", "saya", "es", "Bakso", "near", "me", "MARTABAK", "di", "teh", "nasi")

	properties.Property("every keyword is lower case, at least three runes and not a stop word", prop.ForAll(
		func(tokens []string) bool {
			for _, kw := range ExtractKeywords(strings.Join(tokens, " "), stop) {
				if kw != strings.ToLower(kw) {
					return false
				}
				if utf8.RuneCountInString(kw) < minKeywordRunes {
					return false
				}
				if stop.Contains(kw) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(words),
	))

	properties.Property("keywords are a subsequence of the input tokens", prop.ForAll(
		func(tokens []string) bool {
			keywords := ExtractKeywords(strings.Join(tokens, " "), stop)
			i := 0
			for _, tok := range tokens {
				if i < len(keywords) && strings.ToLower(tok) == keywords[i] {
					i++
				}
			}
			return i == len(keywords)
		},
		gen.SliceOf(words),
	))

	properties.TestingRun(t)
}

func TestProperty_ExtractKeywordsIsPure(t *testing.T) {
	properties := gopter.NewProperties(nil)
	stop := DefaultStopWords()

	token := gen.OneGenOf(
		gen.OneConstOf("kopi", "dekat", "Saya", "es", "near", "MARTABAK", "di", "teh"),
		gen.RegexMatch("[a-zA-Z]{1,8}"),
	)
	text := gen.SliceOf(token).Map(func(tokens []string) string {
		return strings.Join(tokens, " ")
	})

	properties.Property("same text yields the same keywords", prop.ForAll(
		func(text string) bool {
			return reflect.DeepEqual(ExtractKeywords(text, stop), ExtractKeywords(text, stop))
		},
		text,
	))

	properties.Property("extracting from extracted keywords changes nothing", prop.ForAll(
		func(text string) bool {
			keywords := ExtractKeywords(text, stop)
			return reflect.DeepEqual(keywords, ExtractKeywords(strings.Join(keywords, " "), stop))
		},
		text,
	))

	properties.TestingRun(t)
}
