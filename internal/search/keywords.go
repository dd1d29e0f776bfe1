package search

import (
	"strings"
	"unicode/utf8"
)

// minKeywordRunes is the shortest token kept by ExtractKeywords
const minKeywordRunes = 3

// StopWords is an immutable set of filler words ignored by keyword
// extraction. Build one with NewStopWords or DefaultStopWords.
type StopWords struct {
	words map[string]struct{}
}

// NewStopWords builds a stop-word set; words are matched case-insensitively
func NewStopWords(words ...string) StopWords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return StopWords{words: set}
}

// Contains reports whether word is a stop word
func (s StopWords) Contains(word string) bool {
	_, ok := s.words[strings.ToLower(word)]
	return ok
}

// Len returns the number of stop words in the set
func (s StopWords) Len() int {
	return len(s.words)
}

// defaultStopWords mixes the Indonesian and English filler that buyers type
// around the thing they are actually looking for ("kopi dekat saya",
// "coffee near me").
var defaultStopWords = []string{
	// Indonesian
	"dekat", "terdekat", "sekitar", "saya", "aku", "kami", "kita", "di", "ke",
	"dari", "yang", "dan", "atau", "untuk", "ada", "mau", "ingin", "cari",
	"mencari", "carikan", "tolong", "dong", "nih", "sini", "situ", "mana",
	"dimana", "apa", "ini", "itu", "lokasi", "rekomendasi", "sama", "dengan",
	"buat", "pengen", "lagi",
	// English
	"near", "nearby", "nearest", "closest", "around", "me", "the", "and",
	"for", "find", "where", "with", "some", "any", "please", "want",
	"looking", "show",
}

// DefaultStopWords returns the stop-word table used by the API
func DefaultStopWords() StopWords {
	return NewStopWords(defaultStopWords...)
}

// ExtractKeywords lower-cases text, splits it on whitespace and drops tokens
// of two characters or fewer and stop words. Order and duplicates are
// preserved.
func ExtractKeywords(text string, stop StopWords) []string {
	fields := strings.Fields(strings.ToLower(text))

	keywords := make([]string, 0, len(fields))
	for _, token := range fields {
		if utf8.RuneCountInString(token) < minKeywordRunes {
			continue
		}
		if stop.Contains(token) {
			continue
		}
		keywords = append(keywords, token)
	}

	return keywords
}
