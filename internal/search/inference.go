package search

import (
	"strings"

	"levelup-marketplace/internal/domain"
)

// InferCategory maps keywords to a category by substring containment in
// either direction, case-insensitively. Keywords are tried in order and,
// for each keyword, categories in the order given; the first pair that
// matches wins. Categories with a blank name never match.
func InferCategory(keywords []string, categories []*domain.Category) *domain.Category {
	if len(keywords) == 0 || len(categories) == 0 {
		return nil
	}

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = strings.ToLower(strings.TrimSpace(c.Name))
	}

	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		for i, name := range names {
			if name == "" {
				continue
			}
			if strings.Contains(name, kw) || strings.Contains(kw, name) {
				return categories[i]
			}
		}
	}

	return nil
}
