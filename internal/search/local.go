package search

import (
	"context"
	"sort"
	"strings"

	"beliefpad/api/internal/document"
)

// Source yields every saved form. store.Catalogue satisfies it.
type Source interface {
	Documents(ctx context.Context) (map[string]document.Document, error)
}

// Local scans the catalogue directly when no index is available.
type Local struct {
	source Source
}

func NewLocal(source Source) *Local {
	return &Local{source: source}
}

// Search matches every term of q, case-insensitively, against the form text.
func (l *Local) Search(ctx context.Context, q Query) ([]Result, int, error) {
	terms := strings.Fields(strings.ToLower(q.Text))
	if len(terms) == 0 {
		return nil, 0, nil
	}
	docs, err := l.source.Documents(ctx)
	if err != nil {
		return nil, 0, err
	}

	keys := make([]string, 0, len(docs))
	for key := range docs {
		keys = append(keys, key)
	}
	// Keys end in their save time, so reverse order is newest first per title.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	var matches []Result
	for _, key := range keys {
		record := NewFormRecord(key, docs[key])
		fields := []string{record.Title, record.Subject, record.Details, record.SessionType, record.SourceOfBelief, record.Content}
		haystack := strings.ToLower(strings.Join(fields, "\n"))
		if !containsAll(haystack, terms) {
			continue
		}
		matches = append(matches, Result{
			Key:     key,
			Title:   record.Title,
			Subject: record.Subject,
			Snippet: snippet(fields, terms[0]),
		})
	}

	total := len(matches)
	start := q.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func containsAll(haystack string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// snippet returns the first line containing term.
func snippet(fields []string, term string) string {
	for _, field := range fields {
		for _, line := range strings.Split(field, "\n") {
			if strings.Contains(strings.ToLower(line), term) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}
