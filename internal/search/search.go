// Package search finds saved forms by their text.
package search

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/document"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}

// FormRecord is the data we index for a saved form.
type FormRecord struct {
	ID             string `json:"id"`
	Key            string `json:"key"`
	Title          string `json:"title"`
	Subject        string `json:"subject"`
	Details        string `json:"details"`
	SessionType    string `json:"sessionType"`
	SourceOfBelief string `json:"sourceOfBelief"`
	Content        string `json:"content"`
}

// NewFormRecord flattens doc for indexing. Catalogue keys contain characters
// Meilisearch rejects in ids, so the id is a hash of the key.
func NewFormRecord(key string, doc document.Document) FormRecord {
	var lines []string
	for _, s := range document.WithContent(doc.ConnectedEmotionsSections) {
		lines = append(lines, fmt.Sprintf("%s: %s", catalog.Emotions().FullName(s.Heading), s.Content))
	}
	for _, s := range document.WithContent(doc.Sections) {
		lines = append(lines, fmt.Sprintf("%s: %s", catalog.Primary().FullName(s.Heading), s.Content))
	}
	return FormRecord{
		ID:             RecordID(key),
		Key:            key,
		Title:          doc.Title,
		Subject:        doc.Subject,
		Details:        doc.Details,
		SessionType:    doc.SessionType,
		SourceOfBelief: doc.SourceOfBelief,
		Content:        strings.Join(lines, "\n"),
	}
}

// RecordID is the index id of key.
func RecordID(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
