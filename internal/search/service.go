package search

import (
	"context"

	"beliefpad/api/internal/document"
	"beliefpad/api/internal/logging"
)

// Service is the facade that tries Meilisearch first and falls back to a
// catalogue scan.
type Service struct {
	meili  *Meili
	local  *Local
	logger logging.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, local *Local, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{meili: meili, local: local, logger: logger}
}

// Search tries Meilisearch if healthy, otherwise falls back to the local scan.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: "meilisearch"}
		}
		s.logger.Warn("search", "meilisearch error, falling back to local scan", map[string]any{"error": err.Error()})
	}

	if s.local == nil {
		return Response{Results: []Result{}, Query: q.Text, Engine: "none"}
	}
	results, total, err := s.local.Search(ctx, q)
	if err != nil {
		s.logger.Error("search", "local search failed", map[string]any{"error": err.Error()})
		return Response{Results: []Result{}, Total: 0, Query: q.Text, Engine: "local"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Engine: "local"}
}

// FormSaved indexes a saved form (fire-and-forget to Meilisearch).
func (s *Service) FormSaved(_ context.Context, key string, doc document.Document) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := NewFormRecord(key, doc)
	go func() {
		if err := s.meili.IndexForms([]FormRecord{record}); err != nil {
			s.logger.Warn("search", "index form failed", map[string]any{"key": key, "error": err.Error()})
		}
	}()
}

// FormRemoved removes a form from the search index (fire-and-forget).
func (s *Service) FormRemoved(_ context.Context, key string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteForm(key); err != nil {
			s.logger.Warn("search", "delete form failed", map[string]any{"key": key, "error": err.Error()})
		}
	}()
}

// ReindexAll pushes every saved form to Meilisearch.
func (s *Service) ReindexAll(ctx context.Context, source Source) {
	if s.meili == nil || !s.meili.Healthy() || source == nil {
		return
	}
	docs, err := source.Documents(ctx)
	if err != nil {
		s.logger.Warn("search", "reindex load failed", map[string]any{"error": err.Error()})
		return
	}
	records := make([]FormRecord, 0, len(docs))
	for key, doc := range docs {
		records = append(records, NewFormRecord(key, doc))
	}
	if err := s.meili.IndexForms(records); err != nil {
		s.logger.Warn("search", "reindex forms failed", map[string]any{"error": err.Error()})
		return
	}
	s.logger.Info("search", "reindexed forms", map[string]any{"count": len(records)})
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
