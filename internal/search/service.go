package search

import "log/slog"

// Service is the facade that tries Meilisearch first and falls back to SQL
// matching.
type Service struct {
	meili    *Meili
	fallback Searcher
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, fallback Searcher) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search tries Meilisearch if healthy, otherwise uses the SQL fallback.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		slog.Warn("search: meilisearch error, falling back to sql", "error", err)
	}

	results, total, err := s.fallback.Search(q)
	if err != nil {
		slog.Error("search: fallback error", "error", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexAssignments indexes claims (fire-and-forget to Meilisearch).
func (s *Service) IndexAssignments(records []AssignmentRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexAssignments(records); err != nil {
			slog.Warn("search: index assignments", "count", len(records), "error", err)
		}
	}()
}

// DeleteAssignment removes a claim from the search index (fire-and-forget).
func (s *Service) DeleteAssignment(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteAssignment(id); err != nil {
			slog.Warn("search: delete assignment", "id", id, "error", err)
		}
	}()
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
