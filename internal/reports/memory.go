package reports

import (
	"context"
	"sort"
	"sync"

	"github.com/soltixdb/brutlag/internal/analytics/anomaly"
)

// MemoryStore keeps reports in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*Report)}
}

// Save stores r
func (s *MemoryStore) Save(ctx context.Context, r *Report) error {
	if err := ValidateID(r.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r
	return nil
}

// Get returns the report with the given ID
func (s *MemoryStore) Get(ctx context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// List returns summaries newest first
func (s *MemoryStore) List(ctx context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	summaries := make([]Summary, 0, len(s.reports))
	for _, r := range s.reports {
		summaries = append(summaries, r.Summary)
	}
	s.mu.RUnlock()

	sortSummaries(summaries)
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// SeriesAnomalies returns the anomalies of every report for series, most recent observation first
func (s *MemoryStore) SeriesAnomalies(ctx context.Context, series string, limit int) ([]anomaly.Anomaly, error) {
	s.mu.RLock()
	out := []anomaly.Anomaly{}
	for _, r := range s.reports {
		for _, a := range r.Anomalies {
			if a.Series == series {
				out = append(out, a)
			}
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time > out[j].Time })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// sortSummaries orders newest first, ties broken by ID for stable output
func sortSummaries(summaries []Summary) {
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
}
