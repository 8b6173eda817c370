package analyzer

import (
	"sort"
	"sync"

	"BiasSentinel/internal/model"
)

// LatestStore keeps the most recent report per symbol.
type LatestStore struct {
	mu      sync.RWMutex
	reports map[string]*model.AnalysisReport
}

func NewLatestStore() *LatestStore {
	return &LatestStore{reports: make(map[string]*model.AnalysisReport)}
}

// Put stores rep unless a newer report for the same symbol is already held.
func (s *LatestStore) Put(rep *model.AnalysisReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.reports[rep.Symbol]; ok && cur.AnalyzedAt.After(rep.AnalyzedAt) {
		return
	}
	s.reports[rep.Symbol] = rep
}

func (s *LatestStore) Get(symbol string) (*model.AnalysisReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[symbol]
	return rep, ok
}

// All returns every held report ordered by symbol.
func (s *LatestStore) All() []*model.AnalysisReport {
	s.mu.RLock()
	out := make([]*model.AnalysisReport, 0, len(s.reports))
	for _, rep := range s.reports {
		out = append(out, rep)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
