package store

import (
	"sync"

	"github.com/engramdev/engram/pkg/memory"
)

// indexSet holds the derived secondary indexes: category to record ids
// and record id to importance score. Both are rebuildable from the
// record set at any time, so index maintenance failures never surface
// as operation errors.
type indexSet struct {
	mu         sync.RWMutex
	byCategory map[string][]string
	importance map[string]float64
}

func newIndexSet() *indexSet {
	return &indexSet{
		byCategory: make(map[string][]string),
		importance: make(map[string]float64),
	}
}

func (s *indexSet) update(record memory.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(record.ID)
	for _, cat := range record.Categories {
		s.byCategory[cat] = append(s.byCategory[cat], record.ID)
	}
	s.importance[record.ID] = record.ImportanceScore
}

func (s *indexSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *indexSet) removeLocked(id string) {
	for cat, ids := range s.byCategory {
		for i, oid := range ids {
			if oid == id {
				s.byCategory[cat] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(s.byCategory[cat]) == 0 {
			delete(s.byCategory, cat)
		}
	}
	delete(s.importance, id)
}

func (s *indexSet) rebuild(records []memory.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byCategory = make(map[string][]string)
	s.importance = make(map[string]float64)
	for _, r := range records {
		for _, cat := range r.Categories {
			s.byCategory[cat] = append(s.byCategory[cat], r.ID)
		}
		s.importance[r.ID] = r.ImportanceScore
	}
}

// categoryIndex returns a copy of the category index.
func (s *indexSet) categoryIndex() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.byCategory))
	for cat, ids := range s.byCategory {
		out[cat] = append([]string(nil), ids...)
	}
	return out
}

func (s *indexSet) importanceOf(id string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.importance[id]
	return score, ok
}
