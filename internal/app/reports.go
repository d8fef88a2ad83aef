package app

import (
	"sync"

	"github.com/google/uuid"

	"sentiment-analyst/models"
)

// defaultReportCapacity bounds how many reports are kept in memory
const defaultReportCapacity = 100

// reportStore keeps the most recent reports in memory. Nothing is persisted;
// the oldest report is dropped once capacity is reached.
type reportStore struct {
	mu       sync.RWMutex
	capacity int
	order    []uuid.UUID
	byID     map[uuid.UUID]models.SentimentReport
}

func newReportStore(capacity int) *reportStore {
	return &reportStore{
		capacity: capacity,
		order:    make([]uuid.UUID, 0, capacity),
		byID:     make(map[uuid.UUID]models.SentimentReport, capacity),
	}
}

func (s *reportStore) add(report models.SentimentReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == s.capacity {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, report.ID)
	s.byID[report.ID] = report
}

func (s *reportStore) get(id uuid.UUID) (models.SentimentReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.byID[id]
	return report, ok
}

// list returns up to limit reports, newest first. limit <= 0 returns all.
func (s *reportStore) list(limit int) []models.SentimentReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]models.SentimentReport, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out
}
