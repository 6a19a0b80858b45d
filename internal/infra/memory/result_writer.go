package memory

import (
	"context"
	"sync"

	"quiz-duel-service/internal/domain"
)

// ResultWriter collects finished matches in memory. Demo mode and tests use it
// in place of the Postgres writer.
type ResultWriter struct {
	mu      sync.Mutex
	results []domain.MatchResult
}

func NewResultWriter() *ResultWriter {
	return &ResultWriter{}
}

func (w *ResultWriter) CreateMatchResult(_ context.Context, result domain.MatchResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = append(w.results, result)
	return nil
}

// Results returns a copy of everything recorded so far.
func (w *ResultWriter) Results() []domain.MatchResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.MatchResult, len(w.results))
	copy(out, w.results)
	return out
}
