package export

import (
	"context"
	"fmt"
	"sync"

	"lavanderia/internal/core"
)

// MemoryStore collects appended rows in memory. It stands in for the Sheets
// sink in tests and local runs without credentials.
type MemoryStore struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ RowAppender = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, t)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *MemoryStore) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}
