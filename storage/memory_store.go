package storage

import (
	"context"
	"fmt"
	"sync"

	"rental-tracker/models"
)

// MemoryStore keeps rows in process memory. Used for dry runs and tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows [][]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) FindRow(_ context.Context, url string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r[0] == url {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func (m *MemoryStore) ReadAllRows(_ context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *MemoryStore) WriteRow(_ context.Context, index int, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.rows) {
		return fmt.Errorf("memory: write row %d: %w", index, ErrRowOutOfRange)
	}
	m.rows[index] = models.PadRow(row)
	return nil
}

func (m *MemoryStore) AppendRow(_ context.Context, row []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, models.PadRow(row))
	return len(m.rows) - 1, nil
}

func (m *MemoryStore) DeleteRows(_ context.Context, from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if from < 0 || to >= len(m.rows) || from > to {
		return fmt.Errorf("memory: delete rows %d..%d: %w", from, to, ErrRowOutOfRange)
	}
	m.rows = append(m.rows[:from], m.rows[to+1:]...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
