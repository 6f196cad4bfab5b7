package memory

import (
	"context"
	"sync"

	"github.com/guilamu/gravity-extract/internal/port"
)

// OptionStore is an in-memory port.OptionStore for tests and local runs
// without a database.
type OptionStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewOptionStore creates an empty in-memory option store.
func NewOptionStore() *OptionStore {
	return &OptionStore{data: make(map[string][]byte)}
}

func (s *OptionStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *OptionStore) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = stored
	return nil
}

func (s *OptionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

var _ port.OptionStore = (*OptionStore)(nil)
