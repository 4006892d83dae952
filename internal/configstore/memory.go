package configstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/internal/common/errors"
)

// MemoryStore keeps configs in process memory, for tests and single-process
// setups without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]*Config)}
}

func (s *MemoryStore) Get(_ context.Context, name string) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.configs[name]
	if !ok {
		return nil, errors.NotFound("config", name)
	}
	copied := *config
	return &copied, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Config, 0, len(s.configs))
	for _, config := range s.configs {
		copied := *config
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, config *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.configs[config.Name]; ok {
		config.ID = existing.ID
		config.CreatedAt = existing.CreatedAt
	} else {
		config.ID = uuid.New().String()
		config.CreatedAt = now
	}
	config.UpdatedAt = now

	stored := *config
	s.configs[config.Name] = &stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.configs, name)
	return nil
}
