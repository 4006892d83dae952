package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hookline/hookline/internal/common/errors"
	"github.com/hookline/hookline/internal/notification"
)

// MemoryStore keeps the registry in process memory, for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byName map[string]*notification.Notification
}

var _ notification.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byName: make(map[string]*notification.Notification)}
}

func (s *MemoryStore) List(_ context.Context) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*notification.Notification, 0, len(s.byName))
	for _, n := range s.byName {
		copied := *n
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.byName {
		if n.ID == id {
			copied := *n
			return &copied, nil
		}
	}
	return nil, errors.NotFound("notification", id)
}

func (s *MemoryStore) GetByName(_ context.Context, name string) (*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byName[name]
	if !ok {
		return nil, errors.NotFound("notification", name)
	}
	copied := *n
	return &copied, nil
}

func (s *MemoryStore) FindByTrigger(_ context.Context, action notification.TriggerAction) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*notification.Notification{}
	for _, n := range s.byName {
		if n.Trigger == action {
			copied := *n
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.byName[n.Name]; ok {
		n.ID = existing.ID
		n.CreatedAt = existing.CreatedAt
	} else {
		n.ID = uuid.New().String()
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	stored := *n
	s.byName[n.Name] = &stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byName, name)
	return nil
}

func (s *MemoryStore) UpdateError(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byName {
		if n.ID == id {
			n.LastError = message
			n.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errors.NotFound("notification", id)
}
