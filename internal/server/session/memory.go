package session

import (
	"context"
	"sync"

	"github.com/elegance/identity-provider/internal/shared"
)

// MemoryStore keeps sessions in process memory. It backs tests and
// single-instance development runs; sessions vanish on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string]string)}
}

func (s *MemoryStore) Set(_ context.Context, sid, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs, ok := s.sessions[sid]
	if !ok {
		attrs = make(map[string]string)
		s.sessions[sid] = attrs
	}
	attrs[key] = value
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sid, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs, ok := s.sessions[sid]
	if !ok {
		return "", shared.ErrNotFound
	}
	v, ok := attrs[key]
	if !ok {
		return "", shared.ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Unset(_ context.Context, sid, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attrs, ok := s.sessions[sid]; ok {
		delete(attrs, key)
		if len(attrs) == 0 {
			delete(s.sessions, sid)
		}
	}
	return nil
}
