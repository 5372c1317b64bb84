package tracker

import (
	"context"
	"sync"

	"lessonplayer/internal/model"
)

// MemoryStore keeps interaction maps in process memory
type MemoryStore struct {
	mu   sync.Mutex
	maps map[string]map[string]model.InteractionResponse
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{maps: make(map[string]map[string]model.InteractionResponse)}
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, resp model.InteractionResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.maps[sessionID]
	if !ok {
		m = make(map[string]model.InteractionResponse)
		s.maps[sessionID] = m
	}
	m[resp.InteractionID] = resp
	return nil
}

func (s *MemoryStore) All(_ context.Context, sessionID string) (map[string]model.InteractionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.InteractionResponse, len(s.maps[sessionID]))
	for k, v := range s.maps[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Drop(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.maps, sessionID)
	return nil
}
