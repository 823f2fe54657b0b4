package checkpoint

import (
	"context"
	"sync"

	"github.com/stemsi/edutest/internal/session"
)

// MemoryStore is the checkpoint store used when no Redis is configured. It
// only survives for the lifetime of the process.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[session.AttemptKey]*session.Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[session.AttemptKey]*session.Checkpoint)}
}

func (s *MemoryStore) SaveAttempt(ctx context.Context, key session.AttemptKey, cp session.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make(map[string]any, len(cp.Answers))
	for k, v := range cp.Answers {
		answers[k] = v
	}
	cp.Answers = answers
	s.attempts[key] = &cp
	return nil
}

// SaveAnswer is ignored when no attempt was saved for key.
func (s *MemoryStore) SaveAnswer(ctx context.Context, key session.AttemptKey, questionID string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp, ok := s.attempts[key]; ok {
		cp.Answers[questionID] = value
	}
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, key session.AttemptKey) (*session.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.attempts[key]
	if !ok {
		return nil, nil
	}
	out := *cp
	out.Answers = make(map[string]any, len(cp.Answers))
	for k, v := range cp.Answers {
		out.Answers[k] = v
	}
	return &out, nil
}

func (s *MemoryStore) Clear(ctx context.Context, key session.AttemptKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, key)
	return nil
}
