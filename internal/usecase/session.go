package usecase

import (
	"sync"

	"ragcloud/internal/domain"
)

// Session keeps the question/answer history of one interactive session.
type Session struct {
	mu      sync.Mutex
	history []domain.Exchange
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Record(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, domain.Exchange{Question: question, Answer: answer})
}

// History returns a copy of the exchanges, oldest first.
func (s *Session) History() []domain.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Exchange, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
