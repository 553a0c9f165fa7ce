package syncstore

import (
	"context"
	"fmt"
	"sync"

	"ragcloud/internal/domain"
)

// MemorySyncer keeps artifacts in process memory. It counts pulls and
// pushes per artifact and can be told to fail, for tests and dry runs.
type MemorySyncer struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	pulls    map[string]int
	pushes   map[string]int
	pushErr  error
	pullErrs map[string]error
}

func NewMemorySyncer() *MemorySyncer {
	return &MemorySyncer{
		blobs:    make(map[string][]byte),
		pulls:    make(map[string]int),
		pushes:   make(map[string]int),
		pullErrs: make(map[string]error),
	}
}

func (s *MemorySyncer) Pull(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulls[name]++
	if err := s.pullErrs[name]; err != nil {
		return nil, err
	}
	data, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemorySyncer) Push(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes[name]++
	if s.pushErr != nil {
		return s.pushErr
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[name] = stored
	return nil
}

func (s *MemorySyncer) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, name)
	return nil
}

func (s *MemorySyncer) Close() error {
	return nil
}

// Has reports whether an artifact is stored.
func (s *MemorySyncer) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[name]
	return ok
}

// Pulls returns how many times name was pulled.
func (s *MemorySyncer) Pulls(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pulls[name]
}

// Pushes returns how many times name was pushed.
func (s *MemorySyncer) Pushes(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pushes[name]
}

// FailPushes makes every following Push return err (nil restores).
func (s *MemorySyncer) FailPushes(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushErr = err
}

// FailPull makes Pull of name return err (nil restores).
func (s *MemorySyncer) FailPull(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.pullErrs, name)
		return
	}
	s.pullErrs[name] = err
}

// Set stores an artifact without counting a push.
func (s *MemorySyncer) Set(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = data
}
