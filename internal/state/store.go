package state

import (
	"sync"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
)

// Store is a single-slot cache for the most recent Reading.
type Store struct {
	mu      sync.RWMutex
	current domain.Reading
	set     bool
}

func NewStore() *Store {
	return &Store{}
}

// Get returns the latest reading. ok is false until the first Set.
func (s *Store) Get() (domain.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.set
}

// Set replaces the latest reading unconditionally.
func (s *Store) Set(r domain.Reading) {
	s.mu.Lock()
	s.current = r
	s.set = true
	s.mu.Unlock()
}
