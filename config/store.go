package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the live configuration with atomic read and swap semantics.
// Reads never block; swaps notify subscribers in registration order.
type Store[T any] struct {
	current atomic.Pointer[T]

	mu          sync.RWMutex
	subscribers []func(prev, next *T)
}

// NewStore creates a store seeded with the given value.
func NewStore[T any](initial *T) *Store[T] {
	s := &Store[T]{}
	s.current.Store(initial)
	return s
}

// Get returns the current value.
func (s *Store[T]) Get() *T {
	return s.current.Load()
}

// Swap replaces the current value and notifies subscribers.
// It returns the previous value.
func (s *Store[T]) Swap(next *T) *T {
	prev := s.current.Swap(next)

	s.mu.RLock()
	subs := s.subscribers
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(prev, next)
	}
	return prev
}

// Subscribe registers a callback invoked after every swap.
func (s *Store[T]) Subscribe(fn func(prev, next *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
