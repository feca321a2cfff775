// Package ttlstore is a small in-process keyed store whose entries
// carry an explicit expiry timestamp. It backs the short-lived
// per-account ingestion state (recent-upload window, pending name
// prompts) that must survive between requests but never a restart.
package ttlstore

import (
	"sync"
	"time"
)

// Entry is a stored value with its expiry. An entry is live while
// now <= ExpiresAt; it expires strictly after that instant.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

type Store[K comparable, V any] struct {
	ttl time.Duration

	// Now is the clock; overridden in tests.
	Now func() time.Time

	mu      sync.Mutex
	entries map[K]Entry[V]
}

func New[K comparable, V any](ttl time.Duration) *Store[K, V] {
	return &Store[K, V]{
		ttl:     ttl,
		Now:     time.Now,
		entries: make(map[K]Entry[V]),
	}
}

// Put stores v under k, expiring one TTL from now.
func (s *Store[K, V]) Put(k K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[k] = Entry[V]{Value: v, ExpiresAt: s.Now().Add(s.ttl)}
}

// Get returns the live value under k. Expired entries are removed
// and reported as absent.
func (s *Store[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		var zero V
		return zero, false
	}
	if s.Now().After(e.ExpiresAt) {
		delete(s.entries, k)
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Touch slides the expiry of a live entry one TTL forward. It
// reports whether the entry was live.
func (s *Store[K, V]) Touch(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		return false
	}
	if s.Now().After(e.ExpiresAt) {
		delete(s.entries, k)
		return false
	}
	e.ExpiresAt = s.Now().Add(s.ttl)
	s.entries[k] = e
	return true
}

// Pop removes and returns the live value under k.
func (s *Store[K, V]) Pop(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok {
		var zero V
		return zero, false
	}
	delete(s.entries, k)
	if s.Now().After(e.ExpiresAt) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// PopExpired removes and returns the value under k only if it has
// expired. Callers use it to run cleanup actions tied to the dead
// entry.
func (s *Store[K, V]) PopExpired(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[k]
	if !ok || !s.Now().After(e.ExpiresAt) {
		var zero V
		return zero, false
	}
	delete(s.entries, k)
	return e.Value, true
}

// Delete removes k regardless of expiry.
func (s *Store[K, V]) Delete(k K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, k)
}

// Len counts live entries, sweeping out expired ones.
func (s *Store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	for k, e := range s.entries {
		if now.After(e.ExpiresAt) {
			delete(s.entries, k)
		}
	}
	return len(s.entries)
}
