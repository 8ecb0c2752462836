package cache

import (
	"sync"
	"time"
)

// Store is an in-memory TTL memo keyed by load parameters.
// Expired entries are kept until CleanStale so callers can fall back to them.
// ⭐ SSOT: process-local caching goes through this type
type Store[V any] struct {
	mu         sync.RWMutex
	items      map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

type entry[V any] struct {
	value     *V
	storedAt  time.Time
	insertIdx int64
}

// Stats is a point-in-time view of the store
type Stats struct {
	Entries int `json:"entries"`
	Fresh   int `json:"fresh"`
	Expired int `json:"expired"`
}

// New creates a store. maxEntries <= 0 means unbounded.
func New[V any](ttl time.Duration, maxEntries int) *Store[V] {
	return &Store[V]{
		items:      make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Store[V]) WithClock(now func() time.Time) *Store[V] {
	s.now = now
	return s
}

// TTL returns the freshness window
func (s *Store[V]) TTL() time.Duration {
	return s.ttl
}

// Get returns the cached pointer while it is younger than the TTL.
// Two calls within the TTL return the identical pointer.
func (s *Store[V]) Get(key string) (*V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[key]
	if !ok || s.expired(e) {
		return nil, false
	}
	return e.value, true
}

// GetStale returns the entry regardless of age, with the time it was stored
func (s *Store[V]) GetStale(key string) (*V, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[key]
	if !ok {
		return nil, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

// Set stores value under key, evicting the oldest entry when full
func (s *Store[V]) Set(key string, value *V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry[V]{
		value:     value,
		storedAt:  s.now(),
		insertIdx: s.nextIdx,
	}
	s.nextIdx++

	if _, exists := s.items[key]; !exists && s.maxEntries > 0 && len(s.items) >= s.maxEntries {
		s.evictOldest()
	}

	s.items[key] = e
}

// Delete removes one entry
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
}

// Clear removes everything
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]entry[V])
}

// CleanStale removes entries older than maxAge and returns how many went
func (s *Store[V]) CleanStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.items {
		if now.Sub(e.storedAt) > maxAge {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, fresh or not
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Stats counts fresh and expired entries
func (s *Store[V]) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Entries: len(s.items)}
	for _, e := range s.items {
		if s.expired(e) {
			st.Expired++
		} else {
			st.Fresh++
		}
	}
	return st
}

// expired must be called with mu held
func (s *Store[V]) expired(e entry[V]) bool {
	return s.now().Sub(e.storedAt) >= s.ttl
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (s *Store[V]) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range s.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestIdx != -1 {
		delete(s.items, oldestKey)
	}
}
