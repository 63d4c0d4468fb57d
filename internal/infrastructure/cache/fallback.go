package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Wildcard is the Clear pattern that matches every key.
const Wildcard = "*"

type entry struct {
	value    []byte
	storedAt time.Time
}

// fallbackStore is the in-process map used while the remote store is unusable.
// Entries expire ttl after they were stored.
type fallbackStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

func newFallbackStore(ttl time.Duration) *fallbackStore {
	return &fallbackStore{entries: make(map[string]entry), ttl: ttl}
}

func (s *fallbackStore) expired(e entry, now time.Time) bool {
	return now.Sub(e.storedAt) >= s.ttl
}

// get returns a live entry. A stale entry is deleted and reported as stale.
func (s *fallbackStore) get(key string, now time.Time) (value []byte, ok, stale bool) {
	s.mu.RLock()
	e, found := s.entries[key]
	s.mu.RUnlock()
	if !found {
		return nil, false, false
	}
	if !s.expired(e, now) {
		return e.value, true, false
	}

	s.mu.Lock()
	// a concurrent set may have refreshed the key since the read above
	if cur, still := s.entries[key]; still && cur.storedAt.Equal(e.storedAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil, false, true
}

func (s *fallbackStore) set(key string, value []byte, now time.Time) {
	s.mu.Lock()
	s.entries[key] = entry{value: value, storedAt: now}
	s.mu.Unlock()
}

// clear empties the map for the wildcard, otherwise drops keys containing
// the pattern's literal part. It returns the number of removed entries.
func (s *fallbackStore) clear(pattern string) int {
	literal := literalPart(pattern)

	s.mu.Lock()
	defer s.mu.Unlock()
	if literal == "" {
		n := len(s.entries)
		s.entries = make(map[string]entry)
		return n
	}
	n := 0
	for k := range s.entries {
		if strings.Contains(k, literal) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// sweep removes every expired entry.
func (s *fallbackStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// keys returns the stored keys in sorted order.
func (s *fallbackStore) keys() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// literalPart strips wildcards; an empty result means "match everything".
func literalPart(pattern string) string {
	return strings.ReplaceAll(pattern, Wildcard, "")
}
