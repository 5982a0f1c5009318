package monitor

import (
	"sync"
	"time"
)

// SeenSet remembers processed signatures for a fixed TTL.
// Safe for concurrent use by both watch loops.
type SeenSet struct {
	mu   sync.Mutex
	ttl  time.Duration
	m    map[string]int64 // signature -> expiry, Unix ms
	q    []seenItem       // insertion order
	head int              // pop index
}

type seenItem struct {
	key      string
	expireMs int64
}

// NewSeenSet creates a set whose entries expire after ttl.
func NewSeenSet(ttl time.Duration) *SeenSet {
	return &SeenSet{
		ttl: ttl,
		m:   make(map[string]int64),
	}
}

// Contains reports whether key was added and has not expired at now.
func (s *SeenSet) Contains(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.m[key]
	return ok && exp >= now.UnixMilli()
}

// Add records key and reports whether it was absent (or expired).
// Exactly one of several concurrent callers for the same key gets true.
func (s *SeenSet) Add(key string, now time.Time) bool {
	nowMs := now.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, ok := s.m[key]; ok && exp >= nowMs {
		return false
	}
	exp := nowMs + s.ttl.Milliseconds()
	s.m[key] = exp
	s.q = append(s.q, seenItem{key: key, expireMs: exp})
	return true
}

// Evict removes expired keys to bound memory.
func (s *SeenSet) Evict(now time.Time) {
	nowMs := now.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.head < len(s.q) {
		it := s.q[s.head]
		if it.expireMs >= nowMs {
			break
		}
		// Only delete if the map still points to this expiry; the key may have been re-added.
		if exp, ok := s.m[it.key]; ok && exp == it.expireMs {
			delete(s.m, it.key)
		}
		s.head++
	}

	if s.head > 4096 && s.head*2 > len(s.q) {
		q := make([]seenItem, 0, len(s.q)-s.head)
		s.q = append(q, s.q[s.head:]...)
		s.head = 0
	}
}

// Len returns the number of keys currently held, expired or not.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
