package window

import (
	"sync"
	"sync/atomic"
	"time"

	"shadow/internal/ratelimit/models"
)

const shardCount = 64

// InMemoryWindowStore holds one fixed window per client key.
// Keys are spread over independently locked shards so unrelated clients do not
// contend on a single mutex; a read-modify-write for one key is serialized by
// its shard lock.
type InMemoryWindowStore struct {
	shards [shardCount]*shard
	size   atomic.Int64
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*models.RateWindow
}

// NewInMemoryWindowStore creates an empty store.
func NewInMemoryWindowStore() *InMemoryWindowStore {
	s := &InMemoryWindowStore{}
	for i := range s.shards {
		s.shards[i] = &shard{windows: make(map[string]*models.RateWindow)}
	}
	return s
}

// Update runs fn against the window for key while holding the key's shard lock.
// A missing window is created lazily with a zero ResetAt; fn must start it.
func (s *InMemoryWindowStore) Update(key string, fn func(w *models.RateWindow)) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.windows[key]
	if !ok {
		w = &models.RateWindow{}
		sh.windows[key] = w
		s.size.Add(1)
	}
	fn(w)
}

// Get returns a copy of the window for key.
func (s *InMemoryWindowStore) Get(key string) (models.RateWindow, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.windows[key]
	if !ok {
		return models.RateWindow{}, false
	}
	return *w, true
}

// Delete removes the window for key.
func (s *InMemoryWindowStore) Delete(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.windows[key]; ok {
		delete(sh.windows, key)
		s.size.Add(-1)
	}
}

// Len returns the number of tracked keys.
func (s *InMemoryWindowStore) Len() int {
	return int(s.size.Load())
}

// Sweep removes windows whose reset time has passed and returns how many were dropped.
// Shards are locked one at a time; live windows are never removed.
func (s *InMemoryWindowStore) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, w := range sh.windows {
			if w.Expired(now) {
				delete(sh.windows, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	s.size.Add(int64(-removed))
	return removed
}

func (s *InMemoryWindowStore) shardFor(key string) *shard {
	return s.shards[fnv32a(key)%shardCount]
}

// fnv32a hashes without allocating.
func fnv32a(key string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= prime32
	}
	return h
}
