package interview

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process memory. Sessions expire after the
// configured idle TTL.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemoryStore{cache: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryStore) Save(s *Session) {
	m.cache.Set(s.ID, s, cache.DefaultExpiration)
}

func (m *MemoryStore) Touch(s *Session) bool {
	return m.cache.Replace(s.ID, s, cache.DefaultExpiration) == nil
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	if x, found := m.cache.Get(id); found {
		return x.(*Session), true
	}
	return nil, false
}

func (m *MemoryStore) Delete(id string) {
	m.cache.Delete(id)
}

// Count returns the number of live sessions, including expired ones not yet
// purged.
func (m *MemoryStore) Count() int {
	return m.cache.ItemCount()
}
