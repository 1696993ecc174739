package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
)

// SearchCache stores concept search results keyed by normalised phrase.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]interview.ConceptMatch, bool)
	Set(ctx context.Context, key string, matches []interview.ConceptMatch)
}

// MemoryCache is a process-local SearchCache.
type MemoryCache struct {
	cache *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{cache: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]interview.ConceptMatch, bool) {
	if x, found := m.cache.Get(key); found {
		return x.([]interview.ConceptMatch), true
	}
	return nil, false
}

func (m *MemoryCache) Set(_ context.Context, key string, matches []interview.ConceptMatch) {
	m.cache.Set(key, matches, cache.DefaultExpiration)
}

// RedisCache shares search results between replicas.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "telehealth:search:", logger: logger}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]interview.ConceptMatch, bool) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Msg("search cache read failed")
		}
		return nil, false
	}
	var matches []interview.ConceptMatch
	if err := json.Unmarshal(data, &matches); err != nil {
		return nil, false
	}
	return matches, true
}

func (r *RedisCache) Set(ctx context.Context, key string, matches []interview.ConceptMatch) {
	data, err := json.Marshal(matches)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("search cache write failed")
	}
}

// CachedSearch wraps a Reasoner and caches its Search results. NextStep and
// ClassifyTriage pass through untouched.
type CachedSearch struct {
	interview.Reasoner
	cache SearchCache
}

func NewCachedSearch(r interview.Reasoner, c SearchCache) *CachedSearch {
	return &CachedSearch{Reasoner: r, cache: c}
}

func (s *CachedSearch) Search(ctx context.Context, phrase string) ([]interview.ConceptMatch, error) {
	key := strings.ToLower(strings.Join(strings.Fields(phrase), " "))
	if key == "" {
		return []interview.ConceptMatch{}, nil
	}
	if matches, ok := s.cache.Get(ctx, key); ok {
		return matches, nil
	}
	matches, err := s.Reasoner.Search(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, matches)
	return matches, nil
}
