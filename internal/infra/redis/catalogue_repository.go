package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"iqplay/internal/domain"
)

// CatalogueLoader fetches a question pool from a backing store (file, Postgres).
type CatalogueLoader interface {
	LoadPool(ctx context.Context, category string, tier domain.Tier) ([]domain.Question, error)
}

// CatalogueRepository caches question pools in Redis as one JSON value per
// category and tier, and falls back to a loader on cache miss:
//
//	SET catalogue:{category}:{tier} [{"question":..,"options":..,"correct":..}]
type CatalogueRepository struct {
	client *redis.Client
	loader CatalogueLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogueRepository(client *redis.Client, loader CatalogueLoader, ttl time.Duration) *CatalogueRepository {
	return &CatalogueRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogueRepository) Pool(ctx context.Context, category string, tier domain.Tier) ([]domain.Question, error) {
	tier = domain.ParseTier(string(tier))
	key := r.key(category, tier)

	if pool, ok := r.cached(ctx, key); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// another caller may have filled the cache meanwhile
		if pool, ok := r.cached(ctx, key); ok {
			return pool, nil
		}

		pool, err := r.loader.LoadPool(ctx, category, tier)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(pool)
		if err != nil {
			return nil, err
		}
		_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	pool := result.([]domain.Question)
	out := make([]domain.Question, len(pool))
	copy(out, pool)
	return out, nil
}

func (r *CatalogueRepository) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, false
	}
	return pool, true
}

func (r *CatalogueRepository) key(category string, tier domain.Tier) string {
	return "catalogue:" + category + ":" + string(tier)
}

func (r *CatalogueRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
