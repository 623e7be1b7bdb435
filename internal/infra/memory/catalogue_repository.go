package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"iqplay/internal/domain"
)

// CatalogueLoader fetches a question pool from a backing store (file, Postgres).
type CatalogueLoader interface {
	LoadPool(ctx context.Context, category string, tier domain.Tier) ([]domain.Question, error)
}

// CatalogueRepository caches pools with TTL to avoid repeated loads.
type CatalogueRepository struct {
	loader CatalogueLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCatalogueRepository(loader CatalogueLoader, ttl time.Duration) *CatalogueRepository {
	return &CatalogueRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (r *CatalogueRepository) Pool(ctx context.Context, category string, tier domain.Tier) ([]domain.Question, error) {
	tier = domain.ParseTier(string(tier))
	key := category + "|" + string(tier)

	if pool, ok := r.cached(key); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if pool, ok := r.cached(key); ok {
			return pool, nil
		}
		now := r.clock()
		pool, err := r.loader.LoadPool(ctx, category, tier)
		if err != nil {
			return nil, err
		}
		if r.ttl > 0 {
			r.mu.Lock()
			r.cache[key] = cachedPool{questions: pool, expiresAt: now.Add(r.ttlWithJitter())}
			r.mu.Unlock()
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return clonePool(result.([]domain.Question)), nil
}

func (r *CatalogueRepository) cached(key string) ([]domain.Question, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return clonePool(entry.questions), true
}

func (r *CatalogueRepository) ttlWithJitter() time.Duration {
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func clonePool(pool []domain.Question) []domain.Question {
	out := make([]domain.Question, len(pool))
	copy(out, pool)
	return out
}

// StaticCatalogue serves pools from an in-memory catalogue (questions.json, tests).
type StaticCatalogue struct {
	catalogue domain.Catalogue
}

func NewStaticCatalogue(catalogue domain.Catalogue) *StaticCatalogue {
	return &StaticCatalogue{catalogue: catalogue}
}

// LoadCatalogueFile reads a questions.json style file.
func LoadCatalogueFile(path string) (*StaticCatalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	cat, err := domain.ParseCatalogue(raw)
	if err != nil {
		return nil, err
	}
	return NewStaticCatalogue(cat), nil
}

// Catalogue returns the underlying question bank.
func (c *StaticCatalogue) Catalogue() domain.Catalogue {
	return c.catalogue
}

func (c *StaticCatalogue) LoadPool(_ context.Context, category string, tier domain.Tier) ([]domain.Question, error) {
	pool, ok := c.catalogue.Pool(category, tier)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrPoolNotFound, category, tier)
	}
	return clonePool(pool), nil
}

// Pool lets a StaticCatalogue be used directly as an uncached repository.
func (c *StaticCatalogue) Pool(ctx context.Context, category string, tier domain.Tier) ([]domain.Question, error) {
	return c.LoadPool(ctx, category, tier)
}
