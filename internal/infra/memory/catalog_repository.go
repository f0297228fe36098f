package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"assessment-service/internal/domain"
)

// CatalogLoader fetches catalogs from a backing store (embedded YAML, file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, id string) (domain.Catalog, error)
}

// CatalogRepository caches catalogs with TTL to avoid repeated loads.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedCatalog
}

type cachedCatalog struct {
	catalog   domain.Catalog
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCatalog),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, id string) (domain.Catalog, error) {
	if c, ok := r.cached(id, r.clock()); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		if c, ok := r.cached(id, now); ok {
			return c, nil
		}

		c, err := r.loader.LoadCatalog(ctx, id)
		if err != nil {
			return domain.Catalog{}, err
		}

		entry := cachedCatalog{catalog: c}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			entry.expiresAt = now.Add(ttl)
		}
		r.mu.Lock()
		r.cache[id] = entry
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate drops a cached catalog so the next read reloads it.
func (r *CatalogRepository) Invalidate(id string) {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
}

func (r *CatalogRepository) cached(id string, now time.Time) (domain.Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[id]
	if !ok {
		return domain.Catalog{}, false
	}
	// a zero expiry means the entry never expires (ttl <= 0)
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
		return domain.Catalog{}, false
	}
	return entry.catalog, true
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
