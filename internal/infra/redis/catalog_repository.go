package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"assessment-service/internal/domain"
)

// CatalogLoader fetches catalogs from a backing store (embedded YAML, file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, id string) (domain.Catalog, error)
}

// CatalogRepository caches catalogs in Redis and falls back to a loader on cache miss.
// A catalog is stored as JSON: SET assessment:catalog:{id} {json} EX ttl
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, id string) (domain.Catalog, error) {
	if c, ok := r.cached(ctx, id); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if c, ok := r.cached(ctx, id); ok {
			return c, nil
		}

		c, err := r.loader.LoadCatalog(ctx, id)
		if err != nil {
			return domain.Catalog{}, err
		}

		raw, err := json.Marshal(c)
		if err != nil {
			return c, nil
		}
		if err := r.client.Set(ctx, r.key(id), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("redis: cache catalog %s: %v", id, err)
		}
		return c, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate drops the cached copy so the next read reloads it.
func (r *CatalogRepository) Invalidate(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *CatalogRepository) cached(ctx context.Context, id string) (domain.Catalog, bool) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		return domain.Catalog{}, false
	}
	var c domain.Catalog
	if err := json.Unmarshal(raw, &c); err != nil || c.Validate() != nil {
		return domain.Catalog{}, false
	}
	return c, true
}

func (r *CatalogRepository) key(id string) string {
	return "assessment:catalog:" + id
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
