package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"hanzi-quiz-service/internal/domain"
)

// CatalogLoader fetches catalog content from a backing store (embedded data, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, name string) (domain.Catalog, error)
}

// CatalogRepository caches catalogs in Redis and falls back to a loader on cache miss.
// Each catalog is stored as JSON: SET catalog:{name} {json} EX ttl.
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context, name string) (domain.Catalog, error) {
	if cat, ok := r.cached(ctx, name); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cat, ok := r.cached(ctx, name); ok {
			return cat, nil
		}

		cat, err := r.loader.LoadCatalog(ctx, name)
		if err != nil {
			return domain.Catalog{}, err
		}

		raw, err := json.Marshal(cat)
		if err != nil {
			return domain.Catalog{}, err
		}
		if err := r.client.Set(ctx, r.key(name), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("catalog cache fill %s: %v", name, err)
		}
		return cat, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

func (r *CatalogRepository) cached(ctx context.Context, name string) (domain.Catalog, bool) {
	raw, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("catalog cache read %s: %v", name, err)
		}
		return domain.Catalog{}, false
	}
	var cat domain.Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		log.Printf("catalog cache decode %s: %v", name, err)
		return domain.Catalog{}, false
	}
	return cat, true
}

// Invalidate drops the cached copy so the next read reloads it.
func (r *CatalogRepository) Invalidate(ctx context.Context, name string) error {
	return r.client.Del(ctx, r.key(name)).Err()
}

func (r *CatalogRepository) key(name string) string {
	return "catalog:" + name
}

// ttlWithJitter adds up to 10% so replicas do not expire together. Zero means no expiry.
func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
