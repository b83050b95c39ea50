package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hanzi-quiz-service/internal/catalog"
	"hanzi-quiz-service/internal/domain"
)

// CatalogLoader fetches catalog content from a backing store (embedded data, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, name string) (domain.Catalog, error)
}

// CatalogRepository caches catalogs with TTL to avoid repeated loads.
// A TTL <= 0 keeps entries forever.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
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

func (r *CatalogRepository) GetCatalog(ctx context.Context, name string) (domain.Catalog, error) {
	if cat, ok := r.lookup(name); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		if cat, ok := r.lookup(name); ok {
			return cat, nil
		}

		cat, err := r.loader.LoadCatalog(ctx, name)
		if err != nil {
			return domain.Catalog{}, err
		}

		r.mu.Lock()
		r.cache[name] = cachedCatalog{
			catalog:   cat,
			expiresAt: r.expiryLocked(),
		}
		r.mu.Unlock()
		return cat, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

func (r *CatalogRepository) lookup(name string) (domain.Catalog, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[name]
	if !ok {
		return domain.Catalog{}, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
		return domain.Catalog{}, false
	}
	return entry.catalog, true
}

// expiryLocked adds up to 10% jitter to spread expirations.
func (r *CatalogRepository) expiryLocked() time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	jitterMax := int64(r.ttl) / 10
	return r.clock().Add(r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1)))
}

// StaticCatalogLoader serves catalogs from memory. The default catalog is the embedded dataset.
type StaticCatalogLoader struct {
	catalogs map[string]domain.Catalog
}

func NewStaticCatalogLoader(catalogs ...domain.Catalog) *StaticCatalogLoader {
	m := make(map[string]domain.Catalog, len(catalogs))
	for _, c := range catalogs {
		m[c.Name] = c
	}
	return &StaticCatalogLoader{catalogs: m}
}

// NewEmbeddedCatalogLoader serves the catalog compiled into the binary.
func NewEmbeddedCatalogLoader() (*StaticCatalogLoader, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	return NewStaticCatalogLoader(cat), nil
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context, name string) (domain.Catalog, error) {
	if cat, ok := l.catalogs[name]; ok {
		return cat, nil
	}
	return domain.Catalog{}, fmt.Errorf("%q: %w", name, domain.ErrCatalogNotFound)
}
