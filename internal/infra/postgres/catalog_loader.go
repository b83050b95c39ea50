package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"hanzi-quiz-service/internal/catalog"
	"hanzi-quiz-service/internal/domain"
)

// CatalogLoader loads catalog JSONB from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context, name string) (domain.Catalog, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM catalogs WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Catalog{}, fmt.Errorf("%q: %w", name, domain.ErrCatalogNotFound)
	}
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return decodeCatalog(name, raw)
}

// decodeCatalog parses a stored catalog and rejects rows that break the bank rules.
func decodeCatalog(name string, raw []byte) (domain.Catalog, error) {
	var cat domain.Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return domain.Catalog{}, fmt.Errorf("unmarshal catalog: %w", err)
	}
	cat.Name = name
	if err := catalog.Validate(cat); err != nil {
		return domain.Catalog{}, fmt.Errorf("catalog %q: %w", name, err)
	}
	return cat, nil
}
