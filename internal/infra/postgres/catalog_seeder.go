package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"hanzi-quiz-service/internal/domain"
)

type catalogRow struct {
	bun.BaseModel `bun:"table:catalogs"`

	Name      string         `bun:"name,pk"`
	Data      domain.Catalog `bun:"data,type:jsonb"`
	UpdatedAt time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// SeedCatalog upserts cat into the catalogs table.
func SeedCatalog(ctx context.Context, db bun.IDB, cat domain.Catalog) error {
	row := &catalogRow{Name: cat.Name, Data: cat, UpdatedAt: time.Now().UTC()}
	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (name) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("seed catalog %s: %w", cat.Name, err)
	}
	return nil
}
