package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"hanzi-quiz-service/internal/catalog"
	"hanzi-quiz-service/internal/config"
	pgstore "hanzi-quiz-service/internal/infra/postgres"
	pgmigrations "hanzi-quiz-service/internal/infra/postgres/migrations"
	redisstore "hanzi-quiz-service/internal/infra/redis"
)

// NewMigrateCmd applies database migrations and optionally seeds the built-in catalog.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runMigrationsWithConfig(cmd.Context(), cfg, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "upsert the embedded catalog after migrating")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, seed bool) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Printf("no new migrations")
	} else {
		log.Printf("migrations applied: %s", group)
	}

	if !seed {
		return nil
	}
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	cat.Name = cfg.Catalog.Name
	if err := pgstore.SeedCatalog(ctx, db, cat); err != nil {
		return err
	}
	log.Printf("catalog %q seeded (%d words, %d locations, %d characters)", cat.Name, len(cat.Words), len(cat.Locations), len(cat.Characters))
	if cfg.Redis.Addr != "" {
		// servers would keep the pre-seed copy until the cache ttl runs out
		if err := dropCachedCatalog(ctx, cfg, cat.Name); err != nil {
			log.Printf("drop cached catalog %q: %v", cat.Name, err)
		}
	}
	return nil
}

func dropCachedCatalog(ctx context.Context, cfg config.Config, name string) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()
	return redisstore.NewCatalogRepository(client, nil, 0).Invalidate(ctx, name)
}
