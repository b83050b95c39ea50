package cli

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"hanzi-quiz-service/internal/config"
)

func TestDropCachedCatalogClearsRedisCopy(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("catalog:chinese", `{"name":"chinese"}`); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := mr.Set("catalog:other", `{"name":"other"}`); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	var cfg config.Config
	cfg.Redis.Addr = mr.Addr()
	if err := dropCachedCatalog(context.Background(), cfg, "chinese"); err != nil {
		t.Fatalf("drop cached catalog: %v", err)
	}
	if mr.Exists("catalog:chinese") {
		t.Fatalf("seeded catalog still cached")
	}
	if !mr.Exists("catalog:other") {
		t.Fatalf("unrelated catalog was dropped")
	}
}
