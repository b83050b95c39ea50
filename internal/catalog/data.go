package catalog

import (
	"embed"
	"fmt"

	"hanzi-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultName is the name the embedded catalog is registered under.
const DefaultName = "chinese"

//go:embed data/*.yaml
var dataFS embed.FS

// Default decodes the catalog compiled into the binary.
func Default() (domain.Catalog, error) {
	cat := domain.Catalog{Name: DefaultName}
	for _, name := range []string{"words.yaml", "locations.yaml", "characters.yaml"} {
		raw, err := dataFS.ReadFile("data/" + name)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("read %s: %w", name, err)
		}
		// each file fills its own section of the catalog
		if err := yaml.Unmarshal(raw, &cat); err != nil {
			return domain.Catalog{}, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	if err := Validate(cat); err != nil {
		return domain.Catalog{}, err
	}
	return cat, nil
}

// MustDefault is Default for package init and tests.
func MustDefault() domain.Catalog {
	cat, err := Default()
	if err != nil {
		panic(err)
	}
	return cat
}

// Validate checks the structural rules the quiz relies on: unique IDs, known
// levels, and word options that contain the correct answer exactly once.
func Validate(cat domain.Catalog) error {
	ids := map[int]struct{}{}
	for _, w := range cat.Words {
		if _, dup := ids[w.ID]; dup {
			return fmt.Errorf("word %d: duplicate id", w.ID)
		}
		ids[w.ID] = struct{}{}
		if !w.Level.Valid() {
			return fmt.Errorf("word %d: unknown level %q", w.ID, w.Level)
		}
		hits := 0
		for _, o := range w.Options {
			if o == w.CorrectAnswer {
				hits++
			}
		}
		if hits != 1 {
			return fmt.Errorf("word %d: correct answer appears %d times in options", w.ID, hits)
		}
	}

	ids = map[int]struct{}{}
	for _, l := range cat.Locations {
		if _, dup := ids[l.ID]; dup {
			return fmt.Errorf("location %d: duplicate id", l.ID)
		}
		ids[l.ID] = struct{}{}
		if !l.Level.Valid() {
			return fmt.Errorf("location %d: unknown level %q", l.ID, l.Level)
		}
	}

	ids = map[int]struct{}{}
	for _, c := range cat.Characters {
		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("character %d: duplicate id", c.ID)
		}
		ids[c.ID] = struct{}{}
		if !c.Level.Valid() {
			return fmt.Errorf("character %d: unknown level %q", c.ID, c.Level)
		}
	}
	return nil
}
