package catalog

import (
	"errors"
	"math/rand"
	"testing"

	"hanzi-quiz-service/internal/domain"
)

func TestDefaultCatalogLoads(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if cat.Name != DefaultName {
		t.Fatalf("expected name %q, got %q", DefaultName, cat.Name)
	}
	if len(cat.Words) != 15 || len(cat.Locations) != 30 || len(cat.Characters) != 20 {
		t.Fatalf("unexpected sizes: words=%d locations=%d characters=%d", len(cat.Words), len(cat.Locations), len(cat.Characters))
	}
	beijing, ok := NewBank(cat.Locations).Get(1)
	if !ok || beijing.NameEn != "Beijing" || beijing.Coordinates.Lng != 116.4074 {
		t.Fatalf("unexpected first location: %+v", beijing)
	}
}

func TestSampleDrawsDistinctEntries(t *testing.T) {
	bank := NewBank(MustDefault().Words)
	rnd := rand.New(rand.NewSource(7))

	for n := 1; n <= bank.Len(); n++ {
		got, err := bank.Sample(rnd, n)
		if err != nil {
			t.Fatalf("sample %d: %v", n, err)
		}
		if len(got) != n {
			t.Fatalf("expected %d items, got %d", n, len(got))
		}
		seen := map[int]bool{}
		for _, w := range got {
			if seen[w.ID] {
				t.Fatalf("sample %d repeated id %d", n, w.ID)
			}
			seen[w.ID] = true
		}
	}
}

func TestSampleRejectsOversizedRequest(t *testing.T) {
	bank := NewBank(MustDefault().Words)
	_, err := bank.Sample(rand.New(rand.NewSource(1)), bank.Len()+1)
	if !errors.Is(err, domain.ErrInsufficientCatalogSize) {
		t.Fatalf("expected insufficient catalog size, got %v", err)
	}
}

func TestFilterByLevelDoesNotMutate(t *testing.T) {
	bank := NewBank(MustDefault().Words)
	before := bank.Len()

	beginners := bank.FilterByLevel(domain.LevelBeginner)
	if len(beginners) != 8 {
		t.Fatalf("expected 8 beginner words, got %d", len(beginners))
	}
	for _, w := range beginners {
		if w.Level != domain.LevelBeginner {
			t.Fatalf("filter leaked level %s", w.Level)
		}
	}
	beginners[0].CorrectAnswer = "mutated"
	if first, _ := bank.Get(beginners[0].ID); first.CorrectAnswer == "mutated" {
		t.Fatalf("filter result aliases the bank")
	}
	if bank.Len() != before {
		t.Fatalf("bank size changed")
	}
}

func TestOptionsContainTargetOnce(t *testing.T) {
	bank := NewBank(MustDefault().Words)
	rnd := rand.New(rand.NewSource(42))
	label := func(w domain.Word) string { return w.Character }

	for _, target := range bank.All() {
		opts := Options(rnd, target, bank.Others(target.ID), label)
		if len(opts) != OptionCount {
			t.Fatalf("expected %d options, got %v", OptionCount, opts)
		}
		hits := 0
		for _, o := range opts {
			if o == target.Character {
				hits++
			}
		}
		if hits != 1 {
			t.Fatalf("target %s appears %d times in %v", target.Character, hits, opts)
		}
	}
}

func TestOptionsWithSmallPool(t *testing.T) {
	words := MustDefault().Words[:2]
	opts := Options(rand.New(rand.NewSource(3)), words[0], words, func(w domain.Word) string { return w.CorrectAnswer })
	if len(opts) != 2 {
		t.Fatalf("expected 2 options from a 2-word pool, got %v", opts)
	}
}

func TestValidateRejectsBrokenWord(t *testing.T) {
	cat := domain.Catalog{Words: []domain.Word{{
		ID: 1, Character: "水", CorrectAnswer: "Water", Options: []string{"Fire", "Earth"}, Level: domain.LevelBeginner,
	}}}
	if err := Validate(cat); err == nil {
		t.Fatalf("expected validation error")
	}
}
