package catalog

import (
	"fmt"
	"math/rand"

	"hanzi-quiz-service/internal/domain"
)

// Entry is anything a Bank can hold.
type Entry interface {
	EntryID() int
	EntryLevel() domain.Level
}

// Bank is an immutable collection of catalog entries. There is no write path:
// every accessor returns copies.
type Bank[T Entry] struct {
	items []T
	byID  map[int]int
}

func NewBank[T Entry](items []T) *Bank[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	byID := make(map[int]int, len(cp))
	for i, it := range cp {
		byID[it.EntryID()] = i
	}
	return &Bank[T]{items: cp, byID: byID}
}

func (b *Bank[T]) Len() int {
	return len(b.items)
}

// All returns every entry in catalog order.
func (b *Bank[T]) All() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Get looks an entry up by ID.
func (b *Bank[T]) Get(id int) (T, bool) {
	i, ok := b.byID[id]
	if !ok {
		var zero T
		return zero, false
	}
	return b.items[i], true
}

// Sample draws n entries without replacement in random order. Callers must
// clamp n to Len.
func (b *Bank[T]) Sample(rnd *rand.Rand, n int) ([]T, error) {
	if n < 0 || n > len(b.items) {
		return nil, fmt.Errorf("sample %d of %d: %w", n, len(b.items), domain.ErrInsufficientCatalogSize)
	}
	perm := rnd.Perm(len(b.items))
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.items[perm[i]]
	}
	return out, nil
}

// FilterByLevel returns the entries of the given level.
func (b *Bank[T]) FilterByLevel(level domain.Level) []T {
	var out []T
	for _, it := range b.items {
		if it.EntryLevel() == level {
			out = append(out, it)
		}
	}
	return out
}

// Others returns every entry except the one with the given ID.
func (b *Bank[T]) Others(id int) []T {
	out := make([]T, 0, len(b.items))
	for _, it := range b.items {
		if it.EntryID() != id {
			out = append(out, it)
		}
	}
	return out
}
