package catalog

import "hanzi-quiz-service/internal/domain"

// Set groups the banks built from one catalog.
type Set struct {
	Name       string
	Words      *Bank[domain.Word]
	Locations  *Bank[domain.Location]
	Characters *Bank[domain.Character]
}

func NewSet(cat domain.Catalog) *Set {
	return &Set{
		Name:       cat.Name,
		Words:      NewBank(cat.Words),
		Locations:  NewBank(cat.Locations),
		Characters: NewBank(cat.Characters),
	}
}
