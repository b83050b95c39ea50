package i18n

import (
	"context"
	"fmt"

	"hanzi-quiz-service/internal/domain"
)

// PreferenceStore persists a user's language code.
type PreferenceStore interface {
	GetLanguage(ctx context.Context, userID string) (string, bool, error)
	SetLanguage(ctx context.Context, userID, code string) error
}

// Preferences validates and defaults language choices on top of a store.
type Preferences struct {
	store PreferenceStore
}

func NewPreferences(store PreferenceStore) *Preferences {
	return &Preferences{store: store}
}

// Language returns the user's saved language, or DefaultLanguage when none is
// saved or the saved value is not supported anymore.
func (p *Preferences) Language(ctx context.Context, userID string) (domain.Language, error) {
	code, ok, err := p.store.GetLanguage(ctx, userID)
	if err != nil {
		return DefaultLanguage, err
	}
	if !ok {
		return DefaultLanguage, nil
	}
	lang, err := domain.ParseLanguage(code)
	if err != nil {
		return DefaultLanguage, nil
	}
	return lang, nil
}

// SetLanguage saves code for the user after validating it.
func (p *Preferences) SetLanguage(ctx context.Context, userID, code string) (domain.Language, error) {
	lang, err := domain.ParseLanguage(code)
	if err != nil {
		return "", fmt.Errorf("set language %q: %w", code, err)
	}
	if err := p.store.SetLanguage(ctx, userID, string(lang)); err != nil {
		return "", err
	}
	return lang, nil
}
