package memory

import (
	"context"
	"sync"
)

// PreferenceStore keeps language choices for the process lifetime.
type PreferenceStore struct {
	mu    sync.RWMutex
	langs map[string]string
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{langs: make(map[string]string)}
}

func (p *PreferenceStore) GetLanguage(_ context.Context, userID string) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	code, ok := p.langs[userID]
	return code, ok, nil
}

func (p *PreferenceStore) SetLanguage(_ context.Context, userID, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.langs[userID] = code
	return nil
}
