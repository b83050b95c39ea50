package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// PreferenceStore keeps each user's language under pref:language:{user}, without expiry.
type PreferenceStore struct {
	client *redis.Client
}

func NewPreferenceStore(client *redis.Client) *PreferenceStore {
	return &PreferenceStore{client: client}
}

func (p *PreferenceStore) GetLanguage(ctx context.Context, userID string) (string, bool, error) {
	code, err := p.client.Get(ctx, p.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

func (p *PreferenceStore) SetLanguage(ctx context.Context, userID, code string) error {
	return p.client.Set(ctx, p.key(userID), code, 0).Err()
}

func (p *PreferenceStore) key(userID string) string {
	return "pref:language:" + userID
}
