package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"hanzi-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions own timers and subscriber channels, so the live objects stay in
//     a local map.
//   - Redis marks liveness (quiz:session:{id} -> user) and the user's current
//     session (quiz:user:{user}:session -> id) so other tooling can see who is playing.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.QuizSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.QuizSession),
	}
}

func (s *SessionStore) Put(session *app.QuizSession) {
	info := session.Info()

	s.mu.Lock()
	s.sessions[info.ID] = session
	s.mu.Unlock()

	// best-effort liveness markers
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(info.ID), info.UserID, s.ttl)
	pipe.Set(ctx, s.userKey(info.UserID), info.ID, s.ttl)
	_, _ = pipe.Exec(ctx)
}

func (s *SessionStore) Get(sessionID string) (*app.QuizSession, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.sessionKey(sessionID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	ctx := context.Background()
	_ = s.client.Del(ctx, s.sessionKey(sessionID)).Err()
	if ok {
		userKey := s.userKey(session.Info().UserID)
		if current, err := s.client.Get(ctx, userKey).Result(); err == nil && current == sessionID {
			_ = s.client.Del(ctx, userKey).Err()
		}
	}
}

func (s *SessionStore) All() []*app.QuizSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.QuizSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// CurrentSession returns the session ID Redis has on record for userID.
func (s *SessionStore) CurrentSession(ctx context.Context, userID string) (string, bool) {
	id, err := s.client.Get(ctx, s.userKey(userID)).Result()
	if err != nil {
		return "", false
	}
	return id, true
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "quiz:session:" + sessionID
}

func (s *SessionStore) userKey(userID string) string {
	return "quiz:user:" + userID + ":session"
}
