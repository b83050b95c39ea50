package memory

import (
	"sync"

	"hanzi-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.QuizSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.QuizSession),
	}
}

func (s *SessionStore) Put(session *app.QuizSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Info().ID] = session
}

func (s *SessionStore) Get(sessionID string) (*app.QuizSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
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
