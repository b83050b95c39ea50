package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"hanzi-quiz-service/internal/catalog"
	"hanzi-quiz-service/internal/domain"
	"hanzi-quiz-service/internal/timer"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *QuizSession)
	Get(sessionID string) (*QuizSession, bool)
	Delete(sessionID string)
	All() []*QuizSession
}

// CatalogRepository loads catalog content (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, name string) (domain.Catalog, error)
}

// StartOptions narrows a new session.
type StartOptions struct {
	Level domain.Level
}

// QuizService contains the core quiz use cases. A user has at most one active session.
type QuizService struct {
	sessions    SessionRepository
	catalogs    CatalogRepository
	catalogName string
	exercises   map[domain.ExerciseKind]ExerciseSettings
	scoring     Scoring
	sched       timer.Scheduler
	tick        time.Duration
	observers   observers
	newID       func() string
	now         func() time.Time

	mu     sync.Mutex
	seeds  *rand.Rand
	active map[string]string
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithScheduler replaces the wall-clock timer scheduler and tick length.
func WithScheduler(sched timer.Scheduler, tick time.Duration) Option {
	return func(s *QuizService) {
		s.sched = sched
		s.tick = tick
	}
}

func WithObserver(obs ...Observer) Option {
	return func(s *QuizService) { s.observers = append(s.observers, obs...) }
}

func WithExercises(exercises map[domain.ExerciseKind]ExerciseSettings) Option {
	return func(s *QuizService) {
		s.exercises = make(map[domain.ExerciseKind]ExerciseSettings, len(exercises))
		for k, v := range exercises {
			v.Kind = k
			s.exercises[k] = v
		}
	}
}

func WithCatalogName(name string) Option {
	return func(s *QuizService) { s.catalogName = name }
}

func WithScoring(scoring Scoring) Option {
	return func(s *QuizService) { s.scoring = scoring }
}

// WithSeed makes question order and option shuffling reproducible.
func WithSeed(seed int64) Option {
	return func(s *QuizService) { s.seeds = rand.New(rand.NewSource(seed)) }
}

// WithIDGenerator is test-only for predictable session IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *QuizService) { s.newID = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(store SessionRepository, catalogs CatalogRepository, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:    store,
		catalogs:    catalogs,
		catalogName: catalog.DefaultName,
		exercises:   DefaultExercises(),
		scoring:     DefaultScoring(),
		sched:       timer.RealScheduler{},
		tick:        time.Second,
		newID:       uuid.NewString,
		now:         time.Now,
		seeds:       rand.New(rand.NewSource(time.Now().UnixNano())),
		active:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exercises lists the configured exercise kinds.
func (s *QuizService) Exercises() []ExerciseSettings {
	out := make([]ExerciseSettings, 0, len(s.exercises))
	for _, k := range SortedKinds(s.exercises) {
		out = append(out, s.exercises[k])
	}
	return out
}

// Start opens a new session for userID, closing any session the user already had.
func (s *QuizService) Start(ctx context.Context, userID string, kind domain.ExerciseKind, opts StartOptions) (domain.SessionSnapshot, error) {
	settings, ok := s.exercises[kind]
	if !ok {
		return domain.SessionSnapshot{}, fmt.Errorf("%q: %w", kind, domain.ErrUnknownExercise)
	}
	if opts.Level != "" && !opts.Level.Valid() {
		return domain.SessionSnapshot{}, fmt.Errorf("%q: %w", opts.Level, domain.ErrUnknownLevel)
	}

	cat, err := s.catalogs.GetCatalog(ctx, s.catalogName)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	s.mu.Lock()
	rnd := rand.New(rand.NewSource(s.seeds.Int63()))
	s.mu.Unlock()

	source, evaluate, err := exerciseFor(kind, catalog.NewSet(cat), rnd, opts.Level, s.scoring)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	session := NewQuizSession(SessionConfig{
		ID:        s.newID(),
		UserID:    userID,
		Settings:  settings,
		Source:    source,
		Evaluate:  evaluate,
		Scheduler: s.sched,
		Tick:      s.tick,
		Observer:  s.observers,
		Now:       s.now,
	})
	snap, err := session.Start()
	if err != nil {
		session.Close()
		return domain.SessionSnapshot{}, err
	}

	s.mu.Lock()
	prevID, hadPrev := s.active[userID]
	s.active[userID] = session.Info().ID
	s.mu.Unlock()

	s.sessions.Put(session)
	if hadPrev {
		s.drop(prevID)
	}
	return snap, nil
}

// Submit records an answer on the user's session.
func (s *QuizService) Submit(_ context.Context, userID, sessionID string, answer domain.Answer) (domain.AnswerResult, error) {
	session, err := s.owned(userID, sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return session.SubmitAnswer(answer)
}

func (s *QuizService) Advance(_ context.Context, userID, sessionID string) (domain.SessionSnapshot, error) {
	session, err := s.owned(userID, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Advance()
}

func (s *QuizService) Restart(_ context.Context, userID, sessionID string) (domain.SessionSnapshot, error) {
	session, err := s.owned(userID, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Restart()
}

func (s *QuizService) Snapshot(_ context.Context, userID, sessionID string) (domain.SessionSnapshot, error) {
	session, err := s.owned(userID, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel of session events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, userID, sessionID string) (<-chan domain.SessionEvent, func(), error) {
	session, err := s.owned(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session.Subscribe()
}

// End closes the session and forgets it.
func (s *QuizService) End(_ context.Context, userID, sessionID string) error {
	if _, err := s.owned(userID, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	if s.active[userID] == sessionID {
		delete(s.active, userID)
	}
	s.mu.Unlock()
	s.drop(sessionID)
	return nil
}

// Shutdown closes every live session.
func (s *QuizService) Shutdown() {
	for _, session := range s.sessions.All() {
		session.Close()
		s.sessions.Delete(session.Info().ID)
	}
	s.mu.Lock()
	s.active = make(map[string]string)
	s.mu.Unlock()
}

func (s *QuizService) owned(userID, sessionID string) (*QuizSession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok || session.Info().UserID != userID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// drop closes the session before removing it so no timer outlives it.
func (s *QuizService) drop(sessionID string) {
	if session, ok := s.sessions.Get(sessionID); ok {
		session.Close()
	}
	s.sessions.Delete(sessionID)
}
