package app

import (
	"fmt"
	"math"
	"sync"
	"time"

	"hanzi-quiz-service/internal/domain"
	"hanzi-quiz-service/internal/timer"
)

// SessionConfig wires a QuizSession.
type SessionConfig struct {
	ID        string
	UserID    string
	Settings  ExerciseSettings
	Source    ItemSource
	Evaluate  Evaluator
	Scheduler timer.Scheduler
	// Tick is the timer resolution; one second when zero.
	Tick     time.Duration
	Observer Observer
	Now      func() time.Time
}

// QuizSession is a single learner's timed quiz. All user input and timer
// callbacks are serialised by mu.
type QuizSession struct {
	info     domain.SessionInfo
	settings ExerciseSettings
	source   ItemSource
	evaluate Evaluator
	observer Observer
	now      func() time.Time

	mu          sync.Mutex
	round       *round
	clock       *timer.Timer
	countdown   *timer.Timer
	subscribers map[chan domain.SessionEvent]struct{}
	closed      bool
	// pending observer calls, flushed by unlock
	pending []func()
}

// round is the mutable state of one pass through the items. Restart replaces
// it, which invalidates every timer callback bound to the old one.
type round struct {
	items      []domain.QuizItem
	position   int
	phase      domain.Phase
	selected   *domain.Answer
	last       *domain.AnswerResult
	answered   int
	correct    int
	points     int
	correctIDs []int
	countdown  int
	reason     domain.FinishReason
	startedAt  time.Time
	finishedAt time.Time
}

func NewQuizSession(cfg SessionConfig) *QuizSession {
	sched := cfg.Scheduler
	if sched == nil {
		sched = timer.RealScheduler{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	obs := cfg.Observer
	if obs == nil {
		obs = observers(nil)
	}
	settings := cfg.Settings
	if settings.Mode == "" {
		settings.Mode = domain.TimerGlobal
	}
	return &QuizSession{
		info:        domain.SessionInfo{ID: cfg.ID, UserID: cfg.UserID, Exercise: settings.Kind},
		settings:    settings,
		source:      cfg.Source,
		evaluate:    cfg.Evaluate,
		observer:    obs,
		now:         now,
		clock:       timer.New(sched, cfg.Tick),
		countdown:   timer.New(sched, cfg.Tick),
		subscribers: make(map[chan domain.SessionEvent]struct{}),
	}
}

func (s *QuizSession) Info() domain.SessionInfo {
	return s.info
}

// Start draws a fresh round and enters Answering at the first question.
func (s *QuizSession) Start() (domain.SessionSnapshot, error) {
	return s.begin(domain.EventStarted)
}

// Restart discards the current round, whatever its phase, and starts a new
// one with the same settings.
func (s *QuizSession) Restart() (domain.SessionSnapshot, error) {
	return s.begin(domain.EventRestarted)
}

func (s *QuizSession) begin(ev domain.EventType) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.unlock()

	if s.closed {
		return domain.SessionSnapshot{}, domain.ErrSessionClosed
	}

	n := s.settings.Size
	if avail := s.source.Len(); n <= 0 || n > avail {
		n = avail
	}
	if n == 0 {
		return domain.SessionSnapshot{}, domain.ErrEmptyCatalog
	}
	items, err := s.source.Sample(n)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("draw %d items: %w", n, err)
	}

	if prev := s.round; prev != nil && prev.phase != domain.PhaseFinished {
		prev.reason = domain.FinishAbandoned
		prev.finishedAt = s.now()
		summary := s.summaryLocked(prev)
		s.queue(func() { s.observer.SessionFinished(summary) })
	}
	s.clock.Stop()
	s.countdown.Stop()

	r := &round{items: items, phase: domain.PhaseAnswering, startedAt: s.now()}
	s.round = r
	if s.settings.Mode == domain.TimerGlobal {
		s.armGlobalLocked(r)
	} else {
		s.armQuestionLocked(r)
	}

	info := s.info
	s.queue(func() { s.observer.SessionStarted(info) })
	return s.broadcastLocked(ev), nil
}

// SubmitAnswer evaluates the answer for the current question and reveals it.
// Only the first answer per question counts.
func (s *QuizSession) SubmitAnswer(answer domain.Answer) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.unlock()

	if err := s.usableLocked(); err != nil {
		return domain.AnswerResult{}, err
	}
	if s.round.phase == domain.PhaseRevealed {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}
	answer.TimedOut = false
	ev, err := s.evaluate(s.round.items[s.round.position], answer)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return s.recordLocked(s.round, answer, ev), nil
}

// Advance moves from Revealed to the next question, or to Finished after the last one.
func (s *QuizSession) Advance() (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.unlock()

	if err := s.usableLocked(); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if s.round.phase != domain.PhaseRevealed {
		return domain.SessionSnapshot{}, domain.ErrInvalidPhase
	}
	return s.advanceLocked(s.round), nil
}

// Snapshot returns the current view. The answer of an unrevealed question is hidden.
func (s *QuizSession) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Score is the percentage of answered questions that were correct.
func (s *QuizSession) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return 0
	}
	return score(s.round.correct, s.round.answered)
}

// Subscribe streams session events. The first event is the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizSession) Subscribe() (<-chan domain.SessionEvent, func(), error) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, domain.ErrSessionClosed
	}
	s.subscribers[ch] = struct{}{}
	// ch is fresh and buffered, so this cannot block; sending under mu keeps
	// Close from closing ch first.
	ch <- domain.SessionEvent{Type: s.currentEventLocked(), Snapshot: s.snapshotLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// Close stops both timers and closes all subscriptions. An unfinished round is
// reported as abandoned. Later calls are no-ops.
func (s *QuizSession) Close() {
	s.mu.Lock()
	defer s.unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.clock.Stop()
	s.countdown.Stop()

	if r := s.round; r != nil && r.phase != domain.PhaseFinished {
		r.phase = domain.PhaseFinished
		r.reason = domain.FinishAbandoned
		r.finishedAt = s.now()
		summary := s.summaryLocked(r)
		s.queue(func() { s.observer.SessionFinished(summary) })
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *QuizSession) usableLocked() error {
	switch {
	case s.closed:
		return domain.ErrSessionClosed
	case s.round == nil:
		return domain.ErrInvalidPhase
	case s.round.phase == domain.PhaseFinished:
		return domain.ErrSessionFinished
	}
	return nil
}

// recordLocked stores an evaluated answer for the current question and reveals it.
func (s *QuizSession) recordLocked(r *round, answer domain.Answer, ev domain.Evaluation) domain.AnswerResult {
	item := r.items[r.position]

	if s.settings.Mode == domain.TimerPerQuestion {
		s.clock.Stop()
	}

	r.answered++
	if ev.Correct {
		r.correct++
		r.correctIDs = append(r.correctIDs, item.ID)
	}
	r.points += ev.Points
	a := answer
	r.selected = &a
	r.phase = domain.PhaseRevealed

	result := domain.AnswerResult{
		Position:      r.position,
		ItemID:        item.ID,
		Selected:      answer.Display(),
		CorrectAnswer: item.CorrectAnswer,
		Correct:       ev.Correct,
		TimedOut:      answer.TimedOut,
		Points:        ev.Points,
		DistanceKm:    ev.DistanceKm,
		Exercise:      s.settings.Kind,
	}
	r.last = &result

	if s.settings.AutoAdvance > 0 {
		s.armCountdownLocked(r)
	}

	info := s.info
	s.queue(func() { s.observer.AnswerRecorded(info, result) })
	s.broadcastLocked(domain.EventAnswered)
	return result
}

func (s *QuizSession) advanceLocked(r *round) domain.SessionSnapshot {
	s.countdown.Stop()
	r.countdown = 0
	r.position++
	if r.position >= len(r.items) {
		// a completed round rests at position == len(items)
		return s.finishLocked(r, domain.FinishCompleted)
	}
	r.phase = domain.PhaseAnswering
	r.selected = nil
	if s.settings.Mode == domain.TimerPerQuestion {
		s.armQuestionLocked(r)
	}
	return s.broadcastLocked(domain.EventAdvanced)
}

func (s *QuizSession) finishLocked(r *round, reason domain.FinishReason) domain.SessionSnapshot {
	s.clock.Stop()
	s.countdown.Stop()
	r.phase = domain.PhaseFinished
	r.reason = reason
	r.countdown = 0
	r.finishedAt = s.now()

	summary := s.summaryLocked(r)
	s.queue(func() { s.observer.SessionFinished(summary) })
	return s.broadcastLocked(domain.EventFinished)
}

// armGlobalLocked runs one countdown for the whole round. It keeps running
// while answers are revealed.
func (s *QuizSession) armGlobalLocked(r *round) {
	s.clock.Start(s.settings.TimeLimit,
		func(int) {
			s.mu.Lock()
			defer s.unlock()
			if s.closed || s.round != r || r.phase == domain.PhaseFinished {
				return
			}
			s.broadcastLocked(domain.EventTick)
		},
		func() {
			s.mu.Lock()
			defer s.unlock()
			if s.closed || s.round != r || r.phase == domain.PhaseFinished {
				return
			}
			s.finishLocked(r, domain.FinishTimeUp)
		})
}

// armQuestionLocked gives the current question its own budget. Expiry counts
// as an unanswered submission.
func (s *QuizSession) armQuestionLocked(r *round) {
	pos := r.position
	live := func() bool {
		return !s.closed && s.round == r && r.position == pos && r.phase == domain.PhaseAnswering
	}
	s.clock.Start(s.settings.TimeLimit,
		func(int) {
			s.mu.Lock()
			defer s.unlock()
			if live() {
				s.broadcastLocked(domain.EventTick)
			}
		},
		func() {
			s.mu.Lock()
			defer s.unlock()
			if !live() {
				return
			}
			// a timeout is an incorrect answer worth nothing
			s.recordLocked(r, domain.Answer{TimedOut: true}, domain.Evaluation{})
		})
}

func (s *QuizSession) armCountdownLocked(r *round) {
	pos := r.position
	live := func() bool {
		return !s.closed && s.round == r && r.position == pos && r.phase == domain.PhaseRevealed
	}
	r.countdown = s.settings.AutoAdvance
	s.countdown.Start(s.settings.AutoAdvance,
		func(remaining int) {
			s.mu.Lock()
			defer s.unlock()
			if live() {
				r.countdown = remaining
				s.broadcastLocked(domain.EventCountdown)
			}
		},
		func() {
			s.mu.Lock()
			defer s.unlock()
			if live() {
				s.advanceLocked(r)
			}
		})
}

// unlock releases mu and then runs the observer calls queued while it was held.
func (s *QuizSession) unlock() {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (s *QuizSession) queue(fn func()) {
	s.pending = append(s.pending, fn)
}

func (s *QuizSession) broadcastLocked(t domain.EventType) domain.SessionSnapshot {
	snap := s.snapshotLocked()
	ev := domain.SessionEvent{Type: t, Snapshot: snap}
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest event so slow readers see the latest state
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
	return snap
}

func (s *QuizSession) currentEventLocked() domain.EventType {
	if s.round != nil && s.round.phase == domain.PhaseFinished {
		return domain.EventFinished
	}
	return domain.EventStarted
}

func (s *QuizSession) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionInfo: s.info,
		TimerMode:   s.settings.Mode,
	}
	r := s.round
	if r == nil {
		return snap
	}

	snap.Phase = r.phase
	snap.Position = r.position
	snap.Total = len(r.items)
	snap.CorrectCount = r.correct
	snap.AnsweredCount = r.answered
	snap.Points = r.points
	snap.Score = score(r.correct, r.answered)
	snap.Countdown = r.countdown
	snap.FinishReason = r.reason
	snap.StartedAt = r.startedAt
	if r.phase != domain.PhaseFinished {
		snap.RemainingSeconds = s.clock.Remaining()
	}
	if r.last != nil {
		last := *r.last
		snap.LastResult = &last
	}

	switch r.phase {
	case domain.PhaseAnswering:
		item := cloneItem(r.items[r.position])
		item.CorrectAnswer = ""
		item.Target = nil
		snap.Item = &item
	case domain.PhaseRevealed:
		item := cloneItem(r.items[r.position])
		snap.Item = &item
		if r.selected != nil {
			snap.SelectedAnswer = r.selected.Display()
		}
	}
	return snap
}

func (s *QuizSession) summaryLocked(r *round) domain.SessionSummary {
	ids := make([]int, len(r.correctIDs))
	copy(ids, r.correctIDs)
	return domain.SessionSummary{
		SessionInfo:    s.info,
		Reason:         r.reason,
		Total:          len(r.items),
		Answered:       r.answered,
		Correct:        r.correct,
		Points:         r.points,
		Score:          score(r.correct, r.answered),
		CorrectItemIDs: ids,
		StartedAt:      r.startedAt,
		FinishedAt:     r.finishedAt,
	}
}

func cloneItem(it domain.QuizItem) domain.QuizItem {
	out := it
	if it.Options != nil {
		out.Options = append([]string(nil), it.Options...)
	}
	if it.Target != nil {
		t := *it.Target
		out.Target = &t
	}
	if it.Labels != nil {
		out.Labels = make(map[domain.Language]string, len(it.Labels))
		for k, v := range it.Labels {
			out.Labels[k] = v
		}
	}
	return out
}

func score(correct, answered int) int {
	if answered == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(answered) * 100))
}
