package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"hanzi-quiz-service/internal/domain"
	"hanzi-quiz-service/internal/timer"
)

type fixedSource struct {
	items []domain.QuizItem
}

func (f fixedSource) Len() int { return len(f.items) }

func (f fixedSource) Sample(n int) ([]domain.QuizItem, error) {
	if n > len(f.items) {
		return nil, domain.ErrInsufficientCatalogSize
	}
	return append([]domain.QuizItem(nil), f.items[:n]...), nil
}

func choiceItems(n int) []domain.QuizItem {
	items := make([]domain.QuizItem, n)
	for i := range items {
		answer := fmt.Sprintf("meaning-%d", i+1)
		items[i] = domain.QuizItem{
			ID:            i + 1,
			Prompt:        fmt.Sprintf("word-%d", i+1),
			CorrectAnswer: answer,
			Options:       []string{answer, "other-a", "other-b", "other-c"},
			Level:         domain.LevelBeginner,
		}
	}
	return items
}

type recorder struct {
	mu       sync.Mutex
	started  int
	answers  []domain.AnswerResult
	finished []domain.SessionSummary
}

func (r *recorder) SessionStarted(domain.SessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recorder) AnswerRecorded(_ domain.SessionInfo, res domain.AnswerResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, res)
}

func (r *recorder) SessionFinished(sum domain.SessionSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, sum)
}

func newTestSession(t *testing.T, settings ExerciseSettings, items []domain.QuizItem) (*QuizSession, *timer.ManualScheduler, *recorder) {
	t.Helper()
	sched := timer.NewManualScheduler()
	rec := &recorder{}
	if settings.Kind == "" {
		settings.Kind = domain.ExerciseWordMeaning
	}
	s := NewQuizSession(SessionConfig{
		ID:        "session-1",
		UserID:    "student1",
		Settings:  settings,
		Source:    fixedSource{items: items},
		Evaluate:  evaluateChoice,
		Scheduler: sched,
		Tick:      time.Second,
		Observer:  rec,
		Now:       func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) },
	})
	return s, sched, rec
}

func globalSettings(size, limit, auto int) ExerciseSettings {
	return ExerciseSettings{Size: size, TimeLimit: limit, Mode: domain.TimerGlobal, AutoAdvance: auto}
}

func TestAllCorrectFinishesWithFullScore(t *testing.T) {
	items := choiceItems(4)
	s, _, rec := newTestSession(t, globalSettings(4, 60, 0), items)

	if _, err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 4; i++ {
		res, err := s.SubmitAnswer(domain.Answer{Choice: items[i].CorrectAnswer})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if !res.Correct || res.Points != 100 {
			t.Fatalf("expected correct result, got %+v", res)
		}
		if _, err := s.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	snap := s.Snapshot()
	if snap.Phase != domain.PhaseFinished || snap.FinishReason != domain.FinishCompleted {
		t.Fatalf("expected completed session, got %s/%s", snap.Phase, snap.FinishReason)
	}
	if s.Score() != 100 || snap.CorrectCount != 4 || snap.AnsweredCount != 4 {
		t.Fatalf("unexpected totals: score=%d %+v", s.Score(), snap)
	}
	if snap.Position != snap.Total || snap.Item != nil {
		t.Fatalf("completed round should rest past the last question, got position %d of %d", snap.Position, snap.Total)
	}
	if len(rec.finished) != 1 || rec.finished[0].Reason != domain.FinishCompleted {
		t.Fatalf("expected one completed summary, got %+v", rec.finished)
	}
	if len(rec.finished[0].CorrectItemIDs) != 4 {
		t.Fatalf("expected 4 correct ids, got %v", rec.finished[0].CorrectItemIDs)
	}
}

func TestGlobalTimerExpiryFinishesUnanswered(t *testing.T) {
	s, sched, rec := newTestSession(t, globalSettings(10, 60, 3), choiceItems(10))
	if _, err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	sched.Advance(59)
	if snap := s.Snapshot(); snap.Phase != domain.PhaseAnswering || snap.RemainingSeconds != 1 {
		t.Fatalf("expected 1s left while answering, got %s %d", snap.Phase, snap.RemainingSeconds)
	}
	sched.Fire()

	snap := s.Snapshot()
	if snap.Phase != domain.PhaseFinished || snap.FinishReason != domain.FinishTimeUp {
		t.Fatalf("expected time up, got %s/%s", snap.Phase, snap.FinishReason)
	}
	if snap.AnsweredCount != 0 || s.Score() != 0 {
		t.Fatalf("expected nothing answered, got %d (score %d)", snap.AnsweredCount, s.Score())
	}
	if len(rec.finished) != 1 || rec.finished[0].Reason != domain.FinishTimeUp {
		t.Fatalf("expected time_up summary, got %+v", rec.finished)
	}
	if sched.Active() != 0 {
		t.Fatalf("finished session left %d timers", sched.Active())
	}
}

func TestFinishedRejectsEverythingButRestart(t *testing.T) {
	s, sched, _ := newTestSession(t, globalSettings(3, 5, 0), choiceItems(3))
	_, _ = s.Start()
	sched.Advance(5)

	if _, err := s.SubmitAnswer(domain.Answer{Choice: "meaning-1"}); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected finished error on submit, got %v", err)
	}
	if _, err := s.Advance(); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected finished error on advance, got %v", err)
	}
	snap, err := s.Restart()
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap.Phase != domain.PhaseAnswering || snap.Position != 0 || snap.RemainingSeconds != 5 {
		t.Fatalf("unexpected snapshot after restart: %+v", snap)
	}
}

func TestSecondSubmissionIsRejected(t *testing.T) {
	items := choiceItems(2)
	s, _, rec := newTestSession(t, globalSettings(2, 60, 0), items)
	_, _ = s.Start()

	res, err := s.SubmitAnswer(domain.Answer{Choice: "wrong"})
	if err != nil || res.Correct {
		t.Fatalf("expected incorrect result, got %+v (%v)", res, err)
	}
	if _, err := s.SubmitAnswer(domain.Answer{Choice: items[0].CorrectAnswer}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}

	snap := s.Snapshot()
	if snap.CorrectCount != 0 || snap.AnsweredCount != 1 {
		t.Fatalf("second submission changed counters: %+v", snap)
	}
	if snap.SelectedAnswer != "wrong" {
		t.Fatalf("expected first answer kept, got %q", snap.SelectedAnswer)
	}
	if len(rec.answers) != 1 {
		t.Fatalf("expected one recorded answer, got %d", len(rec.answers))
	}
}

func TestAdvanceRequiresReveal(t *testing.T) {
	s, _, _ := newTestSession(t, globalSettings(2, 60, 0), choiceItems(2))
	if _, err := s.Advance(); !errors.Is(err, domain.ErrInvalidPhase) {
		t.Fatalf("expected invalid phase before start, got %v", err)
	}
	_, _ = s.Start()
	if _, err := s.Advance(); !errors.Is(err, domain.ErrInvalidPhase) {
		t.Fatalf("expected invalid phase while answering, got %v", err)
	}
}

func TestInvalidAnswerLeavesQuestionOpen(t *testing.T) {
	s, _, _ := newTestSession(t, globalSettings(2, 60, 0), choiceItems(2))
	_, _ = s.Start()

	if _, err := s.SubmitAnswer(domain.Answer{}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected invalid answer, got %v", err)
	}
	if snap := s.Snapshot(); snap.Phase != domain.PhaseAnswering || snap.AnsweredCount != 0 {
		t.Fatalf("invalid answer changed state: %+v", snap)
	}
}

func TestSnapshotHidesAnswerUntilRevealed(t *testing.T) {
	items := choiceItems(2)
	items[0].Target = &domain.Coordinate{Lng: 1, Lat: 2}
	s, _, _ := newTestSession(t, globalSettings(2, 60, 0), items)

	snap, _ := s.Start()
	if snap.Item == nil || snap.Item.CorrectAnswer != "" || snap.Item.Target != nil {
		t.Fatalf("answer leaked while answering: %+v", snap.Item)
	}
	_, _ = s.SubmitAnswer(domain.Answer{Choice: "other-a"})
	snap = s.Snapshot()
	if snap.Item.CorrectAnswer != items[0].CorrectAnswer || snap.Item.Target == nil {
		t.Fatalf("expected answer after reveal, got %+v", snap.Item)
	}
	if snap.LastResult == nil || snap.LastResult.CorrectAnswer != items[0].CorrectAnswer {
		t.Fatalf("expected last result, got %+v", snap.LastResult)
	}
}

func TestStartClampsToCatalog(t *testing.T) {
	s, _, _ := newTestSession(t, globalSettings(10, 60, 0), choiceItems(4))
	snap, err := s.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.Total != 4 {
		t.Fatalf("expected 4 items, got %d", snap.Total)
	}
}

func TestStartWithEmptyCatalogFails(t *testing.T) {
	s, _, _ := newTestSession(t, globalSettings(10, 60, 0), nil)
	if _, err := s.Start(); !errors.Is(err, domain.ErrEmptyCatalog) {
		t.Fatalf("expected empty catalog, got %v", err)
	}
}

func TestGlobalTimerRunsDuringReveal(t *testing.T) {
	s, sched, _ := newTestSession(t, globalSettings(3, 60, 0), choiceItems(3))
	_, _ = s.Start()
	_, _ = s.SubmitAnswer(domain.Answer{Choice: "meaning-1"})

	sched.Advance(10)
	snap := s.Snapshot()
	if snap.Phase != domain.PhaseRevealed || snap.RemainingSeconds != 50 {
		t.Fatalf("expected revealed with 50s left, got %s %d", snap.Phase, snap.RemainingSeconds)
	}

	sched.Advance(50)
	if snap := s.Snapshot(); snap.Phase != domain.PhaseFinished || snap.FinishReason != domain.FinishTimeUp {
		t.Fatalf("expected time up from revealed, got %s/%s", snap.Phase, snap.FinishReason)
	}
}

func TestAutoAdvanceCountdown(t *testing.T) {
	s, sched, _ := newTestSession(t, globalSettings(3, 60, 3), choiceItems(3))
	_, _ = s.Start()
	_, _ = s.SubmitAnswer(domain.Answer{Choice: "meaning-1"})

	if snap := s.Snapshot(); snap.Countdown != 3 {
		t.Fatalf("expected countdown 3, got %d", snap.Countdown)
	}
	sched.Advance(2)
	if snap := s.Snapshot(); snap.Phase != domain.PhaseRevealed || snap.Countdown != 1 {
		t.Fatalf("expected revealed with countdown 1, got %s %d", snap.Phase, snap.Countdown)
	}
	sched.Fire()

	snap := s.Snapshot()
	if snap.Phase != domain.PhaseAnswering || snap.Position != 1 {
		t.Fatalf("expected auto advance to question 2, got %s at %d", snap.Phase, snap.Position)
	}
	if snap.RemainingSeconds != 57 {
		t.Fatalf("expected global timer at 57, got %d", snap.RemainingSeconds)
	}
}

func TestManualAdvanceCancelsCountdown(t *testing.T) {
	s, sched, _ := newTestSession(t, globalSettings(3, 60, 3), choiceItems(3))
	_, _ = s.Start()
	_, _ = s.SubmitAnswer(domain.Answer{Choice: "meaning-1"})
	if _, err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	sched.Advance(3)
	snap := s.Snapshot()
	if snap.Phase != domain.PhaseAnswering || snap.Position != 1 {
		t.Fatalf("stale countdown moved the session: %s at %d", snap.Phase, snap.Position)
	}
}

func TestAutoAdvanceAfterLastQuestionCompletes(t *testing.T) {
	s, sched, _ := newTestSession(t, globalSettings(1, 60, 3), choiceItems(1))
	_, _ = s.Start()
	_, _ = s.SubmitAnswer(domain.Answer{Choice: "meaning-1"})
	sched.Advance(3)

	if snap := s.Snapshot(); snap.Phase != domain.PhaseFinished || snap.FinishReason != domain.FinishCompleted {
		t.Fatalf("expected completed, got %s/%s", snap.Phase, snap.FinishReason)
	}
}

func TestPerQuestionTimeoutReveals(t *testing.T) {
	settings := ExerciseSettings{Kind: domain.ExerciseListening, Size: 2, TimeLimit: 5, Mode: domain.TimerPerQuestion}
	s, sched, rec := newTestSession(t, settings, choiceItems(2))
	_, _ = s.Start()

	sched.Advance(5)
	snap := s.Snapshot()
	if snap.Phase != domain.PhaseRevealed || snap.LastResult == nil || !snap.LastResult.TimedOut {
		t.Fatalf("expected timed out reveal, got %+v", snap)
	}
	if snap.AnsweredCount != 1 || snap.CorrectCount != 0 || snap.SelectedAnswer != "" {
		t.Fatalf("unexpected counters after timeout: %+v", snap)
	}
	if len(rec.answers) != 1 || !rec.answers[0].TimedOut {
		t.Fatalf("expected timed out answer recorded, got %+v", rec.answers)
	}

	// the clock stays stopped while revealed
	sched.Advance(10)
	if snap := s.Snapshot(); snap.Phase != domain.PhaseRevealed || snap.Position != 0 {
		t.Fatalf("revealed question moved: %+v", snap)
	}

	snap, err := s.Advance()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if snap.Position != 1 || snap.RemainingSeconds != 5 {
		t.Fatalf("expected fresh budget on question 2, got %+v", snap)
	}
}

func TestUserCannotForgeTimeout(t *testing.T) {
	settings := ExerciseSettings{Kind: domain.ExerciseListening, Size: 2, TimeLimit: 5, Mode: domain.TimerPerQuestion}
	s, _, _ := newTestSession(t, settings, choiceItems(2))
	_, _ = s.Start()

	res, err := s.SubmitAnswer(domain.Answer{Choice: "meaning-1", TimedOut: true})
	if err != nil || res.TimedOut || !res.Correct {
		t.Fatalf("expected a normal correct answer, got %+v (%v)", res, err)
	}
}

func TestRestartResetsRoundAndTimer(t *testing.T) {
	settings := ExerciseSettings{Kind: domain.ExerciseListening, Size: 3, TimeLimit: 5, Mode: domain.TimerPerQuestion}
	s, sched, rec := newTestSession(t, settings, choiceItems(3))
	_, _ = s.Start()
	_, _ = s.SubmitAnswer(domain.Answer{Choice: "meaning-1"})
	_, _ = s.Advance()
	sched.Advance(2)

	snap, err := s.Restart()
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap.Position != 0 || snap.AnsweredCount != 0 || snap.CorrectCount != 0 || snap.RemainingSeconds != 5 {
		t.Fatalf("restart did not reset: %+v", snap)
	}
	if len(rec.finished) != 1 || rec.finished[0].Reason != domain.FinishAbandoned {
		t.Fatalf("expected the replaced round reported abandoned, got %+v", rec.finished)
	}

	sched.Advance(4)
	if snap := s.Snapshot(); snap.Phase != domain.PhaseAnswering || snap.RemainingSeconds != 1 {
		t.Fatalf("expected new budget counting, got %s %d", snap.Phase, snap.RemainingSeconds)
	}
	if sched.Active() != 1 {
		t.Fatalf("expected exactly one live timer, got %d", sched.Active())
	}
}

func TestCloseStopsTimersAndSubscribers(t *testing.T) {
	s, sched, rec := newTestSession(t, globalSettings(3, 60, 3), choiceItems(3))
	_, _ = s.Start()
	ch, cancel, err := s.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-ch // initial snapshot

	_, _ = s.SubmitAnswer(domain.Answer{Choice: "meaning-1"})
	s.Close()
	s.Close()

	if sched.Active() != 0 {
		t.Fatalf("closed session left %d timers", sched.Active())
	}
	sched.Advance(5)

	if len(rec.finished) != 1 || rec.finished[0].Reason != domain.FinishAbandoned {
		t.Fatalf("expected abandoned summary, got %+v", rec.finished)
	}
	if _, err := s.SubmitAnswer(domain.Answer{Choice: "x"}); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
	if _, err := s.Restart(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed error on restart, got %v", err)
	}

	for range ch {
	}
}

func TestSubscribeRacingClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		s, _, _ := newTestSession(t, globalSettings(3, 60, 3), choiceItems(3))
		if _, err := s.Start(); err != nil {
			t.Fatalf("start: %v", err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.Close()
		}()

		ch, cancel, err := s.Subscribe()
		if err != nil {
			if !errors.Is(err, domain.ErrSessionClosed) {
				t.Fatalf("unexpected subscribe error: %v", err)
			}
			<-done
			continue
		}
		if ev, ok := <-ch; !ok || ev.Type != domain.EventStarted {
			t.Fatalf("expected the initial event, got %+v (open=%v)", ev, ok)
		}
		<-done
		for range ch {
		}
		cancel()
	}
}

func TestSubscribeStreamsEvents(t *testing.T) {
	s, sched, _ := newTestSession(t, globalSettings(2, 60, 0), choiceItems(2))
	_, _ = s.Start()

	ch, cancel, err := s.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if ev := <-ch; ev.Type != domain.EventStarted || ev.Snapshot.Phase != domain.PhaseAnswering {
		t.Fatalf("unexpected initial event %+v", ev)
	}
	sched.Fire()
	if ev := <-ch; ev.Type != domain.EventTick || ev.Snapshot.RemainingSeconds != 59 {
		t.Fatalf("expected tick, got %+v", ev)
	}
	_, _ = s.SubmitAnswer(domain.Answer{Choice: "meaning-1"})
	if ev := <-ch; ev.Type != domain.EventAnswered || ev.Snapshot.CorrectCount != 1 {
		t.Fatalf("expected answered event, got %+v", ev)
	}
	_, _ = s.Advance()
	if ev := <-ch; ev.Type != domain.EventAdvanced || ev.Snapshot.Position != 1 {
		t.Fatalf("expected advanced event, got %+v", ev)
	}
}

func TestScoreBounds(t *testing.T) {
	cases := []struct{ correct, answered, want int }{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
	}
	for _, c := range cases {
		if got := score(c.correct, c.answered); got != c.want {
			t.Fatalf("score(%d, %d) = %d, want %d", c.correct, c.answered, got, c.want)
		}
	}
}
