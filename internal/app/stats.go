package app

import (
	"math"
	"sync"
	"time"

	"hanzi-quiz-service/internal/domain"
)

// UserStats is the learning progress shown on the exercise selection screen.
type UserStats struct {
	UserID             string  `json:"userId"`
	ExercisesCompleted int     `json:"exercisesCompleted"`
	QuestionsAnswered  int     `json:"questionsAnswered"`
	CorrectAnswers     int     `json:"correctAnswers"`
	AccuracyRate       float64 `json:"accuracyRate"`
	LearningDays       int     `json:"learningDays"`
	WordsMastered      int     `json:"wordsMastered"`
}

type userProgress struct {
	completed int
	answered  int
	correct   int
	days      map[string]struct{}
	mastered  map[int]struct{}
}

// StatsAggregator keeps per-user progress in memory. It is an Observer.
type StatsAggregator struct {
	now func() time.Time

	mu    sync.Mutex
	users map[string]*userProgress
}

func NewStatsAggregator() *StatsAggregator {
	return newStatsAggregatorWithClock(time.Now)
}

func newStatsAggregatorWithClock(now func() time.Time) *StatsAggregator {
	return &StatsAggregator{now: now, users: make(map[string]*userProgress)}
}

func (a *StatsAggregator) progressLocked(userID string) *userProgress {
	p, ok := a.users[userID]
	if !ok {
		p = &userProgress{days: map[string]struct{}{}, mastered: map[int]struct{}{}}
		a.users[userID] = p
	}
	return p
}

func (a *StatsAggregator) SessionStarted(info domain.SessionInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.progressLocked(info.UserID)
	p.days[a.now().UTC().Format("2006-01-02")] = struct{}{}
}

func (a *StatsAggregator) AnswerRecorded(info domain.SessionInfo, result domain.AnswerResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.progressLocked(info.UserID)
	p.answered++
	if result.Correct {
		p.correct++
		if wordBased(info.Exercise) {
			p.mastered[result.ItemID] = struct{}{}
		}
	}
}

// SessionFinished counts completed and timed-out rounds; abandoned rounds are ignored.
func (a *StatsAggregator) SessionFinished(summary domain.SessionSummary) {
	if summary.Reason == domain.FinishAbandoned {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progressLocked(summary.UserID).completed++
}

// Stats returns a copy of the user's progress. Unknown users get zeroes.
func (a *StatsAggregator) Stats(userID string) UserStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := UserStats{UserID: userID}
	p, ok := a.users[userID]
	if !ok {
		return out
	}
	out.ExercisesCompleted = p.completed
	out.QuestionsAnswered = p.answered
	out.CorrectAnswers = p.correct
	out.LearningDays = len(p.days)
	out.WordsMastered = len(p.mastered)
	if p.answered > 0 {
		out.AccuracyRate = math.Round(float64(p.correct)/float64(p.answered)*1000) / 10
	}
	return out
}
