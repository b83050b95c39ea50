package domain

import (
	"fmt"
	"time"
)

// Level grades catalog entries. Easier levels get more lenient scoring.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Language is a UI language code.
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageVietnamese Language = "vi"
	LanguageChinese    Language = "zh"
)

// ExerciseKind names a quiz variant.
type ExerciseKind string

const (
	ExerciseWordMeaning ExerciseKind = "word-meaning"
	ExerciseReverse     ExerciseKind = "reverse"
	ExerciseListening   ExerciseKind = "listening"
	ExerciseWriting     ExerciseKind = "writing"
	ExerciseGeography   ExerciseKind = "geography"
)

// TimerMode selects how a session counts down.
type TimerMode string

const (
	// TimerGlobal runs one countdown for the whole round; expiry finishes the session.
	TimerGlobal TimerMode = "global"
	// TimerPerQuestion re-arms on every question; expiry reveals the question as unanswered.
	TimerPerQuestion TimerMode = "per_question"
)

// Phase is the step of a session's state machine.
type Phase string

const (
	PhaseAnswering Phase = "answering"
	PhaseRevealed  Phase = "revealed"
	PhaseFinished  Phase = "finished"
)

// FinishReason records why a session reached PhaseFinished.
type FinishReason string

const (
	FinishCompleted FinishReason = "completed"
	FinishTimeUp    FinishReason = "time_up"
	FinishAbandoned FinishReason = "abandoned"
)

// Coordinate is a longitude/latitude pair in degrees.
type Coordinate struct {
	Lng float64 `json:"lng" yaml:"lng"`
	Lat float64 `json:"lat" yaml:"lat"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lng, c.Lat)
}

// Point is a canvas position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one pen-down polyline on the writing canvas.
type Stroke []Point

// Word is a vocabulary entry.
type Word struct {
	ID            int      `json:"id" yaml:"id"`
	Character     string   `json:"character" yaml:"character"`
	Pinyin        string   `json:"pinyin" yaml:"pinyin"`
	CorrectAnswer string   `json:"correctAnswer" yaml:"correct_answer"`
	Options       []string `json:"options" yaml:"options"`
	Level         Level    `json:"level" yaml:"level"`
}

func (w Word) EntryID() int      { return w.ID }
func (w Word) EntryLevel() Level { return w.Level }

// Location is a place on the China map.
type Location struct {
	ID          int        `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	NameEn      string     `json:"nameEn" yaml:"name_en"`
	NameVi      string     `json:"nameVi" yaml:"name_vi"`
	Type        string     `json:"type" yaml:"type"`
	Coordinates Coordinate `json:"coordinates" yaml:"coordinates"`
	Level       Level      `json:"level" yaml:"level"`
}

func (l Location) EntryID() int      { return l.ID }
func (l Location) EntryLevel() Level { return l.Level }

// Character is a writing practice entry.
type Character struct {
	ID        int    `json:"id" yaml:"id"`
	Character string `json:"character" yaml:"character"`
	Pinyin    string `json:"pinyin" yaml:"pinyin"`
	Meaning   string `json:"meaning" yaml:"meaning"`
	Strokes   int    `json:"strokes" yaml:"strokes"`
	Level     Level  `json:"level" yaml:"level"`
}

func (c Character) EntryID() int      { return c.ID }
func (c Character) EntryLevel() Level { return c.Level }

// Catalog is the full static dataset a quiz draws from.
type Catalog struct {
	Name       string      `json:"name" yaml:"name"`
	Words      []Word      `json:"words" yaml:"words"`
	Locations  []Location  `json:"locations" yaml:"locations"`
	Characters []Character `json:"characters" yaml:"characters"`
}

// QuizItem is one question/answer unit presented to the user.
type QuizItem struct {
	ID            int                 `json:"id"`
	Prompt        string              `json:"prompt"`
	Hint          string              `json:"hint,omitempty"`
	Meaning       string              `json:"meaning,omitempty"`
	Audio         string              `json:"audio,omitempty"`
	CorrectAnswer string              `json:"correctAnswer,omitempty"`
	Options       []string            `json:"options,omitempty"`
	Level         Level               `json:"level"`
	Target        *Coordinate         `json:"target,omitempty"`
	Strokes       int                 `json:"strokes,omitempty"`
	Labels        map[Language]string `json:"labels,omitempty"`
}

// Label returns the prompt localised for lang, falling back to Prompt.
func (q QuizItem) Label(lang Language) string {
	if l, ok := q.Labels[lang]; ok && l != "" {
		return l
	}
	return q.Prompt
}

// Answer is a user's input for one question. Exactly one of Choice, Point or
// Strokes is meaningful, depending on the exercise.
type Answer struct {
	Choice   string      `json:"choice,omitempty"`
	Point    *Coordinate `json:"point,omitempty"`
	Strokes  []Stroke    `json:"strokes,omitempty"`
	TimedOut bool        `json:"timedOut,omitempty"`
}

// Display renders the answer for the revealed view.
func (a Answer) Display() string {
	switch {
	case a.TimedOut:
		return ""
	case a.Point != nil:
		return a.Point.String()
	case len(a.Strokes) > 0:
		return fmt.Sprintf("%d strokes", len(a.Strokes))
	}
	return a.Choice
}

// Evaluation is the verdict of an exercise's correctness strategy.
type Evaluation struct {
	Correct    bool
	Points     int // 0-100
	DistanceKm *float64
}

// AnswerResult summarizes the outcome of one submission.
type AnswerResult struct {
	Position      int          `json:"position"`
	ItemID        int          `json:"itemId"`
	Selected      string       `json:"selected"`
	CorrectAnswer string       `json:"correctAnswer"`
	Correct       bool         `json:"correct"`
	TimedOut      bool         `json:"timedOut"`
	Points        int          `json:"points"`
	DistanceKm    *float64     `json:"distanceKm,omitempty"`
	Exercise      ExerciseKind `json:"exercise"`
}

// SessionInfo identifies a session to observers.
type SessionInfo struct {
	ID       string       `json:"id"`
	UserID   string       `json:"userId"`
	Exercise ExerciseKind `json:"exercise"`
}

// SessionSnapshot is a read-only view of a session.
type SessionSnapshot struct {
	SessionInfo
	Phase            Phase         `json:"phase"`
	Position         int           `json:"position"`
	Total            int           `json:"total"`
	Item             *QuizItem     `json:"item,omitempty"`
	SelectedAnswer   string        `json:"selectedAnswer,omitempty"`
	LastResult       *AnswerResult `json:"lastResult,omitempty"`
	CorrectCount     int           `json:"correctCount"`
	AnsweredCount    int           `json:"answeredCount"`
	Points           int           `json:"points"`
	Score            int           `json:"score"`
	TimerMode        TimerMode     `json:"timerMode"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Countdown        int           `json:"countdown,omitempty"`
	FinishReason     FinishReason  `json:"finishReason,omitempty"`
	StartedAt        time.Time     `json:"startedAt"`
}

// SessionSummary is reported to observers when a session ends.
type SessionSummary struct {
	SessionInfo
	Reason         FinishReason `json:"reason"`
	Total          int          `json:"total"`
	Answered       int          `json:"answered"`
	Correct        int          `json:"correct"`
	Points         int          `json:"points"`
	Score          int          `json:"score"`
	CorrectItemIDs []int        `json:"correctItemIds"`
	StartedAt      time.Time    `json:"startedAt"`
	FinishedAt     time.Time    `json:"finishedAt"`
}

// EventType names a session event.
type EventType string

const (
	EventStarted   EventType = "started"
	EventRestarted EventType = "restarted"
	EventTick      EventType = "tick"
	EventAnswered  EventType = "answered"
	EventCountdown EventType = "countdown"
	EventAdvanced  EventType = "advanced"
	EventFinished  EventType = "finished"
)

// SessionEvent is pushed to session subscribers on every state change.
type SessionEvent struct {
	Type     EventType       `json:"type"`
	Snapshot SessionSnapshot `json:"snapshot"`
}
