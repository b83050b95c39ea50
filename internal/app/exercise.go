package app

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"hanzi-quiz-service/internal/catalog"
	"hanzi-quiz-service/internal/domain"
	"hanzi-quiz-service/internal/geo"
	"hanzi-quiz-service/internal/writing"
)

// ExerciseSettings configures one exercise kind.
type ExerciseSettings struct {
	Kind domain.ExerciseKind
	// Size is the number of questions drawn per round; it is clamped to the catalog.
	Size int
	// TimeLimit is the countdown budget in seconds. Zero disables the timer.
	TimeLimit int
	Mode      domain.TimerMode
	// AutoAdvance is the reveal countdown in seconds. Zero waits for Advance.
	AutoAdvance int
}

// DefaultExercises returns the built-in exercise table.
func DefaultExercises() map[domain.ExerciseKind]ExerciseSettings {
	return map[domain.ExerciseKind]ExerciseSettings{
		domain.ExerciseWordMeaning: {Kind: domain.ExerciseWordMeaning, Size: 10, TimeLimit: 60, Mode: domain.TimerGlobal, AutoAdvance: 3},
		domain.ExerciseReverse:     {Kind: domain.ExerciseReverse, Size: 10, TimeLimit: 60, Mode: domain.TimerGlobal, AutoAdvance: 3},
		domain.ExerciseListening:   {Kind: domain.ExerciseListening, Size: 10, TimeLimit: 30, Mode: domain.TimerPerQuestion},
		domain.ExerciseWriting:     {Kind: domain.ExerciseWriting, Size: 5, TimeLimit: 60, Mode: domain.TimerPerQuestion},
		domain.ExerciseGeography:   {Kind: domain.ExerciseGeography, Size: 10, TimeLimit: 45, Mode: domain.TimerPerQuestion},
	}
}

// SortedKinds returns the configured kinds in a stable order.
func SortedKinds(exercises map[domain.ExerciseKind]ExerciseSettings) []domain.ExerciseKind {
	kinds := make([]domain.ExerciseKind, 0, len(exercises))
	for k := range exercises {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// wordBased reports whether an exercise draws from the vocabulary bank.
func wordBased(kind domain.ExerciseKind) bool {
	switch kind {
	case domain.ExerciseWordMeaning, domain.ExerciseReverse, domain.ExerciseListening:
		return true
	}
	return false
}

// ItemSource draws the questions for one round.
type ItemSource interface {
	Len() int
	Sample(n int) ([]domain.QuizItem, error)
}

// Evaluator decides whether an answer is correct for an item.
type Evaluator func(item domain.QuizItem, answer domain.Answer) (domain.Evaluation, error)

type bankSource[T catalog.Entry] struct {
	rnd   *rand.Rand
	pool  *catalog.Bank[T]
	build func(rnd *rand.Rand, entry T) domain.QuizItem
}

func newBankSource[T catalog.Entry](rnd *rand.Rand, bank *catalog.Bank[T], level domain.Level, build func(*rand.Rand, T) domain.QuizItem) *bankSource[T] {
	pool := bank
	if level != "" {
		pool = catalog.NewBank(bank.FilterByLevel(level))
	}
	return &bankSource[T]{rnd: rnd, pool: pool, build: build}
}

func (b *bankSource[T]) Len() int {
	return b.pool.Len()
}

func (b *bankSource[T]) Sample(n int) ([]domain.QuizItem, error) {
	entries, err := b.pool.Sample(b.rnd, n)
	if err != nil {
		return nil, err
	}
	items := make([]domain.QuizItem, len(entries))
	for i, e := range entries {
		items[i] = b.build(b.rnd, e)
	}
	return items, nil
}

// Scoring bundles the tunables used by evaluators.
type Scoring struct {
	Geo     geo.Thresholds
	Writing writing.Scorer
}

func DefaultScoring() Scoring {
	return Scoring{Geo: geo.DefaultThresholds(), Writing: writing.DefaultScorer()}
}

// exerciseFor builds the item source and evaluator of kind over set. Options
// and distractors always come from the whole bank, even when level narrows
// the questions.
func exerciseFor(kind domain.ExerciseKind, set *catalog.Set, rnd *rand.Rand, level domain.Level, scoring Scoring) (ItemSource, Evaluator, error) {
	switch kind {
	case domain.ExerciseWordMeaning:
		return newBankSource(rnd, set.Words, level, func(rnd *rand.Rand, w domain.Word) domain.QuizItem {
			return domain.QuizItem{
				ID:            w.ID,
				Prompt:        w.Character,
				Hint:          w.Pinyin,
				Meaning:       w.CorrectAnswer,
				CorrectAnswer: w.CorrectAnswer,
				Options:       catalog.Shuffle(rnd, w.Options),
				Level:         w.Level,
			}
		}), evaluateChoice, nil

	case domain.ExerciseReverse:
		return newBankSource(rnd, set.Words, level, func(rnd *rand.Rand, w domain.Word) domain.QuizItem {
			return domain.QuizItem{
				ID:            w.ID,
				Prompt:        w.CorrectAnswer,
				Meaning:       w.Pinyin,
				CorrectAnswer: w.Character,
				Options:       catalog.Options(rnd, w, set.Words.Others(w.ID), wordCharacter),
				Level:         w.Level,
			}
		}), evaluateChoice, nil

	case domain.ExerciseListening:
		return newBankSource(rnd, set.Words, level, func(rnd *rand.Rand, w domain.Word) domain.QuizItem {
			return domain.QuizItem{
				ID:            w.ID,
				Prompt:        w.Pinyin,
				Audio:         w.Character,
				Meaning:       w.CorrectAnswer,
				CorrectAnswer: w.Character,
				Options:       catalog.Options(rnd, w, set.Words.Others(w.ID), wordCharacter),
				Level:         w.Level,
			}
		}), evaluateChoice, nil

	case domain.ExerciseWriting:
		return newBankSource(rnd, set.Characters, level, func(_ *rand.Rand, c domain.Character) domain.QuizItem {
			return domain.QuizItem{
				ID:            c.ID,
				Prompt:        c.Character,
				Hint:          c.Pinyin,
				Meaning:       c.Meaning,
				CorrectAnswer: c.Character,
				Strokes:       c.Strokes,
				Level:         c.Level,
			}
		}), writingEvaluator(scoring.Writing), nil

	case domain.ExerciseGeography:
		return newBankSource(rnd, set.Locations, level, func(_ *rand.Rand, l domain.Location) domain.QuizItem {
			target := l.Coordinates
			return domain.QuizItem{
				ID:            l.ID,
				Prompt:        l.Name,
				Hint:          l.Type,
				CorrectAnswer: target.String(),
				Target:        &target,
				Level:         l.Level,
				Labels: map[domain.Language]string{
					domain.LanguageEnglish:    l.NameEn,
					domain.LanguageVietnamese: l.NameVi,
					domain.LanguageChinese:    l.Name,
				},
			}
		}), geographyEvaluator(scoring.Geo), nil
	}
	return nil, nil, fmt.Errorf("%s: %w", kind, domain.ErrUnknownExercise)
}

func wordCharacter(w domain.Word) string { return w.Character }

func evaluateChoice(item domain.QuizItem, answer domain.Answer) (domain.Evaluation, error) {
	if answer.Choice == "" {
		return domain.Evaluation{}, fmt.Errorf("choice is required: %w", domain.ErrInvalidAnswer)
	}
	if answer.Choice != item.CorrectAnswer {
		return domain.Evaluation{}, nil
	}
	return domain.Evaluation{Correct: true, Points: 100}, nil
}

func writingEvaluator(scorer writing.Scorer) Evaluator {
	return func(item domain.QuizItem, answer domain.Answer) (domain.Evaluation, error) {
		return scorer.Evaluate(answer.Strokes, item.Level), nil
	}
}

// geographyEvaluator awards 50-100 points inside the level radius, scaled by
// how close the guess landed.
func geographyEvaluator(th geo.Thresholds) Evaluator {
	return func(item domain.QuizItem, answer domain.Answer) (domain.Evaluation, error) {
		if answer.Point == nil {
			return domain.Evaluation{}, fmt.Errorf("map point is required: %w", domain.ErrInvalidAnswer)
		}
		if item.Target == nil {
			return domain.Evaluation{}, fmt.Errorf("item %d has no target: %w", item.ID, domain.ErrInvalidAnswer)
		}
		ok, d := th.Within(*item.Target, *answer.Point, item.Level)
		ev := domain.Evaluation{Correct: ok, DistanceKm: &d}
		if ok {
			radius := th.For(item.Level)
			ev.Points = 100
			if radius > 0 {
				ev.Points = 100 - int(math.Round(d/radius*50))
			}
		}
		return ev, nil
	}
}
