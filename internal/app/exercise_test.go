package app

import (
	"errors"
	"math/rand"
	"testing"

	"hanzi-quiz-service/internal/catalog"
	"hanzi-quiz-service/internal/domain"
)

func testSet(t *testing.T) *catalog.Set {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return catalog.NewSet(cat)
}

func TestWordMeaningUsesCatalogOptions(t *testing.T) {
	set := testSet(t)
	source, _, err := exerciseFor(domain.ExerciseWordMeaning, set, rand.New(rand.NewSource(1)), "", DefaultScoring())
	if err != nil {
		t.Fatalf("exercise: %v", err)
	}
	items, err := source.Sample(10)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	for _, it := range items {
		w, ok := set.Words.Get(it.ID)
		if !ok || it.Prompt != w.Character || it.CorrectAnswer != w.CorrectAnswer {
			t.Fatalf("item does not match word %d: %+v", it.ID, it)
		}
		if len(it.Options) != len(w.Options) || countOf(it.Options, w.CorrectAnswer) != 1 {
			t.Fatalf("expected catalog options, got %v", it.Options)
		}
	}
}

func TestReverseAndListeningOfferCharacters(t *testing.T) {
	set := testSet(t)
	for _, kind := range []domain.ExerciseKind{domain.ExerciseReverse, domain.ExerciseListening} {
		source, _, err := exerciseFor(kind, set, rand.New(rand.NewSource(2)), "", DefaultScoring())
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		items, _ := source.Sample(source.Len())
		for _, it := range items {
			w, _ := set.Words.Get(it.ID)
			if it.CorrectAnswer != w.Character {
				t.Fatalf("%s: expected character answer, got %q", kind, it.CorrectAnswer)
			}
			if len(it.Options) != catalog.OptionCount || countOf(it.Options, w.Character) != 1 {
				t.Fatalf("%s: bad options %v", kind, it.Options)
			}
			if kind == domain.ExerciseListening && it.Audio != w.Character {
				t.Fatalf("listening item should speak %q, got %q", w.Character, it.Audio)
			}
		}
	}
}

func TestLevelFilterNarrowsQuestionsOnly(t *testing.T) {
	set := testSet(t)
	source, _, err := exerciseFor(domain.ExerciseReverse, set, rand.New(rand.NewSource(3)), domain.LevelAdvanced, DefaultScoring())
	if err != nil {
		t.Fatalf("exercise: %v", err)
	}
	want := len(set.Words.FilterByLevel(domain.LevelAdvanced))
	if source.Len() != want {
		t.Fatalf("expected %d advanced words, got %d", want, source.Len())
	}
	items, _ := source.Sample(source.Len())
	for _, it := range items {
		if it.Level != domain.LevelAdvanced {
			t.Fatalf("level filter leaked %s", it.Level)
		}
		if len(it.Options) != catalog.OptionCount {
			t.Fatalf("distractors should come from the whole bank, got %v", it.Options)
		}
	}
}

func TestGeographyEvaluatorUsesDistance(t *testing.T) {
	eval := geographyEvaluator(DefaultScoring().Geo)
	item := domain.QuizItem{ID: 1, Level: domain.LevelBeginner, Target: &domain.Coordinate{Lng: 116.4074, Lat: 39.9042}}

	near, err := eval(item, domain.Answer{Point: &domain.Coordinate{Lng: 116.40, Lat: 39.90}})
	if err != nil || !near.Correct || near.DistanceKm == nil || *near.DistanceKm >= 1 {
		t.Fatalf("expected close click to be correct, got %+v (%v)", near, err)
	}
	if near.Points < 99 {
		t.Fatalf("expected near-perfect points, got %d", near.Points)
	}

	far, err := eval(item, domain.Answer{Point: &domain.Coordinate{Lng: 90.0, Lat: 29.6}})
	if err != nil || far.Correct || *far.DistanceKm < 200 || far.Points != 0 {
		t.Fatalf("expected far click to be incorrect, got %+v (%v)", far, err)
	}

	if _, err := eval(item, domain.Answer{Choice: "Beijing"}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected invalid answer without a point, got %v", err)
	}
}

func TestGeographyItemsCarryLabels(t *testing.T) {
	set := testSet(t)
	source, _, _ := exerciseFor(domain.ExerciseGeography, set, rand.New(rand.NewSource(4)), "", DefaultScoring())
	items, _ := source.Sample(source.Len())
	for _, it := range items {
		loc, _ := set.Locations.Get(it.ID)
		if it.Target == nil || *it.Target != loc.Coordinates {
			t.Fatalf("missing target for %s", loc.NameEn)
		}
		if it.Label(domain.LanguageEnglish) != loc.NameEn || it.Label(domain.LanguageVietnamese) != loc.NameVi {
			t.Fatalf("bad labels for %s: %v", loc.NameEn, it.Labels)
		}
	}
}

func TestWritingEvaluatorScoresBlankCanvas(t *testing.T) {
	eval := writingEvaluator(DefaultScoring().Writing)
	ev, err := eval(domain.QuizItem{Level: domain.LevelBeginner}, domain.Answer{})
	if err != nil || ev.Correct || ev.Points != 20 {
		t.Fatalf("expected failing 20 for blank canvas, got %+v (%v)", ev, err)
	}
}

func TestUnknownExercise(t *testing.T) {
	if _, _, err := exerciseFor("calligraphy", testSet(t), rand.New(rand.NewSource(1)), "", DefaultScoring()); !errors.Is(err, domain.ErrUnknownExercise) {
		t.Fatalf("expected unknown exercise, got %v", err)
	}
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}
