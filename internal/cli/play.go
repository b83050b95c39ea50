package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hanzi-quiz-service/internal/app"
	"hanzi-quiz-service/internal/config"
	"hanzi-quiz-service/internal/domain"
	"hanzi-quiz-service/internal/i18n"
)

const playerID = "player"

type playOptions struct {
	Exercise domain.ExerciseKind
	Level    domain.Level
	Lang     domain.Language
}

// NewPlayCmd runs one exercise in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var exercise, level, lang string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play an exercise in the terminal",
		Long: "Play an exercise in the terminal. Type an option number (or lng,lat for the map\n" +
			"exercise) to answer, n for the next question, r to restart and q to quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			language, err := domain.ParseLanguage(lang)
			if err != nil {
				return err
			}
			translator, err := i18n.Load()
			if err != nil {
				return err
			}
			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.close()
			service, err := newService(cfg, b)
			if err != nil {
				return err
			}
			defer service.Shutdown()

			opts := playOptions{Exercise: domain.ExerciseKind(exercise), Level: domain.Level(level), Lang: language}
			return runPlay(cmd.Context(), service, translator, opts, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&exercise, "exercise", string(domain.ExerciseWordMeaning), "word-meaning, reverse, listening or geography")
	cmd.Flags().StringVar(&level, "level", "", "only ask beginner, intermediate or advanced items")
	cmd.Flags().StringVar(&lang, "lang", string(i18n.DefaultLanguage), "en, vi or zh")
	return cmd
}

// lockedWriter serialises output from the input loop and the event printer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

func runPlay(ctx context.Context, service *app.QuizService, tr *i18n.Translator, opts playOptions, in io.Reader, out io.Writer) error {
	if opts.Exercise == domain.ExerciseWriting {
		return fmt.Errorf("%s needs a drawing canvas and cannot be played in the terminal", opts.Exercise)
	}
	loc := tr.For(opts.Lang)
	w := &lockedWriter{w: out}

	snap, err := service.Start(ctx, playerID, opts.Exercise, app.StartOptions{Level: opts.Level})
	if err != nil {
		return err
	}
	events, cancel, err := service.Subscribe(ctx, playerID, snap.ID)
	if err != nil {
		return err
	}

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			printEvent(w, loc, ev)
		}
	}()

	quit := make(chan struct{})
	defer close(quit)
	lines := readLines(in, quit)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok || line == "q" {
				break loop
			}
			if err := handleInput(ctx, service, snap.ID, line); err != nil {
				w.printf("! %v\n", err)
			}
		}
	}

	err = service.End(context.Background(), playerID, snap.ID)
	<-printed
	cancel()
	return err
}

// readLines streams trimmed input lines until EOF or until quit is closed.
func readLines(in io.Reader, quit <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-quit:
				return
			}
		}
	}()
	return lines
}

func handleInput(ctx context.Context, service *app.QuizService, sessionID, line string) error {
	switch line {
	case "":
		return nil
	case "n":
		_, err := service.Advance(ctx, playerID, sessionID)
		return err
	case "r":
		_, err := service.Restart(ctx, playerID, sessionID)
		return err
	}

	current, err := service.Snapshot(ctx, playerID, sessionID)
	if err != nil {
		return err
	}
	if current.Item == nil {
		return domain.ErrInvalidPhase
	}
	answer, err := parseAnswer(*current.Item, line)
	if err != nil {
		return err
	}
	_, err = service.Submit(ctx, playerID, sessionID, answer)
	return err
}

// parseAnswer reads an option number, or "lng,lat" for map questions.
func parseAnswer(item domain.QuizItem, line string) (domain.Answer, error) {
	if item.Target != nil || len(item.Options) == 0 {
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return domain.Answer{}, fmt.Errorf("expected lng,lat: %w", domain.ErrInvalidAnswer)
		}
		lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return domain.Answer{}, fmt.Errorf("expected lng,lat: %w", domain.ErrInvalidAnswer)
		}
		return domain.Answer{Point: &domain.Coordinate{Lng: lng, Lat: lat}}, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(item.Options) {
		return domain.Answer{}, fmt.Errorf("pick 1-%d: %w", len(item.Options), domain.ErrInvalidAnswer)
	}
	return domain.Answer{Choice: item.Options[n-1]}, nil
}

func printEvent(w *lockedWriter, loc i18n.Localizer, ev domain.SessionEvent) {
	snap := ev.Snapshot
	switch ev.Type {
	case domain.EventStarted, domain.EventRestarted, domain.EventAdvanced:
		if snap.Phase == domain.PhaseAnswering {
			printQuestion(w, loc, snap)
		}
	case domain.EventTick:
		if r := snap.RemainingSeconds; r <= 5 || r%10 == 0 {
			w.printf("  %s: %ds\n", loc.T("timeLeft"), r)
		}
	case domain.EventAnswered:
		printResult(w, loc, snap.LastResult)
	case domain.EventCountdown:
		w.printf("  %s\n", loc.T("nextQuestionIn", "seconds", snap.Countdown))
	case domain.EventFinished:
		if snap.FinishReason == domain.FinishTimeUp {
			w.printf("%s\n", loc.T("timeUp"))
		}
		w.printf("\n%s\n%s\n%s: %d\n", loc.T("exerciseComplete"),
			loc.T("quizSummary", "total", snap.AnsweredCount, "correct", snap.CorrectCount),
			loc.T("finalScore"), snap.Score)
	}
}

func printQuestion(w *lockedWriter, loc i18n.Localizer, snap domain.SessionSnapshot) {
	item := snap.Item
	if item == nil {
		return
	}
	w.printf("\n%s\n", loc.T("questionProgress", "current", snap.Position+1, "total", snap.Total))
	switch snap.Exercise {
	case domain.ExerciseWordMeaning:
		w.printf("%s  %s (%s)\n", loc.T("selectEnglishMeaning"), item.Prompt, item.Hint)
	case domain.ExerciseReverse:
		w.printf("%s  %s\n", loc.T("selectChineseTranslation"), item.Prompt)
	case domain.ExerciseListening:
		w.printf("%s  [%s]\n", loc.T("selectCorrectCharacter"), item.Prompt)
	case domain.ExerciseGeography:
		w.printf("%s  lng,lat\n", item.Label(loc.Language()))
	}
	for i, opt := range item.Options {
		w.printf("  %d) %s\n", i+1, opt)
	}
}

func printResult(w *lockedWriter, loc i18n.Localizer, res *domain.AnswerResult) {
	if res == nil {
		return
	}
	switch {
	case res.Correct:
		w.printf("  %s\n", loc.T("correctFeedback"))
	case res.TimedOut:
		w.printf("  %s %s\n", loc.T("timeUp"), loc.T("incorrectFeedback", "answer", res.CorrectAnswer))
	default:
		w.printf("  %s\n", loc.T("incorrectFeedback", "answer", res.CorrectAnswer))
	}
	if res.DistanceKm != nil {
		w.printf("  %s\n", loc.T("distanceAway", "distance", fmt.Sprintf("%.0f", *res.DistanceKm)))
	}
}
