package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hanzi-quiz-service/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "REDIS_ADDR", "REDIS_DB", "POSTGRES_URL", "AUTH_SECRET"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Catalog.Name != "chinese" || len(cfg.Auth.Users) != 2 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Geography.Beginner != 200 || cfg.Writing.PassScore != 60 {
		t.Fatalf("unexpected scoring defaults %+v %+v", cfg.Geography, cfg.Writing)
	}
}

func TestLoadOverridesExercises(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9000"
quiz:
  exercises:
    listening:
      size: 5
      time_limit: 0
    word-meaning:
      timer_mode: per_question
      auto_advance: 0
geography:
  beginner: 250
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Geography.Beginner != 250 || cfg.Geography.Advanced != 100 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	ex, err := cfg.Exercises()
	if err != nil {
		t.Fatalf("exercises: %v", err)
	}
	if l := ex[domain.ExerciseListening]; l.Size != 5 || l.TimeLimit != 0 || l.Mode != domain.TimerPerQuestion {
		t.Fatalf("unexpected listening settings %+v", l)
	}
	if w := ex[domain.ExerciseWordMeaning]; w.Mode != domain.TimerPerQuestion || w.AutoAdvance != 0 || w.Size != 10 || w.TimeLimit != 60 {
		t.Fatalf("unexpected word-meaning settings %+v", w)
	}
	if g := ex[domain.ExerciseGeography]; g.TimeLimit != 45 {
		t.Fatalf("untouched exercise changed %+v", g)
	}
}

func TestLoadRejectsUnknownExercise(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "quiz:\n  exercises:\n    calligraphy:\n      size: 3\n")
	if _, err := Load(path); !errors.Is(err, domain.ErrUnknownExercise) {
		t.Fatalf("expected unknown exercise, got %v", err)
	}
	path = writeConfig(t, "quiz:\n  exercises:\n    reverse:\n      timer_mode: sometimes\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown timer mode")
	}
}

func TestEnvironmentWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("AUTH_SECRET", "s3cret")
	path := writeConfig(t, "server:\n  port: \"9000\"\nauth:\n  secret: file\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" || cfg.Redis.Addr != "redis:6379" || cfg.Auth.Secret != "s3cret" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
}
