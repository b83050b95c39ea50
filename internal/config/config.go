package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"hanzi-quiz-service/internal/app"
	"hanzi-quiz-service/internal/auth"
	"hanzi-quiz-service/internal/catalog"
	"hanzi-quiz-service/internal/domain"
	"hanzi-quiz-service/internal/geo"
	"hanzi-quiz-service/internal/writing"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		Name string `yaml:"name"`
		TTL  string `yaml:"ttl"`
	} `yaml:"catalog"`
	Auth struct {
		Secret   string            `yaml:"secret"`
		TokenTTL string            `yaml:"token_ttl"`
		Users    []auth.Credential `yaml:"users"`
	} `yaml:"auth"`
	Quiz struct {
		Exercises map[string]ExerciseConfig `yaml:"exercises"`
	} `yaml:"quiz"`
	Geography geo.Thresholds `yaml:"geography"`
	Writing   writing.Scorer `yaml:"writing"`
}

// ExerciseConfig overrides one built-in exercise. Unset fields keep their defaults;
// pointers distinguish an explicit zero (timer or countdown off) from absence.
type ExerciseConfig struct {
	Size        int    `yaml:"size"`
	TimeLimit   *int   `yaml:"time_limit"`
	TimerMode   string `yaml:"timer_mode"`
	AutoAdvance *int   `yaml:"auto_advance"`
}

const defaultSecret = "change-me"

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads YAML config from path. A missing file yields the defaults.
// Environment variables PORT, REDIS_ADDR, POSTGRES_URL and AUTH_SECRET win over the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if _, err := cfg.Exercises(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Catalog.Name == "" {
		cfg.Catalog.Name = catalog.DefaultName
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = defaultSecret
	}
	if len(cfg.Auth.Users) == 0 {
		cfg.Auth.Users = auth.DefaultCredentials()
	}

	geoDefaults := geo.DefaultThresholds()
	if cfg.Geography.Beginner <= 0 {
		cfg.Geography.Beginner = geoDefaults.Beginner
	}
	if cfg.Geography.Intermediate <= 0 {
		cfg.Geography.Intermediate = geoDefaults.Intermediate
	}
	if cfg.Geography.Advanced <= 0 {
		cfg.Geography.Advanced = geoDefaults.Advanced
	}

	scorer := writing.DefaultScorer()
	if cfg.Writing.Size <= 0 {
		cfg.Writing.Size = scorer.Size
	}
	if cfg.Writing.LineWidth <= 0 {
		cfg.Writing.LineWidth = scorer.LineWidth
	}
	if cfg.Writing.MinPixels <= 0 {
		cfg.Writing.MinPixels = scorer.MinPixels
	}
	if cfg.Writing.MaxPixels <= cfg.Writing.MinPixels {
		cfg.Writing.MaxPixels = scorer.MaxPixels
	}
	if cfg.Writing.PassScore <= 0 {
		cfg.Writing.PassScore = scorer.PassScore
	}
}

// Exercises merges the configured overrides into the built-in exercise table.
func (c Config) Exercises() (map[domain.ExerciseKind]app.ExerciseSettings, error) {
	out := app.DefaultExercises()
	for name, override := range c.Quiz.Exercises {
		kind := domain.ExerciseKind(name)
		settings, ok := out[kind]
		if !ok {
			return nil, fmt.Errorf("quiz.exercises.%s: %w", name, domain.ErrUnknownExercise)
		}
		if override.Size > 0 {
			settings.Size = override.Size
		}
		if override.TimeLimit != nil {
			settings.TimeLimit = *override.TimeLimit
		}
		if override.AutoAdvance != nil {
			settings.AutoAdvance = *override.AutoAdvance
		}
		switch mode := domain.TimerMode(override.TimerMode); mode {
		case "":
		case domain.TimerGlobal, domain.TimerPerQuestion:
			settings.Mode = mode
		default:
			return nil, fmt.Errorf("quiz.exercises.%s: unknown timer mode %q", name, override.TimerMode)
		}
		out[kind] = settings
	}
	return out, nil
}

// Scoring returns the geography and writing grading parameters.
func (c Config) Scoring() app.Scoring {
	return app.Scoring{Geo: c.Geography, Writing: c.Writing}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
