package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds runtime configuration for the exam platform.
type App struct {
	Name string `env:"APP_NAME" envDefault:"exam-platform"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	Language string `env:"APP_LANGUAGE" envDefault:""` // fallback when nothing is persisted

	Questions Questions
	Exam      Exam
	Storage   Storage
}

// Questions locates the static question bank and its image assets.
type Questions struct {
	BankPath string `env:"QUESTION_BANK_PATH" envDefault:"pdd-v2.json"`
	ImageDir string `env:"QUESTION_IMAGE_DIR" envDefault:"images"`
}

// Exam groups exam policy constants.
type Exam struct {
	QuestionCount    int           `env:"EXAM_QUESTION_COUNT" envDefault:"30"`
	TimeLimit        time.Duration `env:"EXAM_TIME_LIMIT" envDefault:"30m"`
	PassMaxIncorrect int           `env:"EXAM_PASS_MAX_INCORRECT" envDefault:"3"`
	HistoryLimit     int           `env:"EXAM_HISTORY_LIMIT" envDefault:"10"`
}

// Storage selects the embedded database backing history and preferences.
type Storage struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DSN    string `env:"STORAGE_DSN"`
}

// Load parses environment variables into App config.
func Load() (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
