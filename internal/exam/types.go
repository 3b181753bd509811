package exam

import (
	"context"
	"errors"
	"time"

	"github.com/driveprep/exam-platform/internal/question"
	"github.com/driveprep/exam-platform/pkg/i18n"
)

// State identifies a screen in the session lifecycle.
type State string

const (
	StateHome          State = "home"
	StateInExam        State = "in_exam"
	StateResults       State = "results"
	StateReviewing     State = "reviewing"
	StateHistoryDetail State = "history_detail"
)

// Filter selects which questions a review walk shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCorrect   Filter = "correct"
	FilterIncorrect Filter = "incorrect"
)

// Valid reports whether f is a known review filter.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterCorrect, FilterIncorrect:
		return true
	}
	return false
}

var (
	// ErrAnswerRequired rejects forward navigation from an unanswered question.
	ErrAnswerRequired = errors.New("answer required before advancing")
	// ErrLanguageRequired rejects starting an exam without a display language.
	ErrLanguageRequired = errors.New("display language not selected")
	// ErrHistoryData marks a stored attempt whose snapshot can no longer be replayed.
	ErrHistoryData = errors.New("history entry cannot be replayed")
	// ErrInvalidIntent rejects an intent that does not apply to the current state.
	ErrInvalidIntent = errors.New("intent not valid in current state")
	// ErrInvalidSelection rejects an out-of-range option or question reference.
	ErrInvalidSelection = errors.New("selection out of range")
)

// QuestionBank is the repository surface the controller needs.
type QuestionBank interface {
	Count() int
	Sample(n int) []question.Question
	FindByID(id string) (question.Question, bool)
}

// PreferenceSaver persists user settings chosen on the home screen.
type PreferenceSaver interface {
	SetLanguage(ctx context.Context, lang i18n.Language) error
	SetTheme(ctx context.Context, theme string) error
}

// Clock abstracts wall time for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// TimerHandle stops a running tick source. Stop must be idempotent and safe
// to call when the timer already ended.
type TimerHandle interface {
	Stop()
}

// TimerFactory starts a repeating tick callback firing every interval until
// the returned handle is stopped.
type TimerFactory func(interval time.Duration, tick func()) TimerHandle

// Options configures exam policy and collaborator substitutes.
type Options struct {
	QuestionCount   int           // default 30
	TimeLimit       time.Duration // default 30m
	ImageDir        string        // default "images"
	InitialLanguage i18n.Language
	InitialTheme    string
	Clock           Clock        // default system clock
	Timers          TimerFactory // default goroutine ticker
}

func (o Options) withDefaults() Options {
	if o.QuestionCount <= 0 {
		o.QuestionCount = 30
	}
	if o.TimeLimit <= 0 {
		o.TimeLimit = 30 * time.Minute
	}
	if o.ImageDir == "" {
		o.ImageDir = "images"
	}
	if o.Clock == nil {
		o.Clock = systemClock{}
	}
	if o.Timers == nil {
		o.Timers = StartTicker
	}
	return o
}
