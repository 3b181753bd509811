package exam

import (
	"time"

	"github.com/driveprep/exam-platform/pkg/i18n"
)

// View models emitted to the display sink. All localized text arrives here
// already resolved; the sink owns presentation only.

// StatsView aggregates lifetime pass/fail counts for the home screen.
type StatsView struct {
	Total  int
	Passed int
	Failed int
}

// HistoryItemView is one row of the home screen's attempt list.
type HistoryItemView struct {
	Index     int
	Taken     time.Time
	Language  string
	Correct   int
	Incorrect int
	Score     int
	Passed    bool
	Elapsed   time.Duration
}

// HomeView is the home screen model.
type HomeView struct {
	Language        i18n.Language
	LanguageName    string
	Theme           string
	QuestionsLoaded int
	CanStart        bool
	Stats           StatsView
	History         []HistoryItemView
}

// OptionView is one selectable answer with resolved text.
type OptionView struct {
	Ordinal  int
	Text     string
	Selected bool
}

// QuestionView is the in-exam screen model.
type QuestionView struct {
	Index         int // zero-based cursor
	Total         int
	QuestionID    string
	Prompt        string
	ImagePath     string // empty when the question carries no image
	Options       []OptionView
	AnsweredCount int
	PrevEnabled   bool
	IsFinal       bool // forward navigation submits here
	Remaining     time.Duration
}

// ResultView summarizes a just-finished exam.
type ResultView struct {
	Correct   int
	Incorrect int
	Score     int
	Passed    bool
	Elapsed   time.Duration
	TimedOut  bool
}

// ReviewView is one question in a review or history replay walk.
type ReviewView struct {
	Index         int
	Total         int
	Filter        Filter
	QuestionID    string
	Prompt        string
	ImagePath     string
	Answered      bool
	YourAnswer    string
	Correct       bool
	CorrectAnswer string // empty when the selection already was the correct option
	Explanation   string
}

// HistoryDetailView replays one stored attempt, read-only.
type HistoryDetailView struct {
	Entry HistoryItemView
	Item  ReviewView
}

// Sink receives view models and notices from the session controller and
// supplies the exit confirmation prompt. Implementations own all rendering.
type Sink interface {
	ShowHome(HomeView)
	ShowQuestion(QuestionView)
	Countdown(remaining time.Duration)
	ShowResults(ResultView)
	ShowReview(ReviewView)
	ShowHistoryDetail(HistoryDetailView)
	Notify(code, message string)
	ConfirmExit(prompt string) bool
}
