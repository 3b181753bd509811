package exam

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveprep/exam-platform/internal/exam/scoring"
	"github.com/driveprep/exam-platform/internal/history"
	"github.com/driveprep/exam-platform/internal/question"
	"github.com/driveprep/exam-platform/pkg/i18n"
)

type recordingSink struct {
	homes      []HomeView
	questions  []QuestionView
	results    []ResultView
	reviews    []ReviewView
	details    []HistoryDetailView
	notices    []string
	countdowns []time.Duration
	confirm    bool
	onConfirm  func() // runs while the exit prompt is open
}

func (s *recordingSink) ShowHome(v HomeView)                  { s.homes = append(s.homes, v) }
func (s *recordingSink) ShowQuestion(v QuestionView)          { s.questions = append(s.questions, v) }
func (s *recordingSink) Countdown(r time.Duration)            { s.countdowns = append(s.countdowns, r) }
func (s *recordingSink) ShowResults(v ResultView)             { s.results = append(s.results, v) }
func (s *recordingSink) ShowReview(v ReviewView)              { s.reviews = append(s.reviews, v) }
func (s *recordingSink) ShowHistoryDetail(v HistoryDetailView) { s.details = append(s.details, v) }
func (s *recordingSink) Notify(code, _ string)                { s.notices = append(s.notices, code) }
func (s *recordingSink) ConfirmExit(string) bool {
	if s.onConfirm != nil {
		s.onConfirm()
	}
	return s.confirm
}

func (s *recordingSink) hasNotice(code string) bool {
	for _, n := range s.notices {
		if n == code {
			return true
		}
	}
	return false
}

type stubPrefs struct {
	lang  i18n.Language
	theme string
	err   error
}

func (p *stubPrefs) SetLanguage(_ context.Context, l i18n.Language) error {
	p.lang = l
	return p.err
}

func (p *stubPrefs) SetTheme(_ context.Context, theme string) error {
	p.theme = theme
	return p.err
}

type memKV struct {
	data map[string][]byte
}

func (s *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memKV) Set(_ context.Context, key string, value []byte) error {
	s.data[key] = value
	return nil
}

func (s *memKV) Delete(_ context.Context, key string) error {
	delete(s.data, key)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeTimer struct{ stops int }

func (f *fakeTimer) Stop() { f.stops++ }

// bankQuestions builds a bank whose correct option is always ordinal 1.
func bankQuestions(n int) []question.Question {
	qs := make([]question.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, question.Question{
			ID:       fmt.Sprintf("q%03d", i),
			Prompt:   i18n.Text{i18n.English: fmt.Sprintf("prompt %d", i)},
			HasImage: i%3 == 0,
			Options: []question.Option{
				{Text: i18n.Text{i18n.English: "wrong"}},
				{Text: i18n.Text{i18n.English: "right"}, Correct: true},
				{Text: i18n.Text{i18n.English: "also wrong"}},
			},
			Rule: i18n.Text{i18n.English: "because"},
		})
	}
	return qs
}

type fixture struct {
	ctrl  *Controller
	sink  *recordingSink
	store *history.Store
	prefs *stubPrefs
	timer *fakeTimer
}

func newFixture(t *testing.T, bankSize int, opts Options) *fixture {
	t.Helper()

	sink := &recordingSink{confirm: true}
	store := history.NewStore(&memKV{data: map[string][]byte{}}, 10, zerolog.Nop())
	repo := question.NewRepository(bankQuestions(bankSize), zerolog.Nop())
	engine := scoring.NewEngine(scoring.DefaultConfig())
	pr := &stubPrefs{}
	timer := &fakeTimer{}

	if opts.Timers == nil {
		opts.Timers = func(time.Duration, func()) TimerHandle { return timer }
	}
	if opts.Clock == nil {
		opts.Clock = fixedClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	}

	ctrl := NewController(repo, engine, store, pr, sink, opts, zerolog.Nop())
	return &fixture{ctrl: ctrl, sink: sink, store: store, prefs: pr, timer: timer}
}

func englishFixture(t *testing.T) *fixture {
	return newFixture(t, 40, Options{InitialLanguage: i18n.English})
}

func (f *fixture) currentQuestion(t *testing.T) QuestionView {
	t.Helper()
	require.NotEmpty(t, f.sink.questions)
	return f.sink.questions[len(f.sink.questions)-1]
}

func (f *fixture) answerCurrent(t *testing.T, ordinal int) {
	t.Helper()
	q := f.currentQuestion(t)
	require.NoError(t, f.ctrl.SelectAnswer(context.Background(), q.QuestionID, ordinal))
}

// completeExam answers every question (ordinal 1 for the first correct ones,
// 0 for the rest) and submits via next on the final question.
func (f *fixture) completeExam(t *testing.T, correct int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	total := f.currentQuestion(t).Total
	for i := 0; i < total; i++ {
		ordinal := 0
		if i < correct {
			ordinal = 1
		}
		f.answerCurrent(t, ordinal)
		require.NoError(t, f.ctrl.Next(ctx))
	}
	require.Equal(t, StateResults, f.ctrl.State())
}

func TestStartRequiresLanguage(t *testing.T) {
	f := newFixture(t, 40, Options{})

	err := f.ctrl.Start(context.Background())
	assert.ErrorIs(t, err, ErrLanguageRequired)
	assert.Equal(t, StateHome, f.ctrl.State())
	assert.True(t, f.sink.hasNotice(NoticeLanguageRequired))
}

func TestStartRequiresLoadedBank(t *testing.T) {
	f := newFixture(t, 0, Options{InitialLanguage: i18n.English})

	err := f.ctrl.Start(context.Background())
	assert.ErrorIs(t, err, question.ErrDataUnavailable)
	assert.Equal(t, StateHome, f.ctrl.State())
	assert.True(t, f.sink.hasNotice(NoticeDataUnavailable))
}

func TestStartSamplesConfiguredCount(t *testing.T) {
	f := englishFixture(t)
	require.NoError(t, f.ctrl.Start(context.Background()))

	assert.Equal(t, StateInExam, f.ctrl.State())
	q := f.currentQuestion(t)
	assert.Equal(t, 30, q.Total)
	assert.Equal(t, 0, q.Index)
	assert.False(t, q.PrevEnabled)
	assert.Equal(t, 30*time.Minute, q.Remaining)
}

func TestSelectLanguagePersists(t *testing.T) {
	f := newFixture(t, 40, Options{})
	ctx := context.Background()

	require.NoError(t, f.ctrl.SelectLanguage(ctx, i18n.Russian))
	assert.Equal(t, i18n.Russian, f.prefs.lang)

	err := f.ctrl.SelectLanguage(ctx, i18n.Language("X"))
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.True(t, f.sink.hasNotice(NoticeLanguageUnsupported))
}

func TestSetThemePersists(t *testing.T) {
	f := newFixture(t, 40, Options{})
	require.NoError(t, f.ctrl.SetTheme(context.Background(), "dark"))
	assert.Equal(t, "dark", f.prefs.theme)
}

func TestNextIsAnswerGated(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	err := f.ctrl.Next(ctx)
	assert.ErrorIs(t, err, ErrAnswerRequired)
	assert.Equal(t, 0, f.currentQuestion(t).Index, "cursor must not move")
	assert.True(t, f.sink.hasNotice(NoticeAnswerRequired))

	f.answerCurrent(t, 1)
	require.NoError(t, f.ctrl.Next(ctx))
	assert.Equal(t, 1, f.currentQuestion(t).Index)
}

func TestPreviousAlwaysAllowedAboveZero(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	// at index 0 previous is a no-op
	require.NoError(t, f.ctrl.Previous(ctx))
	assert.Equal(t, 0, f.currentQuestion(t).Index)

	f.answerCurrent(t, 1)
	require.NoError(t, f.ctrl.Next(ctx))
	require.NoError(t, f.ctrl.Previous(ctx))
	assert.Equal(t, 0, f.currentQuestion(t).Index)
}

func TestJumpToIgnoresAnswerState(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	require.NoError(t, f.ctrl.JumpTo(ctx, 17))
	assert.Equal(t, 17, f.currentQuestion(t).Index)

	err := f.ctrl.JumpTo(ctx, 30)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Equal(t, 17, f.currentQuestion(t).Index)
}

func TestAnswerOverwriteKeepsCount(t *testing.T) {
	f := englishFixture(t)
	require.NoError(t, f.ctrl.Start(context.Background()))

	f.answerCurrent(t, 2)
	f.answerCurrent(t, 0)

	q := f.currentQuestion(t)
	assert.Equal(t, 1, q.AnsweredCount)
	assert.True(t, q.Options[0].Selected)
	assert.False(t, q.Options[2].Selected)
}

func TestSelectAnswerValidatesOrdinal(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	q := f.currentQuestion(t)
	err := f.ctrl.SelectAnswer(ctx, q.QuestionID, 3)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	err = f.ctrl.SelectAnswer(ctx, "not-in-exam", 0)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestManualSubmissionRecordsHistory(t *testing.T) {
	f := englishFixture(t)
	f.completeExam(t, 27) // 3 incorrect

	require.NotEmpty(t, f.sink.results)
	res := f.sink.results[len(f.sink.results)-1]
	assert.Equal(t, 27, res.Correct)
	assert.Equal(t, 3, res.Incorrect)
	assert.Equal(t, 90, res.Score)
	assert.True(t, res.Passed)
	assert.False(t, res.TimedOut)

	require.Equal(t, 1, f.store.Len())
	entry, ok := f.store.Get(0)
	require.True(t, ok)
	assert.Equal(t, 27, entry.Correct)
	assert.True(t, entry.Passed)
	assert.Len(t, entry.Outcomes, 30)

	assert.Equal(t, 1, f.timer.stops, "countdown stops on submission")
}

func TestTimeoutSubmitsOnce(t *testing.T) {
	f := newFixture(t, 40, Options{
		InitialLanguage: i18n.English,
		TimeLimit:       5 * time.Second,
	})
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	// answer 10 of 30, leave the rest open
	for i := 0; i < 10; i++ {
		f.answerCurrent(t, 1)
		require.NoError(t, f.ctrl.Next(ctx))
	}

	for i := 0; i < 5; i++ {
		f.ctrl.Tick()
	}

	assert.Equal(t, StateResults, f.ctrl.State())
	assert.True(t, f.sink.hasNotice(NoticeTimeExpired))

	require.Equal(t, 1, f.store.Len())
	entry, _ := f.store.Get(0)
	assert.Equal(t, 10, entry.Correct)
	assert.Equal(t, 20, entry.Incorrect, "unanswered questions grade as incorrect")
	assert.False(t, entry.Passed)
	assert.Equal(t, 5, entry.ElapsedSeconds)
	assert.Len(t, entry.Outcomes, 30, "same shape as a manual submission")

	// stray ticks after submission must not double-submit
	f.ctrl.Tick()
	f.ctrl.Tick()
	assert.Equal(t, 1, f.store.Len())
	assert.Len(t, f.sink.results, 1)
}

func TestTickEmitsCountdown(t *testing.T) {
	f := newFixture(t, 40, Options{
		InitialLanguage: i18n.English,
		TimeLimit:       10 * time.Second,
	})
	require.NoError(t, f.ctrl.Start(context.Background()))

	f.ctrl.Tick()
	require.Len(t, f.sink.countdowns, 1)
	assert.Equal(t, 9*time.Second, f.sink.countdowns[0])
}

func TestReviewFilterFallsBackToAll(t *testing.T) {
	f := englishFixture(t)
	f.completeExam(t, 30) // everything correct

	require.NoError(t, f.ctrl.SetReviewFilter(context.Background(), FilterIncorrect))
	assert.True(t, f.sink.hasNotice(NoticeFilterFallback))

	review := f.sink.reviews[len(f.sink.reviews)-1]
	assert.Equal(t, FilterAll, review.Filter)
	assert.Equal(t, 30, review.Total)
	assert.Equal(t, StateReviewing, f.ctrl.State())
}

func TestReviewFilterIncorrectOnly(t *testing.T) {
	f := englishFixture(t)
	f.completeExam(t, 26) // 4 incorrect

	require.NoError(t, f.ctrl.SetReviewFilter(context.Background(), FilterIncorrect))
	review := f.sink.reviews[len(f.sink.reviews)-1]
	assert.Equal(t, FilterIncorrect, review.Filter)
	assert.Equal(t, 4, review.Total)
	assert.False(t, review.Correct)
	assert.Equal(t, "right", review.CorrectAnswer, "wrong picks show the correct option")
}

func TestReviewWalkReturnsToResults(t *testing.T) {
	f := englishFixture(t)
	f.completeExam(t, 29) // 1 incorrect
	ctx := context.Background()

	require.NoError(t, f.ctrl.SetReviewFilter(ctx, FilterIncorrect))
	require.Equal(t, StateReviewing, f.ctrl.State())

	// single item; next walks off the end and lands on results
	require.NoError(t, f.ctrl.Next(ctx))
	assert.Equal(t, StateResults, f.ctrl.State())
}

func TestExitNeedsConfirmation(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	f.sink.confirm = false
	require.NoError(t, f.ctrl.Exit(ctx))
	assert.Equal(t, StateInExam, f.ctrl.State())

	f.sink.confirm = true
	require.NoError(t, f.ctrl.Exit(ctx))
	assert.Equal(t, StateHome, f.ctrl.State())
	assert.Equal(t, 0, f.store.Len(), "abandoned exams write no history")
	assert.Equal(t, 1, f.timer.stops)
}

func TestCountdownRunsWhileExitPromptOpen(t *testing.T) {
	f := newFixture(t, 40, Options{
		InitialLanguage: i18n.English,
		TimeLimit:       10 * time.Second,
	})
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	f.sink.confirm = false
	f.sink.onConfirm = func() {
		f.ctrl.Tick()
		f.ctrl.Tick()
	}
	require.NoError(t, f.ctrl.Exit(ctx))

	assert.Equal(t, StateInExam, f.ctrl.State())
	require.Len(t, f.sink.countdowns, 2, "ticks must land while the prompt is open")
	assert.Equal(t, 8*time.Second, f.sink.countdowns[1])
}

func TestTimeoutDuringExitPromptWins(t *testing.T) {
	f := newFixture(t, 40, Options{
		InitialLanguage: i18n.English,
		TimeLimit:       2 * time.Second,
	})
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))
	f.answerCurrent(t, 1)

	f.sink.confirm = true
	f.sink.onConfirm = func() {
		f.ctrl.Tick()
		f.ctrl.Tick() // expires and submits
	}
	require.NoError(t, f.ctrl.Exit(ctx))

	assert.Equal(t, StateResults, f.ctrl.State(), "a late exit confirmation must not discard the submitted result")
	assert.Equal(t, 1, f.store.Len())
}

func TestHistoryDetailReplay(t *testing.T) {
	f := englishFixture(t)
	f.completeExam(t, 28)
	ctx := context.Background()

	f.ctrl.Home(ctx)
	require.Equal(t, StateHome, f.ctrl.State())

	require.NoError(t, f.ctrl.ViewHistoryEntry(ctx, 0))
	require.Equal(t, StateHistoryDetail, f.ctrl.State())

	detail := f.sink.details[len(f.sink.details)-1]
	assert.Equal(t, 30, detail.Item.Total)
	assert.Equal(t, 28, detail.Entry.Correct)

	// replay is read-only and walks back home past the last question
	for i := 0; i < 29; i++ {
		require.NoError(t, f.ctrl.Next(ctx))
	}
	require.Equal(t, StateHistoryDetail, f.ctrl.State())
	require.NoError(t, f.ctrl.Next(ctx))
	assert.Equal(t, StateHome, f.ctrl.State())
	assert.Equal(t, 1, f.store.Len(), "replay never rewrites history")
}

func TestHistoryDetailUnresolvableQuestion(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()

	sel := 1
	result := scoring.Result{
		CorrectCount:    1,
		ScorePercentage: 100,
		Passed:          true,
		Outcomes: []scoring.Outcome{
			{QuestionID: "gone-from-bank", SelectedOrdinal: &sel, CorrectOrdinal: 1, Correct: true},
		},
	}
	require.NoError(t, f.store.Append(ctx, history.NewEntry(i18n.English, result, time.Minute, time.Now())))

	err := f.ctrl.ViewHistoryEntry(ctx, 0)
	assert.ErrorIs(t, err, ErrHistoryData)
	assert.Equal(t, StateHome, f.ctrl.State())
	assert.True(t, f.sink.hasNotice(NoticeHistoryUnviewable))
}

func TestHistoryDetailWithoutSnapshot(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Append(ctx, history.Entry{ID: "legacy", Passed: true}))

	err := f.ctrl.ViewHistoryEntry(ctx, 0)
	assert.ErrorIs(t, err, ErrHistoryData)
	assert.Equal(t, StateHome, f.ctrl.State())
}

func TestClearHistory(t *testing.T) {
	f := englishFixture(t)
	f.completeExam(t, 30)
	ctx := context.Background()

	f.ctrl.Home(ctx)
	require.Equal(t, 1, f.store.Len())

	require.NoError(t, f.ctrl.ClearHistory(ctx))
	assert.Equal(t, 0, f.store.Len())
	assert.True(t, f.sink.hasNotice(NoticeHistoryCleared))
}

func TestHomeViewStats(t *testing.T) {
	f := englishFixture(t)
	f.completeExam(t, 30)
	f.ctrl.Home(context.Background())

	home := f.sink.homes[len(f.sink.homes)-1]
	assert.Equal(t, StatsView{Total: 1, Passed: 1, Failed: 0}, home.Stats)
	require.Len(t, home.History, 1)
	assert.Equal(t, 100, home.History[0].Score)
	assert.True(t, home.CanStart)
}

func TestIntentsRejectedOutsideTheirState(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.ctrl.Next(ctx), ErrInvalidIntent)
	assert.ErrorIs(t, f.ctrl.Exit(ctx), ErrInvalidIntent)
	assert.ErrorIs(t, f.ctrl.SetReviewFilter(ctx, FilterAll), ErrInvalidIntent)
	assert.ErrorIs(t, f.ctrl.Results(ctx), ErrInvalidIntent)

	require.NoError(t, f.ctrl.Start(ctx))
	assert.ErrorIs(t, f.ctrl.SelectLanguage(ctx, i18n.Spanish), ErrInvalidIntent)
	assert.ErrorIs(t, f.ctrl.ClearHistory(ctx), ErrInvalidIntent)
	assert.ErrorIs(t, f.ctrl.ViewHistoryEntry(ctx, 0), ErrInvalidIntent)
}

func TestSubmitFromFinalQuestionEvenWhenEarlierUnanswered(t *testing.T) {
	f := englishFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Start(ctx))

	require.NoError(t, f.ctrl.JumpTo(ctx, 29))
	f.answerCurrent(t, 1)
	require.NoError(t, f.ctrl.Next(ctx))

	assert.Equal(t, StateResults, f.ctrl.State())
	entry, ok := f.store.Get(0)
	require.True(t, ok)
	assert.Equal(t, 1, entry.Correct)
	assert.Equal(t, 29, entry.Incorrect)
}
