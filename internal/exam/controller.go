package exam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/driveprep/exam-platform/internal/exam/scoring"
	"github.com/driveprep/exam-platform/internal/history"
	"github.com/driveprep/exam-platform/internal/question"
	"github.com/driveprep/exam-platform/pkg/i18n"
)

const tickInterval = time.Second

// Controller owns the session lifecycle: Home -> InExam -> Results <->
// Reviewing, plus read-only history replay. It is the single dispatch point
// for user intents and timer ticks; every transition runs to completion
// under one lock before the next event is processed.
type Controller struct {
	mu sync.Mutex

	repo   QuestionBank
	engine *scoring.Engine
	store  *history.Store
	prefs  PreferenceSaver
	sink   Sink
	logger zerolog.Logger
	opts   Options

	state    State
	language i18n.Language
	theme    string

	session   *session
	timer     TimerHandle
	completed *completedExam
	review    *reviewWalk
	detail    *detailWalk
}

// NewController wires the state machine. The controller starts in the home
// state; call Home to emit the first view.
func NewController(repo QuestionBank, engine *scoring.Engine, store *history.Store, prefs PreferenceSaver, sink Sink, opts Options, logger zerolog.Logger) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		repo:     repo,
		engine:   engine,
		store:    store,
		prefs:    prefs,
		sink:     sink,
		logger:   logger,
		opts:     opts,
		state:    StateHome,
		language: opts.InitialLanguage,
		theme:    opts.InitialTheme,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Home discards any transient state, refreshes history from persistence and
// shows the home screen. Safe from every state; an in-flight exam must go
// through Exit instead to get its confirmation prompt.
func (c *Controller) Home(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goHome(ctx)
}

func (c *Controller) goHome(ctx context.Context) {
	c.stopTimer()
	c.session = nil
	c.completed = nil
	c.review = nil
	c.detail = nil
	c.state = StateHome

	if err := c.store.Load(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("history unavailable, showing empty list")
		c.sink.Notify(NoticePersistenceDegraded, "Exam history could not be read; results will be kept in memory only.")
	}
	c.sink.ShowHome(c.homeView())
}

// SelectLanguage sets the display language and persists it. Home only.
func (c *Controller) SelectLanguage(ctx context.Context, lang i18n.Language) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateHome {
		return ErrInvalidIntent
	}
	if !lang.Valid() {
		c.sink.Notify(NoticeLanguageUnsupported, fmt.Sprintf("Unsupported language %q.", lang))
		return fmt.Errorf("%w: language %q", ErrInvalidSelection, lang)
	}

	c.language = lang
	if err := c.prefs.SetLanguage(ctx, lang); err != nil {
		c.logger.Warn().Err(err).Msg("language preference not persisted")
	}
	c.sink.ShowHome(c.homeView())
	return nil
}

// SetTheme stores the presentation theme for the sink. Home only.
func (c *Controller) SetTheme(ctx context.Context, theme string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateHome {
		return ErrInvalidIntent
	}
	c.theme = theme
	if err := c.prefs.SetTheme(ctx, theme); err != nil {
		c.logger.Warn().Err(err).Msg("theme preference not persisted")
	}
	c.sink.ShowHome(c.homeView())
	return nil
}

// Start creates a fresh exam session and begins the countdown. It requires
// a loaded question bank and a selected language.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateHome {
		return ErrInvalidIntent
	}
	if c.repo.Count() == 0 {
		c.sink.Notify(NoticeDataUnavailable, "Exam data is not loaded. Reload and try again.")
		return question.ErrDataUnavailable
	}
	if c.language == "" {
		c.sink.Notify(NoticeLanguageRequired, "Select a language before starting the exam.")
		return ErrLanguageRequired
	}

	c.session = newSession(c.repo.Sample(c.opts.QuestionCount), c.opts.Clock.Now(), c.opts.TimeLimit)
	c.state = StateInExam
	c.timer = c.opts.Timers(tickInterval, c.Tick)

	c.logger.Info().
		Int("questions", len(c.session.questions)).
		Str("language", string(c.language)).
		Msg("exam started")

	c.sink.ShowQuestion(c.questionView())
	return nil
}

// SelectAnswer records a choice for a question in the running exam. The
// ordinal is validated here; the tracker itself stores blindly.
func (c *Controller) SelectAnswer(ctx context.Context, questionID string, ordinal int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInExam {
		return ErrInvalidIntent
	}
	q, ok := c.session.find(questionID)
	if !ok {
		c.sink.Notify(NoticeInvalidSelection, "That question is not part of this exam.")
		return fmt.Errorf("%w: question %s", ErrInvalidSelection, questionID)
	}
	if ordinal < 0 || ordinal >= len(q.Options) {
		c.sink.Notify(NoticeInvalidSelection, "That answer option does not exist.")
		return fmt.Errorf("%w: option %d of question %s", ErrInvalidSelection, ordinal, questionID)
	}

	c.session.tracker.Select(questionID, ordinal)
	c.sink.ShowQuestion(c.questionView())
	return nil
}

// Next advances the current walk. In the exam it is answer-gated and submits
// from the final question; in review it returns to the results past the
// last item; in history replay it returns home past the last item.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateInExam:
		s := c.session
		if s.cursor == len(s.questions)-1 {
			c.submit(ctx, false)
			return nil
		}
		if _, answered := s.tracker.Get(s.current().ID); !answered {
			c.sink.Notify(NoticeAnswerRequired, "Answer the question before moving on.")
			return ErrAnswerRequired
		}
		s.cursor++
		c.sink.ShowQuestion(c.questionView())
		return nil

	case StateReviewing:
		if c.review.cursor < len(c.review.items)-1 {
			c.review.cursor++
			c.sink.ShowReview(c.reviewItemView())
			return nil
		}
		c.review = nil
		c.state = StateResults
		c.sink.ShowResults(c.resultView())
		return nil

	case StateHistoryDetail:
		if c.detail.cursor < len(c.detail.items)-1 {
			c.detail.cursor++
			c.sink.ShowHistoryDetail(c.detailItemView())
			return nil
		}
		c.goHome(ctx)
		return nil
	}
	return ErrInvalidIntent
}

// Previous steps back in the current walk. Always allowed above index zero.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateInExam:
		if c.session.cursor > 0 {
			c.session.cursor--
			c.sink.ShowQuestion(c.questionView())
		}
		return nil
	case StateReviewing:
		if c.review.cursor > 0 {
			c.review.cursor--
			c.sink.ShowReview(c.reviewItemView())
		}
		return nil
	case StateHistoryDetail:
		if c.detail.cursor > 0 {
			c.detail.cursor--
			c.sink.ShowHistoryDetail(c.detailItemView())
		}
		return nil
	}
	return ErrInvalidIntent
}

// JumpTo moves the exam cursor to an arbitrary question. Navigation via the
// position indicator is never answer-gated.
func (c *Controller) JumpTo(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInExam {
		return ErrInvalidIntent
	}
	if index < 0 || index >= len(c.session.questions) {
		c.sink.Notify(NoticeInvalidSelection, "No such question position.")
		return fmt.Errorf("%w: position %d", ErrInvalidSelection, index)
	}
	c.session.cursor = index
	c.sink.ShowQuestion(c.questionView())
	return nil
}

// Exit abandons the running exam after confirmation. Nothing is scored and
// no history entry is written. The lock is released while the prompt sits
// open so the countdown keeps running; the answer is then applied to a
// session that may have timed out and submitted in the meantime.
func (c *Controller) Exit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInExam {
		c.mu.Unlock()
		return ErrInvalidIntent
	}
	s := c.session
	c.mu.Unlock()

	confirmed := c.sink.ConfirmExit("Exit the exam? Your progress will be lost.")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInExam || c.session != s {
		// the countdown expired while the prompt was open; the submitted
		// result stands
		return nil
	}
	if !confirmed {
		return nil
	}
	c.logger.Info().Msg("exam abandoned")
	c.sink.Notify(NoticeExamDiscarded, "Exam discarded.")
	c.goHome(ctx)
	return nil
}

// SetReviewFilter enters or re-filters the review walk over the completed
// exam. A filter matching nothing falls back to all with a notice; the walk
// never starts empty.
func (c *Controller) SetReviewFilter(ctx context.Context, f Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateResults && c.state != StateReviewing {
		return ErrInvalidIntent
	}
	if !f.Valid() {
		c.sink.Notify(NoticeInvalidSelection, fmt.Sprintf("Unknown review filter %q.", f))
		return fmt.Errorf("%w: filter %q", ErrInvalidSelection, f)
	}

	done := c.completed
	items := filterItems(done.questions, done.result.Outcomes, f)
	if len(items) == 0 && f != FilterAll {
		c.sink.Notify(NoticeFilterFallback, fmt.Sprintf("No %s answers to review; showing all questions.", f))
		f = FilterAll
		items = filterItems(done.questions, done.result.Outcomes, f)
	}

	c.review = &reviewWalk{filter: f, items: items}
	c.state = StateReviewing
	c.sink.ShowReview(c.reviewItemView())
	return nil
}

// Results returns from the review walk to the results screen.
func (c *Controller) Results(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReviewing {
		return ErrInvalidIntent
	}
	c.review = nil
	c.state = StateResults
	c.sink.ShowResults(c.resultView())
	return nil
}

// ViewHistoryEntry opens a read-only replay of a stored attempt. Every
// question referenced by the snapshot must still resolve against the bank,
// otherwise the entry is unviewable and the machine stays home.
func (c *Controller) ViewHistoryEntry(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateHome {
		return ErrInvalidIntent
	}
	entry, ok := c.store.Get(index)
	if !ok {
		c.sink.Notify(NoticeInvalidSelection, "No such history entry.")
		return fmt.Errorf("%w: history index %d", ErrInvalidSelection, index)
	}
	if len(entry.Outcomes) == 0 {
		c.sink.Notify(NoticeHistoryUnviewable, "This attempt has no per-question snapshot to replay.")
		return fmt.Errorf("%w: entry %s has no snapshot", ErrHistoryData, entry.ID)
	}

	items := make([]reviewItem, 0, len(entry.Outcomes))
	for _, out := range entry.Outcomes {
		q, found := c.repo.FindByID(out.QuestionID)
		if !found {
			c.sink.Notify(NoticeHistoryUnviewable, "This attempt references questions that no longer exist.")
			return fmt.Errorf("%w: question %s not in bank", ErrHistoryData, out.QuestionID)
		}
		items = append(items, reviewItem{q: q, out: out})
	}

	c.detail = &detailWalk{index: index, entry: entry, items: items}
	c.state = StateHistoryDetail
	c.sink.ShowHistoryDetail(c.detailItemView())
	return nil
}

// ClearHistory wipes the attempt log, in memory and persisted. Home only.
func (c *Controller) ClearHistory(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateHome {
		return ErrInvalidIntent
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("history clear did not reach storage")
		c.sink.Notify(NoticePersistenceDegraded, "History cleared in memory, but the stored copy could not be removed.")
	} else {
		c.sink.Notify(NoticeHistoryCleared, "Exam history cleared.")
	}
	c.sink.ShowHome(c.homeView())
	return nil
}

// Tick advances the countdown by one interval. On expiry it submits exactly
// once with whatever answers are recorded; unanswered questions grade as
// incorrect. Ticks outside a running exam are ignored.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInExam || c.session == nil || c.session.submitted {
		return
	}
	c.session.remaining -= tickInterval
	if c.session.remaining > 0 {
		c.sink.Countdown(c.session.remaining)
		return
	}
	c.session.remaining = 0
	c.sink.Notify(NoticeTimeExpired, "Time is up. Submitting your answers.")
	c.submit(context.Background(), true)
}

// submit is the single atomic submission step: grade, record history, then
// transition. Guarded by the session's submitted flag so a manual submit and
// a timeout can never both fire. Callers hold the lock.
func (c *Controller) submit(ctx context.Context, timedOut bool) {
	s := c.session
	if s == nil || s.submitted {
		return
	}
	s.submitted = true
	c.stopTimer()

	result := c.engine.Score(s.questions, s.tracker)
	elapsed := c.opts.TimeLimit - s.remaining

	entry := history.NewEntry(c.language, result, elapsed, c.opts.Clock.Now())
	if err := c.store.Append(ctx, entry); err != nil {
		c.logger.Warn().Err(err).Msg("result not persisted, history continues in memory")
		c.sink.Notify(NoticePersistenceDegraded, "Result recorded for this session but could not be saved to disk.")
	}

	c.completed = &completedExam{
		questions: s.questions,
		result:    result,
		elapsed:   elapsed,
		timedOut:  timedOut,
	}
	c.session = nil
	c.state = StateResults

	c.logger.Info().
		Int("correct", result.CorrectCount).
		Int("incorrect", result.IncorrectCount).
		Int("score", result.ScorePercentage).
		Bool("passed", result.Passed).
		Bool("timed_out", timedOut).
		Msg("exam submitted")

	c.sink.ShowResults(c.resultView())
}

// stopTimer is idempotent; stopping with no active timer is a no-op.
func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// view builders; callers hold the lock.

func (c *Controller) homeView() HomeView {
	stats := c.store.Stats()
	entries := c.store.All()
	items := make([]HistoryItemView, 0, len(entries))
	for i, e := range entries {
		items = append(items, historyItemView(i, e))
	}
	return HomeView{
		Language:        c.language,
		LanguageName:    c.language.Name(),
		Theme:           c.theme,
		QuestionsLoaded: c.repo.Count(),
		CanStart:        c.repo.Count() > 0 && c.language != "",
		Stats:           StatsView{Total: stats.Total, Passed: stats.Passed, Failed: stats.Failed},
		History:         items,
	}
}

func (c *Controller) questionView() QuestionView {
	s := c.session
	q := s.current()

	opts := make([]OptionView, 0, len(q.Options))
	selected, answered := s.tracker.Get(q.ID)
	for i, opt := range q.Options {
		opts = append(opts, OptionView{
			Ordinal:  i,
			Text:     opt.Text.Resolve(c.language),
			Selected: answered && selected == i,
		})
	}

	return QuestionView{
		Index:         s.cursor,
		Total:         len(s.questions),
		QuestionID:    q.ID,
		Prompt:        q.Prompt.Resolve(c.language),
		ImagePath:     q.ImagePath(c.opts.ImageDir),
		Options:       opts,
		AnsweredCount: s.tracker.AnsweredCount(),
		PrevEnabled:   s.cursor > 0,
		IsFinal:       s.cursor == len(s.questions)-1,
		Remaining:     s.remaining,
	}
}

func (c *Controller) resultView() ResultView {
	done := c.completed
	return ResultView{
		Correct:   done.result.CorrectCount,
		Incorrect: done.result.IncorrectCount,
		Score:     done.result.ScorePercentage,
		Passed:    done.result.Passed,
		Elapsed:   done.elapsed,
		TimedOut:  done.timedOut,
	}
}

func (c *Controller) reviewItemView() ReviewView {
	w := c.review
	return reviewView(w.items[w.cursor], w.cursor, len(w.items), w.filter, c.language, c.opts.ImageDir)
}

func (c *Controller) detailItemView() HistoryDetailView {
	w := c.detail
	item := reviewView(w.items[w.cursor], w.cursor, len(w.items), FilterAll, c.language, c.opts.ImageDir)
	return HistoryDetailView{
		Entry: historyItemView(w.index, w.entry),
		Item:  item,
	}
}
