package exam

import (
	"time"

	"github.com/driveprep/exam-platform/internal/exam/scoring"
	"github.com/driveprep/exam-platform/internal/history"
	"github.com/driveprep/exam-platform/internal/question"
	"github.com/driveprep/exam-platform/pkg/i18n"
)

// session is one in-progress exam attempt. It is created on start, mutated
// by navigation and answer selection, and discarded on exit or submission.
type session struct {
	questions []question.Question
	tracker   *AnswerTracker
	cursor    int
	startedAt time.Time
	remaining time.Duration
	submitted bool
}

func newSession(questions []question.Question, startedAt time.Time, limit time.Duration) *session {
	return &session{
		questions: questions,
		tracker:   NewAnswerTracker(),
		startedAt: startedAt,
		remaining: limit,
	}
}

func (s *session) current() question.Question {
	return s.questions[s.cursor]
}

func (s *session) find(questionID string) (question.Question, bool) {
	for _, q := range s.questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return question.Question{}, false
}

// completedExam is the frozen outcome of a submitted session, kept until the
// user returns home so review walks never touch mutable state.
type completedExam struct {
	questions []question.Question
	result    scoring.Result
	elapsed   time.Duration
	timedOut  bool
}

// reviewItem pairs a question with its graded outcome.
type reviewItem struct {
	q   question.Question
	out scoring.Outcome
}

// reviewWalk is a filtered, cursor-driven pass over a completed exam.
type reviewWalk struct {
	filter Filter
	items  []reviewItem
	cursor int
}

// detailWalk replays a stored history entry against resolved questions.
type detailWalk struct {
	index  int
	entry  history.Entry
	items  []reviewItem
	cursor int
}

// filterItems selects outcomes matching f, preserving exam order.
func filterItems(questions []question.Question, outcomes []scoring.Outcome, f Filter) []reviewItem {
	items := make([]reviewItem, 0, len(outcomes))
	for i, out := range outcomes {
		switch f {
		case FilterCorrect:
			if !out.Correct {
				continue
			}
		case FilterIncorrect:
			if out.Correct {
				continue
			}
		}
		items = append(items, reviewItem{q: questions[i], out: out})
	}
	return items
}

// reviewView builds the sink model for one walk position.
func reviewView(item reviewItem, index, total int, f Filter, lang i18n.Language, imageDir string) ReviewView {
	v := ReviewView{
		Index:       index,
		Total:       total,
		Filter:      f,
		QuestionID:  item.q.ID,
		Prompt:      item.q.Prompt.Resolve(lang),
		ImagePath:   item.q.ImagePath(imageDir),
		Correct:     item.out.Correct,
		Explanation: item.q.Rule.Resolve(lang),
	}
	if sel := item.out.SelectedOrdinal; sel != nil && *sel >= 0 && *sel < len(item.q.Options) {
		v.Answered = true
		v.YourAnswer = item.q.Options[*sel].Text.Resolve(lang)
	}
	// show the correct option only when the user's pick wasn't it
	if !v.Correct {
		if ord := item.out.CorrectOrdinal; ord >= 0 && ord < len(item.q.Options) {
			v.CorrectAnswer = item.q.Options[ord].Text.Resolve(lang)
		}
	}
	return v
}

func historyItemView(index int, e history.Entry) HistoryItemView {
	return HistoryItemView{
		Index:     index,
		Taken:     e.Timestamp,
		Language:  e.Language.Name(),
		Correct:   e.Correct,
		Incorrect: e.Incorrect,
		Score:     e.Score,
		Passed:    e.Passed,
		Elapsed:   time.Duration(e.ElapsedSeconds) * time.Second,
	}
}
