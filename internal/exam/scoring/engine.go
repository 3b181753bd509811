package scoring

import (
	"math"

	"github.com/driveprep/exam-platform/internal/question"
)

// Config holds grading policy constants (defaults match the official exam).
type Config struct {
	PassMaxIncorrect int // most incorrect answers still compatible with a pass
}

// DefaultConfig returns the production pass threshold.
func DefaultConfig() Config {
	return Config{PassMaxIncorrect: 3}
}

// Outcome records how a single question was answered, in exam order. It is
// the unit persisted into history entries so review and history views can be
// rebuilt without touching mutable session state.
type Outcome struct {
	QuestionID      string `json:"question_id"`
	SelectedOrdinal *int   `json:"selected_ordinal"` // nil when unanswered
	CorrectOrdinal  int    `json:"correct_ordinal"`
	Correct         bool   `json:"correct"`
}

// Result summarizes one completed exam.
type Result struct {
	CorrectCount    int
	IncorrectCount  int
	ScorePercentage int
	Passed          bool
	Outcomes        []Outcome
}

// Selections exposes recorded answers to the engine. Implemented by the
// exam answer tracker.
type Selections interface {
	Get(questionID string) (int, bool)
}

// Engine grades exams with configurable constants.
type Engine struct {
	config Config
}

// NewEngine creates a grading engine with the provided config.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Score grades questions in exam order. A question with no recorded
// selection, or one whose selected option is not flagged correct, counts as
// incorrect. The percentage always divides by the actual exam length, so
// shortened papers grade correctly too.
func (e *Engine) Score(questions []question.Question, sel Selections) Result {
	res := Result{Outcomes: make([]Outcome, 0, len(questions))}

	for _, q := range questions {
		out := Outcome{
			QuestionID:     q.ID,
			CorrectOrdinal: q.CorrectOrdinal(),
		}
		if ord, ok := sel.Get(q.ID); ok {
			selected := ord
			out.SelectedOrdinal = &selected
			out.Correct = ord >= 0 && ord < len(q.Options) && q.Options[ord].Correct
		}

		if out.Correct {
			res.CorrectCount++
		} else {
			res.IncorrectCount++
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	if n := len(questions); n > 0 {
		res.ScorePercentage = int(math.Round(float64(res.CorrectCount) / float64(n) * 100))
	}
	res.Passed = res.IncorrectCount <= e.config.PassMaxIncorrect
	return res
}
