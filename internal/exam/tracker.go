package exam

import "github.com/driveprep/exam-platform/internal/question"

// AnswerTracker records the selected option ordinal per question for one
// exam. It performs no range validation on ordinals; callers must only pass
// ordinals that exist in the question's option list.
type AnswerTracker struct {
	selections map[string]int
}

// NewAnswerTracker returns an empty tracker.
func NewAnswerTracker() *AnswerTracker {
	return &AnswerTracker{selections: make(map[string]int)}
}

// Select records a choice for a question. Re-selecting overwrites the prior
// choice; last write wins.
func (t *AnswerTracker) Select(questionID string, ordinal int) {
	t.selections[questionID] = ordinal
}

// Get returns the recorded ordinal for a question.
func (t *AnswerTracker) Get(questionID string) (int, bool) {
	ord, ok := t.selections[questionID]
	return ord, ok
}

// AnsweredCount returns how many questions have a recorded selection.
func (t *AnswerTracker) AnsweredCount() int {
	return len(t.selections)
}

// IsComplete reports whether every question in the exam has a recorded
// selection.
func (t *AnswerTracker) IsComplete(questions []question.Question) bool {
	for _, q := range questions {
		if _, ok := t.selections[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Reset drops all recorded selections.
func (t *AnswerTracker) Reset() {
	t.selections = make(map[string]int)
}
