package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/driveprep/exam-platform/internal/exam/scoring"
	"github.com/driveprep/exam-platform/pkg/i18n"
)

// Entry is an immutable record of one completed (or timed-out) exam attempt.
type Entry struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	Language       i18n.Language     `json:"language"`
	Correct        int               `json:"correct"`
	Incorrect      int               `json:"incorrect"`
	Score          int               `json:"score"`
	Passed         bool              `json:"passed"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Outcomes       []scoring.Outcome `json:"outcomes"`
}

// NewEntry snapshots a grading result into a history entry.
func NewEntry(lang i18n.Language, result scoring.Result, elapsed time.Duration, now time.Time) Entry {
	return Entry{
		ID:             uuid.NewString(),
		Timestamp:      now,
		Language:       lang,
		Correct:        result.CorrectCount,
		Incorrect:      result.IncorrectCount,
		Score:          result.ScorePercentage,
		Passed:         result.Passed,
		ElapsedSeconds: int(elapsed / time.Second),
		Outcomes:       result.Outcomes,
	}
}

// Stats aggregates pass/fail counts for the home screen.
type Stats struct {
	Total  int
	Passed int
	Failed int
}
