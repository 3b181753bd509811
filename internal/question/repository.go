package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"

	"github.com/driveprep/exam-platform/pkg/i18n"
)

// ErrDataUnavailable signals that the question bank could not be read or
// parsed. Starting an exam is impossible until a reload succeeds.
var ErrDataUnavailable = errors.New("question data unavailable")

// Source supplies the raw bank document.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileSource reads the bank from a JSON file on disk.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) ([]byte, error) {
	return os.ReadFile(s.Path)
}

// bank document wire shapes; field names follow the source data.
type bankDocument struct {
	Questions []bankQuestion `json:"Questions"`
}

type bankQuestion struct {
	ID      json.Number  `json:"Id"`
	Prompt  i18n.Text    `json:"Q"`
	Img     bool         `json:"Img"`
	Answers []bankOption `json:"A"`
	Rule    i18n.Text    `json:"Rule"`
}

type bankOption struct {
	Text    i18n.Text `json:"T"`
	Correct bool      `json:"Y"`
}

// Repository holds the full question bank in memory and serves lookups and
// random samples.
type Repository struct {
	logger    zerolog.Logger
	questions []Question
	byID      map[string]int
}

// NewRepository builds a repository over an already-decoded bank. Questions
// flagged with zero or multiple correct options are kept but logged as
// data-integrity warnings; grading uses first-match semantics.
func NewRepository(questions []Question, logger zerolog.Logger) *Repository {
	r := &Repository{
		logger:    logger,
		questions: questions,
		byID:      make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		r.byID[q.ID] = i

		correct := 0
		for _, opt := range q.Options {
			if opt.Correct {
				correct++
			}
		}
		if correct != 1 {
			logger.Warn().
				Str("question_id", q.ID).
				Int("correct_options", correct).
				Msg("question does not have exactly one correct option")
		}
	}
	return r
}

// Load fetches and decodes the bank from src. Any failure is reported as
// ErrDataUnavailable; callers surface it and retry, they do not crash.
func Load(ctx context.Context, src Source, logger zerolog.Logger) (*Repository, error) {
	data, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read bank: %v", ErrDataUnavailable, err)
	}

	var doc bankDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode bank: %v", ErrDataUnavailable, err)
	}

	questions := make([]Question, 0, len(doc.Questions))
	for _, bq := range doc.Questions {
		q := Question{
			ID:       bq.ID.String(),
			Prompt:   bq.Prompt,
			HasImage: bq.Img,
			Rule:     bq.Rule,
			Options:  make([]Option, 0, len(bq.Answers)),
		}
		for _, opt := range bq.Answers {
			q.Options = append(q.Options, Option{Text: opt.Text, Correct: opt.Correct})
		}
		questions = append(questions, q)
	}

	logger.Info().Int("questions", len(questions)).Msg("question bank loaded")
	return NewRepository(questions, logger), nil
}

// Count returns the bank size.
func (r *Repository) Count() int {
	return len(r.questions)
}

// FindByID returns the question with the given identifier.
func (r *Repository) FindByID(id string) (Question, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Question{}, false
	}
	return r.questions[i], true
}

// Sample draws n distinct questions uniformly at random without replacement
// using a Fisher-Yates shuffle. When n meets or exceeds the bank size the
// whole bank is returned, shuffled.
func (r *Repository) Sample(n int) []Question {
	shuffled := make([]Question, len(r.questions))
	copy(shuffled, r.questions)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n >= len(shuffled) {
		return shuffled
	}
	return shuffled[:n]
}
