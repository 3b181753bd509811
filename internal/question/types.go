package question

import (
	"path"

	"github.com/driveprep/exam-platform/pkg/i18n"
)

// Option is one answer choice. An option has no identity of its own; its
// zero-based ordinal within the parent question's option list identifies it.
type Option struct {
	Text    i18n.Text
	Correct bool
}

// Question is an immutable entry from the bank.
type Question struct {
	ID       string
	Prompt   i18n.Text
	HasImage bool
	Options  []Option
	Rule     i18n.Text
}

// CorrectOrdinal returns the ordinal of the first option flagged correct, or
// -1 when no option is. Banks are expected to flag exactly one option; when
// several are flagged the first one wins.
func (q Question) CorrectOrdinal() int {
	for i, opt := range q.Options {
		if opt.Correct {
			return i
		}
	}
	return -1
}

// ImagePath returns the conventional asset path images/{id}.jpg relative to
// dir, or "" when the question carries no image. A missing file on disk is
// the renderer's problem, not ours.
func (q Question) ImagePath(dir string) string {
	if !q.HasImage {
		return ""
	}
	return path.Join(dir, q.ID+".jpg")
}
