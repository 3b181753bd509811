package display

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/driveprep/exam-platform/internal/exam"
	"github.com/driveprep/exam-platform/pkg/i18n"
)

// Terminal is the stock display sink: plain-text rendering plus a line-based
// intent loop. The session controller knows nothing about it beyond the
// exam.Sink interface.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	in     *bufio.Reader
	logger zerolog.Logger

	lastQuestionID string
}

// NewTerminal creates a sink reading intents from in and rendering to out.
func NewTerminal(in io.Reader, out io.Writer, logger zerolog.Logger) *Terminal {
	return &Terminal{
		out:    out,
		in:     bufio.NewReader(in),
		logger: logger,
	}
}

// Run feeds intents into the controller until EOF, "quit", or cancellation.
func (t *Terminal) Run(ctx context.Context, ctrl *exam.Controller) error {
	ctrl.Home(ctx)

	for {
		line, err := t.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read intent: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := t.dispatch(ctx, ctrl, strings.Fields(strings.TrimSpace(line))); quit {
			return nil
		}
	}
}

func (t *Terminal) dispatch(ctx context.Context, ctrl *exam.Controller, args []string) bool {
	if len(args) == 0 {
		return false
	}

	var err error
	switch args[0] {
	case "lang":
		if len(args) < 2 {
			t.printf("usage: lang E|S|R\n")
			return false
		}
		err = ctrl.SelectLanguage(ctx, i18n.Language(strings.ToUpper(args[1])))
	case "theme":
		if len(args) < 2 {
			t.printf("usage: theme <name>\n")
			return false
		}
		err = ctrl.SetTheme(ctx, args[1])
	case "start":
		err = ctrl.Start(ctx)
	case "a", "answer":
		if len(args) < 2 {
			t.printf("usage: a <option number>\n")
			return false
		}
		var n int
		if n, err = strconv.Atoi(args[1]); err != nil {
			t.printf("not a number: %s\n", args[1])
			return false
		}
		t.mu.Lock()
		qid := t.lastQuestionID
		t.mu.Unlock()
		err = ctrl.SelectAnswer(ctx, qid, n-1)
	case "n", "next":
		err = ctrl.Next(ctx)
	case "p", "prev":
		err = ctrl.Previous(ctx)
	case "j", "jump":
		if len(args) < 2 {
			t.printf("usage: j <question number>\n")
			return false
		}
		var n int
		if n, err = strconv.Atoi(args[1]); err != nil {
			t.printf("not a number: %s\n", args[1])
			return false
		}
		err = ctrl.JumpTo(ctx, n-1)
	case "exit":
		err = ctrl.Exit(ctx)
	case "review":
		err = ctrl.SetReviewFilter(ctx, exam.FilterAll)
	case "filter":
		if len(args) < 2 {
			t.printf("usage: filter all|correct|incorrect\n")
			return false
		}
		err = ctrl.SetReviewFilter(ctx, exam.Filter(args[1]))
	case "results":
		err = ctrl.Results(ctx)
	case "history":
		if len(args) < 2 {
			t.printf("usage: history <entry number>\n")
			return false
		}
		var n int
		if n, err = strconv.Atoi(args[1]); err != nil {
			t.printf("not a number: %s\n", args[1])
			return false
		}
		err = ctrl.ViewHistoryEntry(ctx, n-1)
	case "clear":
		err = ctrl.ClearHistory(ctx)
	case "home":
		ctrl.Home(ctx)
	case "help":
		t.printHelp()
	case "quit", "q":
		return true
	default:
		t.printf("unknown command %q; try help\n", args[0])
	}

	if err != nil {
		// the controller already surfaced a notice; keep a trace for debugging
		t.logger.Debug().Err(err).Str("command", args[0]).Msg("intent rejected")
	}
	return false
}

func (t *Terminal) printHelp() {
	t.printf(`commands:
  lang E|S|R      choose language      start            begin a new exam
  a <n>           pick answer n        n / p            next / previous
  j <n>           jump to question n   exit             abandon the exam
  review          review your exam     filter <f>       all|correct|incorrect
  results         back to results      history <n>      replay a past attempt
  clear           erase history        home             back to the start
  quit            leave the app
`)
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// exam.Sink implementation

func (t *Terminal) ShowHome(v exam.HomeView) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n=== Driving Theory Exam Trainer ===\n")
	if v.Language == "" {
		fmt.Fprintf(t.out, "Language: none selected (lang E|S|R)\n")
	} else {
		fmt.Fprintf(t.out, "Language: %s\n", v.LanguageName)
	}
	if v.Theme != "" {
		fmt.Fprintf(t.out, "Theme: %s\n", v.Theme)
	}
	fmt.Fprintf(t.out, "Questions loaded: %d\n", v.QuestionsLoaded)
	fmt.Fprintf(t.out, "Attempts: %d (passed %d, failed %d)\n", v.Stats.Total, v.Stats.Passed, v.Stats.Failed)
	for _, h := range v.History {
		verdict := "FAIL"
		if h.Passed {
			verdict = "PASS"
		}
		fmt.Fprintf(t.out, "  %2d. %s  %s %3d%%  (%d correct / %d incorrect, %s)\n",
			h.Index+1, h.Taken.Format("2006-01-02 15:04"), verdict, h.Score, h.Correct, h.Incorrect, h.Elapsed)
	}
	if v.CanStart {
		fmt.Fprintf(t.out, "Type start to begin.\n")
	}
}

func (t *Terminal) ShowQuestion(v exam.QuestionView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastQuestionID = v.QuestionID

	fmt.Fprintf(t.out, "\nQuestion %d/%d  (answered %d, %s left)\n", v.Index+1, v.Total, v.AnsweredCount, v.Remaining)
	fmt.Fprintf(t.out, "%s\n", v.Prompt)
	if v.ImagePath != "" {
		fmt.Fprintf(t.out, "[image: %s]\n", v.ImagePath)
	}
	for _, opt := range v.Options {
		marker := " "
		if opt.Selected {
			marker = "*"
		}
		fmt.Fprintf(t.out, " %s %d) %s\n", marker, opt.Ordinal+1, opt.Text)
	}
	if v.IsFinal {
		fmt.Fprintf(t.out, "(last question; n submits the exam)\n")
	}
}

func (t *Terminal) Countdown(remaining time.Duration) {
	// once a minute, plus the final stretch
	if remaining%time.Minute != 0 && remaining > 10*time.Second {
		return
	}
	t.printf("[%s remaining]\n", remaining)
}

func (t *Terminal) ShowResults(v exam.ResultView) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n=== Results ===\n")
	if v.TimedOut {
		fmt.Fprintf(t.out, "Time expired; unanswered questions count as incorrect.\n")
	}
	fmt.Fprintf(t.out, "Correct: %d  Incorrect: %d  Score: %d%%  Time: %s\n", v.Correct, v.Incorrect, v.Score, v.Elapsed)
	if v.Passed {
		fmt.Fprintf(t.out, "You PASSED.\n")
	} else {
		fmt.Fprintf(t.out, "You did not pass. Three or fewer incorrect answers are needed.\n")
	}
	fmt.Fprintf(t.out, "Type review to walk through the questions, or home to restart.\n")
}

func (t *Terminal) ShowReview(v exam.ReviewView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderReview(v)
}

func (t *Terminal) ShowHistoryDetail(v exam.HistoryDetailView) {
	t.mu.Lock()
	defer t.mu.Unlock()

	verdict := "FAIL"
	if v.Entry.Passed {
		verdict = "PASS"
	}
	fmt.Fprintf(t.out, "\n--- Attempt %d (%s, %s %d%%) ---\n",
		v.Entry.Index+1, v.Entry.Taken.Format("2006-01-02 15:04"), verdict, v.Entry.Score)
	t.renderReview(v.Item)
}

func (t *Terminal) renderReview(v exam.ReviewView) {
	fmt.Fprintf(t.out, "\nReview %d/%d (%s)\n", v.Index+1, v.Total, v.Filter)
	fmt.Fprintf(t.out, "%s\n", v.Prompt)
	if v.ImagePath != "" {
		fmt.Fprintf(t.out, "[image: %s]\n", v.ImagePath)
	}
	if v.Answered {
		mark := "✗"
		if v.Correct {
			mark = "✓"
		}
		fmt.Fprintf(t.out, "Your answer %s: %s\n", mark, v.YourAnswer)
	} else {
		fmt.Fprintf(t.out, "Your answer: not answered\n")
	}
	if v.CorrectAnswer != "" {
		fmt.Fprintf(t.out, "Correct answer: %s\n", v.CorrectAnswer)
	}
	if v.Explanation != "" {
		fmt.Fprintf(t.out, "Rule: %s\n", v.Explanation)
	}
}

func (t *Terminal) Notify(code, message string) {
	t.printf("! %s\n", message)
	t.logger.Debug().Str("code", code).Msg("notice")
}

func (t *Terminal) ConfirmExit(prompt string) bool {
	t.printf("%s [y/N] ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
