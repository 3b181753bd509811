package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/driveprep/exam-platform/internal/config"
	"github.com/driveprep/exam-platform/internal/display"
	"github.com/driveprep/exam-platform/internal/exam"
	"github.com/driveprep/exam-platform/internal/exam/scoring"
	"github.com/driveprep/exam-platform/internal/history"
	"github.com/driveprep/exam-platform/internal/logging"
	"github.com/driveprep/exam-platform/internal/prefs"
	"github.com/driveprep/exam-platform/internal/question"
	"github.com/driveprep/exam-platform/internal/storage"
	"github.com/driveprep/exam-platform/pkg/i18n"
)

// Application aggregates the storage layer, question bank, session
// controller and terminal sink.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	store *storage.Store
	term  *display.Terminal
	ctrl  *exam.Controller

	bankErr error
}

// New bootstraps config, logger, storage, question bank and controller.
// A missing question bank is not fatal: the app runs, exam start stays
// blocked with a persistent notice until the data is back.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	store, err := storage.Open(ctx, storage.Driver(cfg.Storage.Driver), cfg.Storage.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	repo, bankErr := question.Load(ctx, question.FileSource{Path: cfg.Questions.BankPath}, logger)
	if bankErr != nil {
		logger.Error().Err(bankErr).Str("path", cfg.Questions.BankPath).Msg("question bank unavailable")
		repo = question.NewRepository(nil, logger)
	}

	preferences := prefs.New(store, logger)
	histStore := history.NewStore(store, cfg.Exam.HistoryLimit, logger)
	engine := scoring.NewEngine(scoring.Config{PassMaxIncorrect: cfg.Exam.PassMaxIncorrect})

	language, ok := preferences.Language(ctx)
	if !ok {
		if fallback := i18n.Language(cfg.Language); fallback.Valid() {
			language = fallback
		}
	}
	theme, _ := preferences.Theme(ctx)

	term := display.NewTerminal(os.Stdin, os.Stdout, logger)
	ctrl := exam.NewController(repo, engine, histStore, preferences, term, exam.Options{
		QuestionCount:   cfg.Exam.QuestionCount,
		TimeLimit:       cfg.Exam.TimeLimit,
		ImageDir:        cfg.Questions.ImageDir,
		InitialLanguage: language,
		InitialTheme:    theme,
	}, logger)

	return &Application{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		term:    term,
		ctrl:    ctrl,
		bankErr: bankErr,
	}, nil
}

// Run drives the terminal intent loop until it ends or a termination signal
// arrives, then releases storage.
func (a *Application) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.bankErr != nil {
		a.term.Notify(exam.NoticeDataUnavailable, "Exam data could not be loaded; starting an exam is unavailable until it is restored.")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.term.Run(runCtx, a.ctrl)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("terminal loop: %w", err)
		}
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("storage shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}
