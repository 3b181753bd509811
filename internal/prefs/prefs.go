package prefs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/driveprep/exam-platform/pkg/i18n"
)

// KV store keys for user preferences.
const (
	KeyLanguage = "appLanguage"
	KeyTheme    = "theme"
)

// KV is the persistence surface preferences are stored in (implemented by
// storage.Store).
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Preferences persists small user settings across restarts. Read failures
// yield the zero value; the app runs fine with defaults.
type Preferences struct {
	kv     KV
	logger zerolog.Logger
}

// New creates a preference store over kv.
func New(kv KV, logger zerolog.Logger) *Preferences {
	return &Preferences{kv: kv, logger: logger}
}

// Language returns the persisted display language, if any valid one exists.
func (p *Preferences) Language(ctx context.Context) (i18n.Language, bool) {
	raw, ok, err := p.kv.Get(ctx, KeyLanguage)
	if err != nil {
		p.logger.Warn().Err(err).Msg("could not read persisted language")
		return "", false
	}
	if !ok {
		return "", false
	}
	lang := i18n.Language(raw)
	if !lang.Valid() {
		return "", false
	}
	return lang, true
}

// SetLanguage persists the display language.
func (p *Preferences) SetLanguage(ctx context.Context, lang i18n.Language) error {
	if err := p.kv.Set(ctx, KeyLanguage, []byte(lang)); err != nil {
		return fmt.Errorf("persist language: %w", err)
	}
	return nil
}

// Theme returns the persisted theme name, if any.
func (p *Preferences) Theme(ctx context.Context) (string, bool) {
	raw, ok, err := p.kv.Get(ctx, KeyTheme)
	if err != nil {
		p.logger.Warn().Err(err).Msg("could not read persisted theme")
		return "", false
	}
	if !ok {
		return "", false
	}
	return string(raw), true
}

// SetTheme persists the theme name.
func (p *Preferences) SetTheme(ctx context.Context, theme string) error {
	if err := p.kv.Set(ctx, KeyTheme, []byte(theme)); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	return nil
}
