package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/mnemo/internal/db"
	"github.com/hpungsan/mnemo/internal/errors"
)

// TeachInput contains parameters for the Teach operation.
type TeachInput struct {
	Code string // 1-3 digits
	Word string
}

// Teach stores a custom word for a code. It is offered first from then on.
func (a *App) Teach(ctx context.Context, input TeachInput) (*db.CustomWord, error) {
	cw, err := a.Store.Teach(ctx, a.Config.UserID, strings.TrimSpace(input.Code), input.Word)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("word taught", "code", cw.Code, "word", cw.Word)
	return cw, nil
}

// ListTaught returns the configured user's custom words, newest first.
func (a *App) ListTaught(ctx context.Context) ([]db.CustomWord, error) {
	return a.Store.ListCustomWords(ctx, a.Config.UserID)
}

// Forget removes a custom word.
func (a *App) Forget(ctx context.Context, input TeachInput) error {
	ok, err := a.Store.Forget(ctx, a.Config.UserID, strings.TrimSpace(input.Code), input.Word)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewNotFound(input.Code + "/" + input.Word)
	}
	return nil
}

// ListThemes returns the stored theme pools.
func (a *App) ListThemes(ctx context.Context) ([]db.ThemeInfo, error) {
	return a.Store.ListThemes(ctx)
}

// ThemeWords returns the words a theme pool would offer, stored or generated.
func (a *App) ThemeWords(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewInvalidRequest("theme is required")
	}
	words, err := a.Filler.Pool.WordsForTheme(ctx, name)
	if err != nil {
		return nil, err
	}
	if words == nil {
		words = []string{}
	}
	return words, nil
}

// AddThemeWordsInput contains parameters for the AddThemeWords operation.
type AddThemeWordsInput struct {
	Theme string
	Words []string
}

// AddThemeWordsOutput reports how many new words were stored.
type AddThemeWordsOutput struct {
	Theme string `json:"theme"`
	Added int    `json:"added"`
}

// AddThemeWords extends a stored theme pool. Words already present are skipped.
func (a *App) AddThemeWords(ctx context.Context, input AddThemeWordsInput) (*AddThemeWordsOutput, error) {
	if strings.TrimSpace(input.Theme) == "" {
		return nil, errors.NewInvalidRequest("theme is required")
	}
	if len(input.Words) == 0 {
		return nil, errors.NewInvalidRequest("at least one word is required")
	}
	n, err := a.Store.AddThemeWords(ctx, input.Theme, input.Words)
	if err != nil {
		return nil, err
	}
	return &AddThemeWordsOutput{Theme: strings.TrimSpace(input.Theme), Added: n}, nil
}
