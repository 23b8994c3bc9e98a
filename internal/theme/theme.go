// Package theme supplies word pools used to fill short PINs.
package theme

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/hpungsan/mnemo/internal/keywords"
	"github.com/hpungsan/mnemo/internal/logging"
)

// Pool returns candidate words for a theme, in preference order.
type Pool interface {
	WordsForTheme(ctx context.Context, theme string) ([]string, error)
}

// PoolFunc adapts a function to Pool.
type PoolFunc func(ctx context.Context, theme string) ([]string, error)

// WordsForTheme implements Pool.
func (f PoolFunc) WordsForTheme(ctx context.Context, theme string) ([]string, error) {
	return f(ctx, theme)
}

// Store is the persistence a StorePool reads from.
type Store interface {
	ThemeWords(ctx context.Context, theme string) ([]string, error)
}

// StorePool serves themes from the local database.
type StorePool struct {
	Store Store
}

// WordsForTheme implements Pool.
func (p StorePool) WordsForTheme(ctx context.Context, theme string) ([]string, error) {
	if p.Store == nil {
		return nil, nil
	}
	words, err := p.Store.ThemeWords(ctx, theme)
	if err != nil {
		return nil, err
	}
	return keywords.Clean(words), nil
}

// Chain consults pools in order; the first pool returning words wins.
// Pool errors are logged and skipped. If every pool failed, the last error is returned.
type Chain struct {
	Pools  []Pool
	Logger *slog.Logger
}

// NewChain builds a chain, dropping nil pools.
func NewChain(logger *slog.Logger, pools ...Pool) *Chain {
	c := &Chain{Logger: logger}
	for _, p := range pools {
		if p != nil {
			c.Pools = append(c.Pools, p)
		}
	}
	return c
}

// WordsForTheme implements Pool.
func (c *Chain) WordsForTheme(ctx context.Context, theme string) ([]string, error) {
	logger := logging.OrDiscard(c.Logger)
	var errs []error
	for i, p := range c.Pools {
		words, err := p.WordsForTheme(ctx, theme)
		if err != nil {
			logger.Warn("theme pool failed", "theme", theme, "pool", i, "error", err)
			errs = append(errs, err)
			continue
		}
		if words = keywords.Clean(words); len(words) > 0 {
			return words, nil
		}
	}
	if len(errs) == len(c.Pools) && len(errs) > 0 {
		return nil, stderrors.Join(errs...)
	}
	return nil, nil
}
