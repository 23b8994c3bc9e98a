// Package resolver turns chunks into ordered keyword candidate lists by
// consulting an ordered list of tiers.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/mnemo/internal/chunk"
	"github.com/hpungsan/mnemo/internal/logging"
)

// Tier is one source of candidates. An empty result passes the chunk on to the next tier.
// Tiers must not return errors; failures degrade to an empty result.
type Tier interface {
	Name() string
	Candidates(ctx context.Context, c chunk.Chunk) []string
}

// DefaultConcurrency bounds parallel chunk resolution in ResolveAll.
const DefaultConcurrency = 4

// Resolver consults tiers in order; the first non-empty result wins.
type Resolver struct {
	tiers       []Tier
	preferred   Tier
	logger      *slog.Logger
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for tier diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithConcurrency overrides DefaultConcurrency. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithPreferred sets a tier whose candidates are placed ahead of whichever
// tier wins, such as words the user taught. It does not stop the tier walk.
func WithPreferred(t Tier) Option {
	return func(r *Resolver) { r.preferred = t }
}

// New builds a resolver over tiers. A FallbackTier is always consulted last,
// so Resolve never returns an empty list.
func New(tiers []Tier, opts ...Option) *Resolver {
	r := &Resolver{
		tiers:       append([]Tier(nil), tiers...),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDiscard(r.logger)
	return r
}

// Tiers returns the tier names in evaluation order.
func (r *Resolver) Tiers() []string {
	names := make([]string, 0, len(r.tiers)+1)
	for _, t := range r.tiers {
		names = append(names, t.Name())
	}
	return append(names, FallbackTier{}.Name())
}

// Resolve returns the candidates for c. The first element is the default.
func (r *Resolver) Resolve(ctx context.Context, c chunk.Chunk) []string {
	var preferred []string
	if r.preferred != nil && ctx.Err() == nil {
		preferred = r.preferred.Candidates(ctx, c)
	}
	for _, t := range r.tiers {
		if ctx.Err() != nil {
			break
		}
		words := dedupe(t.Candidates(ctx, c))
		if len(words) > 0 {
			r.logger.Debug("chunk resolved", "chunk", c.Value, "tier", t.Name(), "candidates", len(words))
			return dedupe(append(preferred, words...))
		}
	}
	if words := dedupe(preferred); len(words) > 0 {
		return words
	}
	return FallbackTier{}.Candidates(ctx, c)
}

// ResolveAll resolves chunks concurrently, preserving order.
func (r *Resolver) ResolveAll(ctx context.Context, chunks []chunk.Chunk) [][]string {
	out := make([][]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			out[i] = r.Resolve(gctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// dedupe trims candidates, dropping blanks and repeats. First occurrence wins.
func dedupe(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
