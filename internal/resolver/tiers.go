package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/mnemo/internal/chunk"
	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/keywords"
	"github.com/hpungsan/mnemo/internal/logging"
)

// StaticTier answers 2-digit chunks from the embedded keyword table.
type StaticTier struct {
	Table *keywords.Table
}

// Name implements Tier.
func (StaticTier) Name() string { return "static" }

// Candidates implements Tier.
func (s StaticTier) Candidates(_ context.Context, c chunk.Chunk) []string {
	if c.Len() != 2 {
		return nil
	}
	words, _ := s.Table.Lookup(c.Value)
	return words
}

// Service is the external keyword lookup: ordered candidates for a code of the given kind.
type Service interface {
	Lookup(ctx context.Context, kind, code, userID string) ([]string, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, kind, code, userID string) ([]string, error)

// Lookup implements Service.
func (f ServiceFunc) Lookup(ctx context.Context, kind, code, userID string) ([]string, error) {
	return f(ctx, kind, code, userID)
}

// Probe is one service request.
type Probe struct {
	Kind string
	Code string
}

// ServiceTier probes an external Service. Each probe is bounded by Timeout;
// errors and timeouts are logged and treated as an empty result.
type ServiceTier struct {
	Service Service
	UserID  string
	Timeout time.Duration
	// Filler left-pads a single digit for the 2-digit probe. Defaults to "0".
	Filler string
	// ExactOnly probes only the chunk's own code; a single digit is never padded.
	ExactOnly bool
	Logger    *slog.Logger
}

// Name implements Tier.
func (ServiceTier) Name() string { return "service" }

// Plan returns the probes tried for c, in order.
//
//	3 digits: ("3-digit", code)
//	2 digits: ("2-digit", code)
//	1 digit:  ("1-digit", code), then ("2-digit", filler+code) unless ExactOnly
func (s ServiceTier) Plan(c chunk.Chunk) []Probe {
	switch c.Len() {
	case 3:
		return []Probe{{"3-digit", c.Value}}
	case 2:
		return []Probe{{"2-digit", c.Value}}
	case 1:
		if s.ExactOnly {
			return []Probe{{"1-digit", c.Value}}
		}
		filler := s.Filler
		if filler == "" {
			filler = "0"
		}
		return []Probe{{"1-digit", c.Value}, {"2-digit", filler + c.Value}}
	}
	return nil
}

// Candidates implements Tier.
func (s ServiceTier) Candidates(ctx context.Context, c chunk.Chunk) []string {
	if s.Service == nil {
		return nil
	}
	logger := logging.OrDiscard(s.Logger)
	for _, p := range s.Plan(c) {
		words, err := s.probe(ctx, p)
		if err != nil {
			degraded := errors.NewResolutionDegraded(s.Name(), p.Code, err)
			logger.Warn("resolver tier degraded",
				"code", string(degraded.Code),
				"tier", s.Name(),
				"kind", p.Kind,
				"chunk", p.Code,
				"error", err)
			continue
		}
		if words = dedupe(words); len(words) > 0 {
			return words
		}
	}
	return nil
}

func (s ServiceTier) probe(ctx context.Context, p Probe) ([]string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	type result struct {
		words []string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		words, err := s.Service.Lookup(ctx, p.Kind, p.Code, s.UserID)
		done <- result{words, err}
	}()

	// A service that ignores ctx must not hold up the chunk.
	select {
	case r := <-done:
		return r.words, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FallbackTier returns the raw chunk digits as the single candidate.
type FallbackTier struct{}

// Name implements Tier.
func (FallbackTier) Name() string { return "fallback" }

// Candidates implements Tier.
func (FallbackTier) Candidates(_ context.Context, c chunk.Chunk) []string {
	return []string{c.Value}
}
