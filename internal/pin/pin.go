// Package pin turns words into fixed-length digit PINs, filling short yields
// from a theme pool or a fixed padding pattern.
package pin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hpungsan/mnemo/internal/alphabet"
	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/keywords"
	"github.com/hpungsan/mnemo/internal/logging"
	"github.com/hpungsan/mnemo/internal/theme"
)

// DefaultPattern has no two equal adjacent digits, including last to first.
const DefaultPattern = "1357924680"

// MaxLength is the longest PIN a Spec may request.
const MaxLength = 20

// Spec describes a PIN request.
type Spec struct {
	TargetLength int      `json:"target_length" validate:"min=1,max=20"`
	SeedWords    []string `json:"seed_words"`
	Theme        string   `json:"theme,omitempty"`
}

// Result is a generated PIN and how it was built.
type Result struct {
	PIN        string   `json:"pin"`
	SeedDigits string   `json:"seed_digits"`
	UsedWords  []string `json:"used_words"`
	Padded     bool     `json:"padded"`
}

var validate = validator.New()

// Validate checks the target length.
func (s Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("target_length must be between 1 and %d", MaxLength))
	}
	return nil
}

// Filler extends short digit yields to a target length.
type Filler struct {
	// Pool supplies theme words. Nil means padding only.
	Pool theme.Pool
	// Pattern is the padding pattern. Defaults to DefaultPattern.
	Pattern string
	// Timeout bounds each pool fetch. Zero means no bound beyond ctx.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Generate maps the seed words to digits and fills or truncates to the target length.
func (f *Filler) Generate(ctx context.Context, spec Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	seed := alphabet.DigitsAll(spec.SeedWords)
	return f.Fill(ctx, seed, spec.TargetLength, spec.Theme, spec.SeedWords)
}

// Fill extends seed to exactly target digits. exclude lists words that must not be drawn from the pool.
func (f *Filler) Fill(ctx context.Context, seed string, target int, themeName string, exclude []string) (*Result, error) {
	if target < 1 || target > MaxLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("target_length must be between 1 and %d", MaxLength))
	}
	res := &Result{SeedDigits: seed, UsedWords: []string{}}

	if len(seed) >= target {
		res.PIN = seed[:target]
		return res, nil
	}

	logger := logging.OrDiscard(f.Logger)
	digits := seed
	if themeName = strings.TrimSpace(themeName); themeName != "" && f.Pool != nil {
		used := make(map[string]bool, len(exclude))
		for _, w := range exclude {
			used[keywords.Normalize(w)] = true
		}
		for _, w := range f.themeWords(ctx, themeName, logger) {
			if len(digits) >= target {
				break
			}
			n := keywords.Normalize(w)
			if used[n] {
				continue
			}
			d := alphabet.Digits(w)
			if d == "" {
				continue
			}
			used[n] = true
			digits += d
			res.UsedWords = append(res.UsedWords, w)
		}
		if len(digits) < target {
			err := errors.NewDeficitUnfillable(themeName, len(digits), target)
			logger.Info("theme pool exhausted, padding", "code", string(err.Code), "theme", themeName, "have", len(digits), "want", target)
		}
	}

	if len(digits) < target {
		digits += f.padding(lastDigit(digits), target-len(digits))
		res.Padded = true
	}
	digits = digits[:target]

	// Filled digits must not collapse the PIN into one repeated digit.
	if target > 1 && uniform(digits) {
		digits = seed + f.padding(lastDigit(seed), target-len(seed))
		res.UsedWords = []string{}
		res.Padded = true
	}

	res.PIN = digits
	return res, nil
}

func (f *Filler) themeWords(ctx context.Context, name string, logger *slog.Logger) []string {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	words, err := f.Pool.WordsForTheme(ctx, name)
	if err != nil {
		logger.Warn("theme pool unavailable, padding", "theme", name, "error", err)
		return nil
	}
	return words
}

// padding returns n pattern digits, starting at the first pattern digit that differs from after.
func (f *Filler) padding(after byte, n int) string {
	p := f.Pattern
	if !digitsOnly(p) {
		p = DefaultPattern
	}
	start := 0
	if after != 0 {
		for start < len(p) && p[start] == after {
			start++
		}
		start %= len(p)
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(p[(start+i)%len(p)])
	}
	return b.String()
}

// digitsOnly reports whether s is a non-empty run of ASCII digits.
func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func lastDigit(s string) byte {
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func uniform(s string) bool {
	return strings.Count(s, s[:1]) == len(s)
}
