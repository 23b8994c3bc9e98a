package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/mnemo/internal/alphabet"
	"github.com/hpungsan/mnemo/internal/chunk"
	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/pin"
)

// PinInput contains parameters for the Pin operation.
type PinInput struct {
	Words     []string // seed words; ignored when SessionID is set
	SessionID string   // optional; seeds from the session's current words
	Length    int      // default: config default_pin_length
	Theme     string   // optional theme pool for the deficit
}

// Pin builds a fixed-length PIN from words.
func (a *App) Pin(ctx context.Context, input PinInput) (*pin.Result, error) {
	words := input.Words
	if input.SessionID != "" {
		s, err := a.session(input.SessionID)
		if err != nil {
			return nil, err
		}
		words = s.Words()
	}
	length := input.Length
	if length == 0 {
		length = a.Config.DefaultPinLength
	}
	return a.Filler.Generate(ctx, pin.Spec{
		TargetLength: length,
		SeedWords:    words,
		Theme:        strings.TrimSpace(input.Theme),
	})
}

// DigitsOutput is the digit encoding of a list of words.
type DigitsOutput struct {
	Digits string       `json:"digits"`
	Words  []WordDigits `json:"words"`
}

// WordDigits breaks one word down character by character.
type WordDigits struct {
	Word   string               `json:"word"`
	Digits string               `json:"digits"`
	Chars  []alphabet.CharDigit `json:"chars,omitempty"`
}

// Digits maps words to digits. With explain, each character is listed.
func (a *App) Digits(_ context.Context, words []string, explain bool) (*DigitsOutput, error) {
	if len(words) == 0 {
		return nil, errors.NewInvalidRequest("at least one word is required")
	}
	out := &DigitsOutput{Words: make([]WordDigits, 0, len(words))}
	for _, w := range words {
		wd := WordDigits{Word: w, Digits: alphabet.Digits(w)}
		if explain {
			wd.Chars = alphabet.Explain(w)
		}
		out.Words = append(out.Words, wd)
	}
	out.Digits = alphabet.DigitsAll(words)
	return out, nil
}

// Alphabet returns the digit-to-consonant table.
func (a *App) Alphabet() []alphabet.Entry {
	return alphabet.Entries()
}

// LookupOutput lists the candidates for each chunk of a number, without a session.
type LookupOutput struct {
	Digits string        `json:"digits"`
	Chunks []ChunkResult `json:"chunks"`
}

// ChunkResult is one chunk and its ordered candidates.
type ChunkResult struct {
	Chunk      chunk.Chunk `json:"chunk"`
	Candidates []string    `json:"candidates"`
}

// Lookup chunks input and resolves every chunk.
func (a *App) Lookup(ctx context.Context, input string) (*LookupOutput, error) {
	digits := chunk.Clean(input)
	if digits == "" {
		return nil, errors.NewInvalidInput("input contains no digits")
	}
	chunks, err := a.chunker.Split(digits)
	if err != nil {
		return nil, err
	}
	cands := a.Resolver.ResolveAll(ctx, chunks)
	out := &LookupOutput{Digits: digits, Chunks: make([]ChunkResult, len(chunks))}
	for i, c := range chunks {
		out.Chunks[i] = ChunkResult{Chunk: c, Candidates: cands[i]}
	}
	return out, nil
}
