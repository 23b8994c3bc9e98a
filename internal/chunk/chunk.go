// Package chunk splits digit strings into the 2- and 3-digit units that get
// resolved to keywords.
package chunk

import (
	"strings"

	"github.com/hpungsan/mnemo/internal/errors"
)

// Policy selects the boundary rules.
type Policy string

const (
	// PolicyNoOrphan never leaves a single trailing digit when the input has more than one.
	PolicyNoOrphan Policy = "no_orphan"
	// PolicyPairs consumes two digits at a time and allows one trailing single digit.
	PolicyPairs Policy = "pairs"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = PolicyNoOrphan

// ParsePolicy validates a configured policy name. Empty means DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.TrimSpace(s)) {
	case "":
		return DefaultPolicy, nil
	case PolicyNoOrphan:
		return PolicyNoOrphan, nil
	case PolicyPairs:
		return PolicyPairs, nil
	}
	return "", errors.NewInvalidRequest("chunk_policy must be one of: no_orphan, pairs")
}

// Chunk is a contiguous run of digits from the cleaned input.
type Chunk struct {
	Value    string `json:"value"`
	Position int    `json:"position"`
}

// Len returns the number of digits in the chunk.
func (c Chunk) Len() int {
	return len(c.Value)
}

// Chunker splits input under a fixed policy. The zero value uses DefaultPolicy.
type Chunker struct {
	Policy Policy
}

// New returns a Chunker for policy p.
func New(p Policy) Chunker {
	return Chunker{Policy: p}
}

// Clean strips everything except ASCII digits.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Split cleans input and splits it into ordered chunks.
// An empty cleaned input yields an empty, non-nil-error result.
func (c Chunker) Split(input string) ([]Chunk, error) {
	digits := Clean(input)
	policy := c.Policy
	if policy == "" {
		policy = DefaultPolicy
	}

	var sizes []int
	switch policy {
	case PolicyPairs:
		sizes = pairSizes(len(digits))
	default:
		sizes = noOrphanSizes(len(digits))
	}

	chunks := make([]Chunk, 0, len(sizes))
	offset := 0
	for i, n := range sizes {
		if offset+n > len(digits) {
			break
		}
		chunks = append(chunks, Chunk{Value: digits[offset : offset+n], Position: i})
		offset += n
	}

	if err := verify(digits, chunks, policy); err != nil {
		return nil, err
	}
	return chunks, nil
}

// Split splits input with DefaultPolicy.
func Split(input string) ([]Chunk, error) {
	return Chunker{}.Split(input)
}

// noOrphanSizes applies the boundary rules to a remaining length of n.
func noOrphanSizes(n int) []int {
	var sizes []int
	for n > 0 {
		switch {
		case n == 1:
			// Only reachable when the whole input is one digit.
			return append(sizes, 1)
		case n == 2 || n == 4:
			for ; n > 0; n -= 2 {
				sizes = append(sizes, 2)
			}
		case n == 3:
			return append(sizes, 3)
		case n == 5:
			return append(sizes, 3, 2)
		case n%2 == 1:
			sizes = append(sizes, 3)
			n -= 3
		default:
			sizes = append(sizes, 2)
			n -= 2
		}
	}
	return sizes
}

// pairSizes takes two digits at a time, leaving a trailing single digit on odd lengths.
func pairSizes(n int) []int {
	sizes := make([]int, 0, n/2+1)
	for ; n >= 2; n -= 2 {
		sizes = append(sizes, 2)
	}
	if n == 1 {
		sizes = append(sizes, 1)
	}
	return sizes
}

// verify asserts the chunk postcondition: lengths sum to len(digits), values
// reassemble digits, and (for no_orphan) no single-digit chunk unless the input is one digit.
func verify(digits string, chunks []Chunk, policy Policy) error {
	var b strings.Builder
	total := 0
	for i, ch := range chunks {
		n := ch.Len()
		total += n
		b.WriteString(ch.Value)
		if ch.Position != i || n == 0 || n > 3 {
			return violation(digits, chunks)
		}
		if n == 1 && len(digits) > 1 {
			if policy != PolicyPairs || i != len(chunks)-1 {
				return violation(digits, chunks)
			}
		}
	}
	if total != len(digits) || b.String() != digits {
		return violation(digits, chunks)
	}
	return nil
}

func violation(digits string, chunks []Chunk) error {
	return errors.NewChunkingInvariantViolated(digits, Values(chunks))
}

// Values returns the chunk values in order.
func Values(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Value
	}
	return out
}
