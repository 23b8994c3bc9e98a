package chunk

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mnemo/internal/errors"
)

func TestSplit_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"A: even length 4", "1134", []string{"11", "34"}},
		{"B: length 3", "123", []string{"123"}},
		{"C: length 5", "12345", []string{"123", "45"}},
		{"D: single digit", "7", []string{"7"}},
		{"length 2", "42", []string{"42"}},
		{"length 6", "123456", []string{"12", "34", "56"}},
		{"length 7", "1234567", []string{"123", "45", "67"}},
		{"length 9", "123456789", []string{"123", "45", "67", "89"}},
		{"non-digits stripped", "1-2 3", []string{"123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Values(chunks))
		})
	}
}

func TestSplit_PhoneNumber(t *testing.T) {
	chunks, err := Split("010-1234-5678")
	require.NoError(t, err)

	// 11 digits: 3 + 8 -> 3,2,2,2,2
	assert.Equal(t, []string{"010", "12", "34", "56", "78"}, Values(chunks))
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
	}
}

func TestSplit_Empty(t *testing.T) {
	for _, in := range []string{"", "abc", "---"} {
		chunks, err := Split(in)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestSplit_PropertiesAllLengths(t *testing.T) {
	for n := 0; n <= 40; n++ {
		digits := strings.Repeat("0123456789", 5)[:n]
		chunks, err := Split(digits)
		require.NoError(t, err, "len %d", n)

		assert.Equal(t, digits, strings.Join(Values(chunks), ""), "len %d", n)
		for _, c := range chunks {
			if n == 1 {
				assert.Equal(t, 1, c.Len())
				continue
			}
			assert.Contains(t, []int{2, 3}, c.Len(), "len %d chunk %q", n, c.Value)
		}
	}
}

func TestSplit_RandomInputs(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		n := rng.IntN(64)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteByte(byte('0' + rng.IntN(10)))
			if rng.IntN(5) == 0 {
				b.WriteByte('-')
			}
		}
		input := b.String()

		chunks, err := Split(input)
		require.NoError(t, err)
		assert.Equal(t, Clean(input), strings.Join(Values(chunks), ""))
		if len(Clean(input)) > 1 {
			for _, c := range chunks {
				assert.NotEqual(t, 1, c.Len(), "input %q", input)
			}
		}
	}
}

func TestSplit_PairsPolicy(t *testing.T) {
	c := New(PolicyPairs)

	chunks, err := c.Split("12345")
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "34", "5"}, Values(chunks))

	chunks, err = c.Split("1234")
	require.NoError(t, err)
	assert.Equal(t, []string{"12", "34"}, Values(chunks))

	chunks, err = c.Split("7")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, Values(chunks))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyNoOrphan, p)

	p, err = ParsePolicy(" pairs ")
	require.NoError(t, err)
	assert.Equal(t, PolicyPairs, p)

	_, err = ParsePolicy("triples")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestVerify_RejectsBrokenChunks(t *testing.T) {
	tests := []struct {
		name   string
		digits string
		chunks []Chunk
		policy Policy
	}{
		{"truncated", "12345", []Chunk{{"12", 0}, {"34", 1}}, PolicyNoOrphan},
		{"garbled", "1234", []Chunk{{"12", 0}, {"43", 1}}, PolicyNoOrphan},
		{"orphan", "123", []Chunk{{"12", 0}, {"3", 1}}, PolicyNoOrphan},
		{"orphan not last", "123", []Chunk{{"1", 0}, {"23", 1}}, PolicyPairs},
		{"bad position", "1234", []Chunk{{"12", 0}, {"34", 5}}, PolicyNoOrphan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verify(tt.digits, tt.chunks, tt.policy)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrChunkingInvariantViolated))
		})
	}
}
