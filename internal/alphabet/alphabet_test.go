package alphabet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntries_PartitionIsDisjoint(t *testing.T) {
	seen := map[rune]int{}
	entries := Entries()
	require.Len(t, entries, 10)

	for i, e := range entries {
		assert.Equal(t, i, e.Digit)
		assert.NotEmpty(t, e.Consonants, "digit %d has no consonant", e.Digit)
		for _, c := range e.Consonants {
			prev, dup := seen[c]
			assert.False(t, dup, "%c in digits %d and %d", c, prev, e.Digit)
			seen[c] = e.Digit
		}
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	entries := Entries()
	entries[1].Consonants[0] = 'x'

	fresh := Entries()
	assert.Equal(t, 'ㄱ', fresh[1].Consonants[0])
}

func TestEntries_ExampleMapsToOwnDigit(t *testing.T) {
	for _, e := range Entries() {
		d := Digits(e.Example)
		require.NotEmpty(t, d, "example %q", e.Example)
		assert.Equal(t, byte('0'+e.Digit), d[0], "example %q", e.Example)
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "ㄱ ㄲ ㅋ", e.ConsonantString())

	_, ok = Lookup(10)
	assert.False(t, ok)
	_, ok = Lookup(-1)
	assert.False(t, ok)
}

func TestDigits(t *testing.T) {
	tests := []struct {
		name string
		word string
		want string
	}{
		{"two syllables", "고기", "11"},
		{"leg", "다리", "34"},
		{"double consonants", "까치", "18"},
		{"greeting", "안녕하세요", "02970"},
		{"final consonant ignored", "밥", "6"},
		{"latin and punctuation skipped", "Hello 나비!", "26"},
		{"standalone vowel skipped", "ㅏㅑ", ""},
		{"compatibility consonant", "ㅋㅋ", "11"},
		{"final-only cluster skipped", "ㄳ", ""},
		{"digits skipped", "2나", "2"},
		{"empty", "", ""},
		{"decomposed jamo composes", "\u1100\u1161\u1102\u1161", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Digits(tt.word))
		})
	}
}

func TestDigits_NeverLongerThanWord(t *testing.T) {
	words := []string{"사과나무", "abc", "ㅎㅎ하하", "무지개 다리", "🙂마"}
	for _, w := range words {
		assert.LessOrEqual(t, len(Digits(w)), len([]rune(w)), w)
	}
}

func TestDigitsAll(t *testing.T) {
	assert.Equal(t, "1134", DigitsAll([]string{"고기", "다리"}))
	assert.Equal(t, "", DigitsAll(nil))
}

func TestExplain(t *testing.T) {
	got := Explain("나a")
	require.Len(t, got, 2)
	assert.Equal(t, CharDigit{Char: "나", Consonant: "ㄴ", Digit: "2"}, got[0])
	assert.Equal(t, CharDigit{Char: "a", Skipped: true}, got[1])
}

func TestLeadingConsonant(t *testing.T) {
	c, ok := LeadingConsonant('힣')
	require.True(t, ok)
	assert.Equal(t, 'ㅎ', c)

	c, ok = LeadingConsonant('\u1112')
	require.True(t, ok)
	assert.Equal(t, 'ㅎ', c)

	_, ok = LeadingConsonant('ㅏ')
	assert.False(t, ok)
}
