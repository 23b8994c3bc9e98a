// Package alphabet holds the fixed digit to initial-consonant table shared by
// both conversion directions.
package alphabet

import "fmt"

// Entry maps one digit to its consonant group.
type Entry struct {
	Digit      int    `json:"digit"`
	Consonants []rune `json:"-"`
	Example    string `json:"example"`
}

// ConsonantString returns the group as space-separated jamo (e.g. "ㄱ ㄲ ㅋ").
func (e Entry) ConsonantString() string {
	s := ""
	for i, c := range e.Consonants {
		if i > 0 {
			s += " "
		}
		s += string(c)
	}
	return s
}

// table is indexed by digit. Double consonants share the group of their plain form.
var table = [10]Entry{
	{Digit: 0, Consonants: []rune{'ㅇ'}, Example: "아이"},
	{Digit: 1, Consonants: []rune{'ㄱ', 'ㄲ', 'ㅋ'}, Example: "고기"},
	{Digit: 2, Consonants: []rune{'ㄴ'}, Example: "나비"},
	{Digit: 3, Consonants: []rune{'ㄷ', 'ㄸ', 'ㅌ'}, Example: "다리"},
	{Digit: 4, Consonants: []rune{'ㄹ'}, Example: "라면"},
	{Digit: 5, Consonants: []rune{'ㅁ'}, Example: "마늘"},
	{Digit: 6, Consonants: []rune{'ㅂ', 'ㅃ', 'ㅍ'}, Example: "바다"},
	{Digit: 7, Consonants: []rune{'ㅅ', 'ㅆ'}, Example: "사자"},
	{Digit: 8, Consonants: []rune{'ㅈ', 'ㅉ', 'ㅊ'}, Example: "자두"},
	{Digit: 9, Consonants: []rune{'ㅎ'}, Example: "하마"},
}

// byConsonant is the reverse index, built once at init.
var byConsonant map[rune]byte

func init() {
	byConsonant = make(map[rune]byte, 19)
	for _, e := range table {
		if len(e.Consonants) == 0 {
			panic(fmt.Sprintf("alphabet: digit %d has no consonant", e.Digit))
		}
		for _, c := range e.Consonants {
			if prev, dup := byConsonant[c]; dup {
				panic(fmt.Sprintf("alphabet: %c mapped to both %c and %d", c, prev, e.Digit))
			}
			byConsonant[c] = byte('0' + e.Digit)
		}
	}
}

// Entries returns a copy of the table in digit order.
func Entries() []Entry {
	out := make([]Entry, len(table))
	for i, e := range table {
		out[i] = Entry{
			Digit:      e.Digit,
			Consonants: append([]rune(nil), e.Consonants...),
			Example:    e.Example,
		}
	}
	return out
}

// Lookup returns the entry for digit d.
func Lookup(d int) (Entry, bool) {
	if d < 0 || d > 9 {
		return Entry{}, false
	}
	return Entries()[d], true
}

// DigitFor returns the ASCII digit for a compatibility-jamo consonant.
func DigitFor(consonant rune) (byte, bool) {
	d, ok := byConsonant[consonant]
	return d, ok
}
