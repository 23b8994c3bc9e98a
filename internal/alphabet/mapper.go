package alphabet

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Hangul syllable block layout (Unicode 3.12).
const (
	syllableBase  = 0xAC00
	syllableLast  = 0xD7A3
	syllableBlock = 21 * 28 // medial vowels * finals
	choseongBase  = 0x1100
	choseongLast  = 0x1112
)

// initials lists the 19 leading consonants in Unicode order, as compatibility jamo.
var initials = [19]rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// LeadingConsonant returns the leading consonant of r as compatibility jamo.
// Vowels, final-only clusters, and non-Hangul runes report false.
func LeadingConsonant(r rune) (rune, bool) {
	switch {
	case r >= syllableBase && r <= syllableLast:
		return initials[(r-syllableBase)/syllableBlock], true
	case r >= choseongBase && r <= choseongLast:
		return initials[r-choseongBase], true
	}
	if _, ok := byConsonant[r]; ok {
		return r, true
	}
	return 0, false
}

// Digits maps a word to its digit string, one digit per character whose
// leading consonant is in the table. Other characters are skipped.
func Digits(word string) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(word) {
		c, ok := LeadingConsonant(r)
		if !ok {
			continue
		}
		if d, ok := byConsonant[c]; ok {
			b.WriteByte(d)
		}
	}
	return b.String()
}

// DigitsAll concatenates the digit yield of each word in order.
func DigitsAll(words []string) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(Digits(w))
	}
	return b.String()
}

// CharDigit is one character of an Explain breakdown.
type CharDigit struct {
	Char      string `json:"char"`
	Consonant string `json:"consonant,omitempty"`
	Digit     string `json:"digit,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
}

// Explain returns the per-character mapping Digits applies to word.
func Explain(word string) []CharDigit {
	runes := []rune(norm.NFC.String(word))
	out := make([]CharDigit, 0, len(runes))
	for _, r := range runes {
		cd := CharDigit{Char: string(r)}
		if c, ok := LeadingConsonant(r); ok {
			cd.Consonant = string(c)
			cd.Digit = string(byConsonant[c])
		} else {
			cd.Skipped = true
		}
		out = append(out, cd)
	}
	return out
}
