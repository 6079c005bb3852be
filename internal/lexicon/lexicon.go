// Package lexicon normalizes player answers and checks them against the round letter.
package lexicon

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = '\u0640'

// baseLetters collapses presentation variants that survive compatibility
// decomposition (hamza-bearing forms decompose on their own).
var baseLetters = map[rune]rune{
	'ٱ': 'ا', // alef wasla
	'ى': 'ي', // alef maksura
	'ی': 'ي', // farsi yeh
	'ک': 'ك', // keheh
	'ە': 'ه', // ae
}

// allographs are first-letter equivalences that stay distinct inside words.
var allographs = map[rune]rune{
	'ة': 'ه',
	'ء': 'ا',
}

func isNoise(r rune) bool {
	if r == tatweel {
		return true
	}
	if r >= '\u06D6' && r <= '\u06ED' {
		return true
	}
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Cf, r)
}

// Normalize trims s, strips diacritics and presentation forms, case-folds it
// and collapses letter variants to their base letter. Safe for concurrent use.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// transformers carry state, so each call builds its own chain
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isNoise)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	out = cases.Fold().String(out)

	return strings.Map(func(r rune) rune {
		if b, ok := baseLetters[r]; ok {
			return b
		}
		return r
	}, strings.TrimSpace(out))
}

// FirstLetter returns the first rune of the normalized word, or "" when the
// word is empty or does not start with a letter.
func FirstLetter(word string) string {
	w := Normalize(word)
	r, _ := utf8.DecodeRuneInString(w)
	if w == "" || !unicode.IsLetter(r) {
		return ""
	}
	return string(r)
}

// StartsWithLetter reports whether word begins with letter once both are
// normalized. Empty, blank and non-alphabetic input yields false.
func StartsWithLetter(word, letter string) bool {
	w := Normalize(word)
	l := Normalize(letter)
	if w == "" || l == "" {
		return false
	}

	first, _ := utf8.DecodeRuneInString(w)
	if first == utf8.RuneError || !unicode.IsLetter(first) {
		return false
	}

	lr, size := utf8.DecodeRuneInString(l)
	if size != len(l) {
		// multi-rune targets (digraphs) compare as a prefix
		return strings.HasPrefix(w, l)
	}
	return equivalent(first, lr)
}

func equivalent(a, b rune) bool {
	if a == b {
		return true
	}
	if x, ok := allographs[a]; ok && x == b {
		return true
	}
	if x, ok := allographs[b]; ok && x == a {
		return true
	}
	return false
}
