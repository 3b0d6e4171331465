package meta

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Fold prepares text for case-insensitive comparison: NFC composition,
// Unicode case folding and collapsed whitespace. "Für  Elise" and
// "FÜR ELISE" fold to the same string.
func Fold(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	return collapseWhitespace(s)
}

// ContainsFold reports whether needle occurs in haystack after folding both.
// An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// CleanField normalizes a user or tag supplied value for storage: NFC,
// trimmed, inner whitespace collapsed, control characters removed.
func CleanField(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, s)
	return collapseWhitespace(s)
}

// CleanGenre title-cases a genre read from tags ("baroque" -> "Baroque").
// Values that already contain upper case letters are kept as written.
func CleanGenre(s string) string {
	s = CleanField(s)
	if s == "" || strings.ToLower(s) != s {
		return s
	}
	return cases.Title(language.Und).String(s)
}

// collapseWhitespace trims and replaces runs of whitespace with a single space
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
