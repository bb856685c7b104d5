// Package normalize produces the canonical token stream shared by the rule and
// semantic matchers.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type contraction struct {
	re   *regexp.Regexp
	with string
}

// Applied in order: "i've" must expand before the bare "ive" form.
var contractions = []contraction{
	{regexp.MustCompile(`\bi've\b`), "i have"},
	{regexp.MustCompile(`\bive\b`), "i have"},
	{regexp.MustCompile(`\bcan't\b`), "cannot"},
	{regexp.MustCompile(`\bdon't\b`), "do not"},
}

var (
	noise      = regexp.MustCompile(`[^a-z0-9\s\-/.]`)
	whitespace = regexp.MustCompile(`\s+`)
	quotes     = strings.NewReplacer("’", "'", "‘", "'")
)

// Normalize lowercases text, expands contractions, replaces every character
// outside [a-z0-9 whitespace - / .] with a space, and collapses whitespace.
func Normalize(text string) string {
	s := quotes.Replace(text)
	s = foldAccents(s)
	s = strings.ToLower(s)
	for _, c := range contractions {
		s = c.re.ReplaceAllString(s, c.with)
	}
	s = noise.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens returns the whitespace-separated tokens of Normalize(text).
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// foldAccents strips combining marks so "café" and "cafe" normalize alike.
// A transform chain holds state, so one is built per call.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
