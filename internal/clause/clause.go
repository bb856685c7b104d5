// Package clause splits a multi-action request into ordered clauses.
package clause

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var connector = regexp.MustCompile(`(?i)\s*(?:;|\b(?:and\s+then|after\s+that|afterwards|and|then|next)\b)\s*`)

const trimSet = " \t\r\n,;"

// Clause is one action request. Start and End are byte offsets of Text in
// the original input.
type Clause struct {
	Index int
	Text  string
	Start int
	End   int
}

// Clauses splits text on connector words and semicolons. Connectors inside
// quoted substrings never split. Empty clauses are dropped, so blank input
// yields no clauses.
func Clauses(text string) []Clause {
	quotes := quoteSpans(text)

	var out []Clause
	emit := func(start, end int) {
		seg := text[start:end]
		trimmed := strings.TrimLeft(seg, trimSet)
		start += len(seg) - len(trimmed)
		trimmed = strings.TrimRight(trimmed, trimSet)
		if trimmed == "" {
			return
		}
		out = append(out, Clause{
			Index: len(out),
			Text:  trimmed,
			Start: start,
			End:   start + len(trimmed),
		})
	}

	prev := 0
	for _, m := range connector.FindAllStringIndex(text, -1) {
		if overlapsAny(m, quotes) {
			continue
		}
		emit(prev, m[0])
		prev = m[1]
	}
	emit(prev, len(text))
	return out
}

// Split returns the clause texts of Clauses(text).
func Split(text string) []string {
	clauses := Clauses(text)
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.Text
	}
	return out
}

func overlapsAny(span []int, ranges [][]int) bool {
	for _, r := range ranges {
		if span[0] < r[1] && r[0] < span[1] {
			return true
		}
	}
	return false
}

// quoteSpans returns the byte ranges of quoted substrings. An apostrophe
// between two word characters (don't, it's) is not a delimiter. An opening
// quote without a closing one quotes nothing.
func quoteSpans(text string) [][]int {
	var spans [][]int
	for i := 0; i < len(text); i++ {
		if !isDelimiter(text, i) {
			continue
		}
		j := i + 1
		for j < len(text) && !(text[j] == text[i] && isDelimiter(text, j)) {
			j++
		}
		if j == len(text) {
			continue
		}
		spans = append(spans, []int{i, j + 1})
		i = j
	}
	return spans
}

func isDelimiter(text string, i int) bool {
	switch text[i] {
	case '"', '`':
		return true
	case '\'':
		return i == 0 || i == len(text)-1 || !isWordByte(text[i-1]) || !isWordByte(text[i+1])
	}
	return false
}

// isWordByte treats every non-ASCII byte as part of a word.
func isWordByte(c byte) bool {
	return c >= utf8.RuneSelf || c == '_' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
