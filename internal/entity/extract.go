// Package entity pulls slot values (commit message, branch, ref target) out
// of raw request text. Values keep their original casing and punctuation.
package entity

import (
	"regexp"
	"strings"

	"github.com/google/shlex"

	"github.com/shahar-caura/gitnl/internal/intent"
)

var refToken = regexp.MustCompile(`^[A-Za-z0-9._\-/~^]+$`)

var messagePattern = regexp.MustCompile(
	"(?i)\\b(?:with\\s+(?:the\\s+)?message|message|msg)\\s+(?P<value>['\"`]?[^'\"`]+['\"`]?)")

// Tried in order; across all of them the right-most capture wins.
var branchPatterns = compileAll(
	`\bbranch\s+(?:called|named|with\s+name\s+)?(?P<value>[_A-Za-z0-9.\-/]+)`,
	`\b(?:create|make|new)\s+(?:a\s+)?branch(?:\s+(?:called|named|with\s+name))?\s+(?P<value>[_A-Za-z0-9.\-/]+)`,
	`\b(?:switch|checkout|change|go)\b.*?\bbranch\s+(?P<value>[_A-Za-z0-9.\-/]+)`,
	`\b(?:push|publish|send)\s+(?:my\s+)?branch\s+(?P<value>[_A-Za-z0-9.\-/]+)`,
	`\b(?:pull|sync|update)\b.*?\borigin\s+(?P<value>[_A-Za-z0-9.\-/]+)`,
	`\brebase\b.*\b(?:onto|on|with|against)\s+(?P<value>[_A-Za-z0-9.\-/~^]+)`,
	`\b(?:checkout|switch|go)\s+(?:to\s+)?(?P<value>[_A-Za-z0-9.\-/]+)\b`,
)

var targetPatterns = compileAll(
	`\breset\b.*?\bto\s+(?P<value>[_A-Za-z0-9.\-/~^]+)`,
	`\breset\s+(?:--)?(?:soft|hard)?\s*(?P<value>[_A-Za-z0-9.\-/~^]+)`,
	`\b(?P<value>HEAD[~^][A-Za-z0-9._\-/~^]*)`,
)

// Words the terse phrase patterns can capture that are never branch names.
var branchFiller = map[string]bool{
	"to": true, "the": true, "a": true, "an": true,
	"my": true, "me": true, "this": true, "over": true,
}

// Words the target patterns can capture that are never refs. The reset
// mode words land here when no ref follows them.
var targetStopwords = map[string]bool{
	"everything": true, "changes": true, "work": true,
	"soft": true, "hard": true,
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?i)" + e)
	}
	return out
}

// Extract returns every slot it can find in text. Flag-style tokens are read
// first; phrase patterns only fill slots the flags left empty.
func Extract(text string) intent.Entities {
	b := parseFlags(text)
	applyPatterns(text, b)
	return b.entities
}

// ForIntent is Extract filtered to the slot allow-list of i. Intents outside
// the catalog get the unfiltered extraction.
func ForIntent(i intent.Intent, text string) intent.Entities {
	ents := Extract(text)
	slots, ok := intent.AllowedSlots(i)
	if !ok {
		return ents
	}
	return ents.Only(slots)
}

type bucket struct {
	entities intent.Entities
}

// set stores a cleaned value. Existing slots are kept unless overwrite is set.
func (b *bucket) set(slot intent.Slot, raw string, validateRef, overwrite bool) {
	if b.entities.Has(slot) && !overwrite {
		return
	}
	v := stripWrapping(raw)
	if v == "" {
		return
	}
	if validateRef && !isRef(v) {
		return
	}
	b.entities = b.entities.With(slot, v)
}

func stripWrapping(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, "`\"'")
	v = strings.Trim(v, "[]()")
	return strings.TrimSpace(v)
}

func isRef(v string) bool {
	return v != "" && refToken.MatchString(v)
}

// tokenize splits like a shell. Unbalanced quotes fall back to whitespace.
func tokenize(text string) []string {
	tokens, err := shlex.Split(text)
	if err != nil {
		return strings.Fields(text)
	}
	return tokens
}

func parseFlags(text string) *bucket {
	b := &bucket{entities: intent.Entities{}}
	tokens := tokenize(text)

	next := func(i *int) (string, bool) {
		if *i+1 < len(tokens) {
			*i++
			return tokens[*i], true
		}
		return "", false
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		low := strings.ToLower(tok)

		switch {
		case strings.HasPrefix(low, "--message="):
			b.set(intent.SlotMessage, afterEquals(tok), false, false)
		case low == "--message" || low == "--msg" || low == "-m":
			if v, ok := next(&i); ok && v != "" {
				b.set(intent.SlotMessage, v, false, false)
			}
		case strings.HasPrefix(low, "-m") && len(tok) > 2:
			b.set(intent.SlotMessage, tok[2:], false, false)

		case strings.HasPrefix(low, "--branch="):
			b.set(intent.SlotBranch, afterEquals(tok), true, false)
		case low == "--branch" || low == "-b":
			if v, ok := next(&i); ok && v != "" {
				b.set(intent.SlotBranch, v, true, false)
			}
		case strings.HasPrefix(low, "-b") && len(tok) > 2:
			b.set(intent.SlotBranch, tok[2:], true, false)

		case strings.HasPrefix(low, "--target="), strings.HasPrefix(low, "--to="), strings.HasPrefix(low, "--onto="):
			b.set(intent.SlotTarget, afterEquals(tok), true, false)
		case low == "--target" || low == "--to" || low == "--onto":
			if v, ok := next(&i); ok && v != "" {
				b.set(intent.SlotTarget, v, true, false)
			}
		}
	}
	return b
}

func afterEquals(tok string) string {
	_, v, _ := strings.Cut(tok, "=")
	return v
}

func applyPatterns(text string, b *bucket) {
	if !b.entities.Has(intent.SlotMessage) {
		if m := messagePattern.FindStringSubmatch(text); m != nil {
			if v := m[messagePattern.SubexpIndex("value")]; v != "" {
				b.set(intent.SlotMessage, v, false, false)
			}
		}
	}

	if !b.entities.Has(intent.SlotBranch) {
		if v, ok := rightmost(text, branchPatterns, branchFiller); ok {
			b.set(intent.SlotBranch, v, false, true)
		}
	}

	if !b.entities.Has(intent.SlotTarget) {
		if v, ok := rightmost(text, targetPatterns, targetStopwords); ok {
			b.set(intent.SlotTarget, v, false, true)
		}
	}
}

// rightmost runs every pattern over text and returns the valid capture that
// starts furthest right. Ties go to the later pattern. Captures that look
// like flags are skipped.
func rightmost(text string, patterns []*regexp.Regexp, reject map[string]bool) (string, bool) {
	best, bestPos := "", -1
	for _, re := range patterns {
		g := re.SubexpIndex("value")
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*g], loc[2*g+1]
			if start < 0 {
				continue
			}
			v := stripWrapping(text[start:end])
			if !isRef(v) || strings.HasPrefix(v, "-") || reject[strings.ToLower(v)] {
				continue
			}
			if start >= bestPos {
				best, bestPos = v, start
			}
		}
	}
	return best, bestPos >= 0
}
