// Package rule implements the deterministic rule matcher: a priority-ordered
// table of exact phrases and anchored patterns over normalized text.
package rule

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/shahar-caura/gitnl/internal/entity"
	"github.com/shahar-caura/gitnl/internal/intent"
	"github.com/shahar-caura/gitnl/internal/normalize"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Rule maps normalized text to one intent.
type Rule struct {
	Priority int
	Intent   intent.Intent
	Reason   string

	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

// Matches reports whether normalized equals an exact phrase or fully matches
// one of the patterns.
func (r *Rule) Matches(normalized string) bool {
	if _, ok := r.exact[normalized]; ok {
		return true
	}
	for _, p := range r.patterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}

// Table is an immutable rule list sorted by ascending priority.
type Table struct {
	rules []*Rule
}

// Rules returns the rules in evaluation order.
func (t *Table) Rules() []*Rule {
	return slices.Clone(t.rules)
}

type ruleDoc struct {
	Priority int      `yaml:"priority"`
	Intent   string   `yaml:"intent"`
	Reason   string   `yaml:"reason"`
	Exact    []string `yaml:"exact"`
	Patterns []string `yaml:"patterns"`
}

// LoadTable parses and validates a YAML rule list.
func LoadTable(data []byte) (*Table, error) {
	var docs []ruleDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("rule: parsing table: %w", err)
	}
	if len(docs) == 0 {
		return nil, errors.New("rule: table is empty")
	}

	var errs []error
	seen := make(map[int]int, len(docs))
	rules := make([]*Rule, 0, len(docs))
	for i, d := range docs {
		r, err := compileRule(d)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %d (%s): %w", i, d.Intent, err))
			continue
		}
		if prev, dup := seen[d.Priority]; dup {
			errs = append(errs, fmt.Errorf("rule %d (%s): priority %d already used by rule %d", i, d.Intent, d.Priority, prev))
			continue
		}
		seen[d.Priority] = i
		rules = append(rules, r)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	slices.SortFunc(rules, func(a, b *Rule) int { return a.Priority - b.Priority })
	return &Table{rules: rules}, nil
}

func compileRule(d ruleDoc) (*Rule, error) {
	in := intent.Intent(d.Intent)
	if !intent.Known(in) {
		return nil, fmt.Errorf("unknown intent %q", d.Intent)
	}
	if len(d.Exact) == 0 && len(d.Patterns) == 0 {
		return nil, errors.New("needs at least one exact phrase or pattern")
	}

	r := &Rule{
		Priority: d.Priority,
		Intent:   in,
		Reason:   d.Reason,
		exact:    make(map[string]struct{}, len(d.Exact)),
	}
	for _, phrase := range d.Exact {
		r.exact[normalize.Normalize(phrase)] = struct{}{}
	}
	for _, p := range d.Patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// DefaultTable returns the embedded rule table, parsed once.
func DefaultTable() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = LoadTable(defaultRulesYAML)
	})
	return defaultTable, defaultErr
}

// Matcher detects intents with a rule table.
type Matcher struct {
	table *Table
}

// NewMatcher returns a matcher over table.
func NewMatcher(table *Table) *Matcher {
	return &Matcher{table: table}
}

// Detect returns the intent of the first matching rule. Message fragments are
// removed before matching so their words cannot select a rule. Entities come
// from the original text, filtered to the intent's slots.
func (m *Matcher) Detect(text string) (intent.Result, bool) {
	normalized := normalize.Normalize(entity.StripMessage(text))
	if normalized == "" {
		return intent.Result{}, false
	}
	for _, r := range m.table.rules {
		if !r.Matches(normalized) {
			continue
		}
		reason := r.Reason
		if reason == "" {
			reason = fmt.Sprintf("Rule matched for intent '%s'.", r.Intent)
		}
		return intent.Result{
			Intent:     r.Intent,
			Confidence: 1.0,
			Source:     intent.SourceRule,
			Entities:   entity.ForIntent(r.Intent, text),
			Reason:     reason,
		}, true
	}
	return intent.Result{}, false
}
