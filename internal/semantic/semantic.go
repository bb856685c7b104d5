// Package semantic scores text against a fixed catalog of example phrases
// using L2-normalized bag-of-words vectors over a shared vocabulary.
package semantic

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/shahar-caura/gitnl/internal/entity"
	"github.com/shahar-caura/gitnl/internal/intent"
	"github.com/shahar-caura/gitnl/internal/normalize"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Entry lists the example phrases for one intent.
type Entry struct {
	Intent   intent.Intent `yaml:"intent"`
	Examples []string      `yaml:"examples"`
}

// Example is one embedded catalog phrase.
type Example struct {
	Intent intent.Intent
	Text   string

	embedding []float64
}

// Catalog is the immutable vocabulary and example set. It is safe to share
// between any number of matchers.
type Catalog struct {
	vocab    []string
	index    map[string]int
	examples []Example
}

// NewCatalog builds a catalog. Examples keep entry order, which is the
// tie-break order when scores are equal.
func NewCatalog(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("semantic: catalog is empty")
	}

	var errs []error
	set := map[string]struct{}{}
	for i, e := range entries {
		if !intent.Known(e.Intent) {
			errs = append(errs, fmt.Errorf("semantic: entry %d: unknown intent %q", i, e.Intent))
		}
		if len(e.Examples) == 0 {
			errs = append(errs, fmt.Errorf("semantic: entry %d (%s): no examples", i, e.Intent))
		}
		for _, ex := range e.Examples {
			for _, tok := range normalize.Tokens(ex) {
				set[tok] = struct{}{}
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	c := &Catalog{index: make(map[string]int, len(set))}
	for tok := range set {
		c.vocab = append(c.vocab, tok)
	}
	slices.Sort(c.vocab)
	for i, tok := range c.vocab {
		c.index[tok] = i
	}

	for _, e := range entries {
		for _, ex := range e.Examples {
			c.examples = append(c.examples, Example{
				Intent:    e.Intent,
				Text:      ex,
				embedding: c.embed(ex),
			})
		}
	}
	return c, nil
}

// LoadCatalog parses a YAML list of entries and builds a catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("semantic: parsing catalog: %w", err)
	}
	return NewCatalog(entries)
}

// DefaultCatalog returns the embedded catalog, built once.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = LoadCatalog(defaultCatalogYAML)
	})
	return defaultCatalog, defaultErr
}

// Vocabulary returns the sorted vocabulary.
func (c *Catalog) Vocabulary() []string {
	return slices.Clone(c.vocab)
}

// Examples returns the catalog examples in tie-break order.
func (c *Catalog) Examples() []Example {
	return slices.Clone(c.examples)
}

// embed returns the L2-normalized token-count vector of text. Tokens outside
// the vocabulary are ignored. A text with no known tokens yields all zeros.
func (c *Catalog) embed(text string) []float64 {
	vec := make([]float64, len(c.vocab))
	for _, tok := range normalize.Tokens(text) {
		if i, ok := c.index[tok]; ok {
			vec[i]++
		}
	}
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	n := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= n
	}
	return vec
}

// Match is the best catalog example for a query.
type Match struct {
	Intent intent.Intent
	Text   string
	Score  float64
}

// Matcher scores text against a catalog. It applies no threshold.
type Matcher struct {
	catalog *Catalog
}

// NewMatcher returns a matcher over catalog.
func NewMatcher(catalog *Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

var branchMentions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(create|make|new)\s+(?:a\s+)?branch\s+(?:called|named)?\s*[A-Za-z0-9._\-/]+`),
	regexp.MustCompile(`(?i)\b(switch|checkout|change|go)\s+(?:to\s+)?(?:the\s+)?branch\s+[A-Za-z0-9._\-/]+`),
	regexp.MustCompile(`(?i)\b(push|publish|send)\s+(?:my\s+)?branch\s+[A-Za-z0-9._\-/]+`),
}

// neutralize drops message fragments and replaces explicit branch names so
// slot values do not sway similarity.
func neutralize(text string) string {
	text = entity.StripMessage(text)
	for _, re := range branchMentions {
		text = re.ReplaceAllString(text, "${1} branch")
	}
	return text
}

// Score returns the catalog example most similar to text. The boolean is
// false when text shares no token with the vocabulary.
func (m *Matcher) Score(text string) (Match, bool) {
	query := m.catalog.embed(neutralize(text))
	if !nonZero(query) {
		return Match{}, false
	}

	best, bestScore := -1, -1.0
	for i, ex := range m.catalog.examples {
		s := dot(query, ex.embedding)
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return Match{}, false
	}
	ex := m.catalog.examples[best]
	return Match{Intent: ex.Intent, Text: ex.Text, Score: bestScore}, true
}

func nonZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return true
		}
	}
	return false
}

// dot is the cosine similarity of two L2-normalized vectors.
func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
