// Package router runs the classification cascade: rules, then semantic
// similarity, then the remote model.
package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shahar-caura/gitnl/internal/clause"
	"github.com/shahar-caura/gitnl/internal/entity"
	"github.com/shahar-caura/gitnl/internal/intent"
	"github.com/shahar-caura/gitnl/internal/llm"
	"github.com/shahar-caura/gitnl/internal/metrics"
	"github.com/shahar-caura/gitnl/internal/rule"
	"github.com/shahar-caura/gitnl/internal/semantic"
)

// DefaultBranch is substituted when a branch intent names no branch.
const DefaultBranch = "default_branch"

// RuleDetector resolves text with deterministic rules.
type RuleDetector interface {
	Detect(text string) (intent.Result, bool)
}

// SemanticScorer returns the best catalog match without applying a threshold.
type SemanticScorer interface {
	Score(text string) (semantic.Match, bool)
}

// LLMDetector is the remote fallback.
type LLMDetector interface {
	Detect(ctx context.Context, text string, allowed []intent.Intent) (intent.Result, error)
	DetectMany(ctx context.Context, clauses []string, allowed []intent.Intent) ([]llm.ClauseIntent, error)
}

// Router classifies requests. It holds no mutable state and may be shared.
type Router struct {
	rules         RuleDetector
	semantic      SemanticScorer
	llm           LLMDetector
	llmEnabled    bool
	thresholds    Thresholds
	defaultBranch string
	allowed       []intent.Intent
	logger        *slog.Logger
	metrics       *metrics.Recorder
}

// Option configures a Router.
type Option func(*Router)

// WithRuleDetector replaces the embedded rule table matcher.
func WithRuleDetector(d RuleDetector) Option {
	return func(r *Router) { r.rules = d }
}

// WithSemanticScorer replaces the embedded catalog matcher.
func WithSemanticScorer(s SemanticScorer) Option {
	return func(r *Router) { r.semantic = s }
}

// WithLLM sets the remote fallback and enables it.
func WithLLM(d LLMDetector) Option {
	return func(r *Router) {
		r.llm = d
		r.llmEnabled = d != nil
	}
}

// WithLLMEnabled turns the remote fallback on or off. It has no effect
// without a detector.
func WithLLMEnabled(enabled bool) Option {
	return func(r *Router) { r.llmEnabled = enabled }
}

// WithThresholds sets the semantic acceptance thresholds.
func WithThresholds(t Thresholds) Option {
	return func(r *Router) { r.thresholds = t }
}

// WithDefaultBranch sets the branch substituted when none was given.
func WithDefaultBranch(name string) Option {
	return func(r *Router) {
		if name != "" {
			r.defaultBranch = name
		}
	}
}

// WithLogger sets the logger for cascade decisions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records results and latencies.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Router) { r.metrics = m }
}

// New returns a Router. Matchers not supplied through options are built from
// the embedded rule table and semantic catalog.
func New(opts ...Option) (*Router, error) {
	r := &Router{
		thresholds:    DefaultThresholds(),
		defaultBranch: DefaultBranch,
		allowed:       intent.All(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.rules == nil {
		table, err := rule.DefaultTable()
		if err != nil {
			return nil, fmt.Errorf("loading rule table: %w", err)
		}
		r.rules = rule.NewMatcher(table)
	}
	if r.semantic == nil {
		catalog, err := semantic.DefaultCatalog()
		if err != nil {
			return nil, fmt.Errorf("loading semantic catalog: %w", err)
		}
		r.semantic = semantic.NewMatcher(catalog)
	}
	return r, nil
}

// LLMEnabled reports whether unresolved clauses reach the remote model.
func (r *Router) LLMEnabled() bool {
	return r.llmEnabled && r.llm != nil
}

// Route classifies text as a single clause.
func (r *Router) Route(ctx context.Context, text string) intent.Result {
	start := time.Now()
	res := r.route(ctx, text)
	r.metrics.ObserveRoute(metrics.ModeSingle, time.Since(start))
	r.metrics.ObserveResult(res)
	return res
}

// RouteMany splits text into clauses and classifies each, preserving clause
// order. The result always has at least one element.
func (r *Router) RouteMany(ctx context.Context, text string) []intent.Result {
	start := time.Now()
	results := r.routeMany(ctx, text)
	r.metrics.ObserveRoute(metrics.ModeMulti, time.Since(start))
	for _, res := range results {
		r.metrics.ObserveResult(res)
	}
	return results
}

func (r *Router) route(ctx context.Context, text string) intent.Result {
	if strings.TrimSpace(text) == "" {
		return intent.UnknownResult("empty input")
	}

	res, ok, note := r.deterministic(text)
	if ok {
		return res
	}

	if !r.LLMEnabled() {
		return unresolved(note, "disabled.")
	}
	res, err := r.llm.Detect(ctx, text, r.allowed)
	r.metrics.ObserveLLMCall(metrics.ModeSingle, err)
	if err != nil {
		r.logger.Warn("llm fallback failed", "error", err)
		return unresolved(note, err.Error())
	}
	if !intent.Known(res.Intent) {
		return unresolved(note, fmt.Sprintf("LLM intent '%s' not in allowed list.", res.Intent))
	}
	res.Source = intent.SourceLLM
	res.Entities = entity.ForIntent(res.Intent, text)
	r.logger.Debug("llm match", "intent", res.Intent, "confidence", res.Confidence)
	return res
}

func (r *Router) routeMany(ctx context.Context, text string) []intent.Result {
	clauses := clause.Split(text)
	switch len(clauses) {
	case 0:
		return []intent.Result{intent.UnknownResult("empty input")}
	case 1:
		return []intent.Result{r.route(ctx, clauses[0])}
	}

	results := make([]intent.Result, len(clauses))
	notes := make([]string, len(clauses))
	pending := 0
	for i, c := range clauses {
		res, ok, note := r.deterministic(c)
		results[i], notes[i] = res, note
		if !ok {
			pending++
		}
	}
	if pending == 0 {
		return results
	}

	outcome := "disabled."
	if r.LLMEnabled() {
		items, err := r.llm.DetectMany(ctx, clauses, r.allowed)
		r.metrics.ObserveLLMCall(metrics.ModeBatch, err)
		if err == nil {
			return r.fromBatch(clauses, notes, results, items)
		}
		r.logger.Warn("llm batch fallback failed", "clauses", len(clauses), "error", err)
		outcome = err.Error()
	}

	for i := range results {
		if !results[i].Resolved() {
			results[i] = unresolved(notes[i], outcome)
		}
	}
	return results
}

// fromBatch replaces each clause result with the model's answer for that
// clause index. Where the model gave no usable intent, a deterministic result
// is kept; an unresolved clause stays unknown with the model's reason appended.
func (r *Router) fromBatch(clauses, notes []string, results []intent.Result, items []llm.ClauseIntent) []intent.Result {
	byIndex := make(map[int]llm.ClauseIntent, len(items))
	for _, item := range items {
		if item.ClauseIndex < 0 || item.ClauseIndex >= len(clauses) {
			continue
		}
		if prev, ok := byIndex[item.ClauseIndex]; ok && !betterItem(item, prev) {
			continue
		}
		byIndex[item.ClauseIndex] = item
	}

	out := make([]intent.Result, len(clauses))
	for i := range clauses {
		item, ok := byIndex[i]
		if !ok || !accepted(item) {
			if results[i].Resolved() {
				out[i] = results[i]
				continue
			}
			reason := item.Reason
			if reason == "" {
				reason = "LLM did not return an intent for this clause."
			}
			out[i] = unresolved(notes[i], reason)
			continue
		}
		out[i] = intent.Result{
			Intent:     item.Intent,
			Confidence: item.Confidence,
			Source:     intent.SourceLLM,
			Entities:   entity.ForIntent(item.Intent, clauses[i]),
			Reason:     item.Reason,
		}
		r.logger.Debug("llm batch match", "clause", i, "intent", item.Intent, "confidence", item.Confidence)
	}
	return out
}

func accepted(item llm.ClauseIntent) bool {
	return item.Intent != intent.Unknown && intent.Known(item.Intent)
}

// betterItem reports whether candidate should replace prev for the same
// clause: an accepted answer beats an unaccepted one, then higher confidence.
func betterItem(candidate, prev llm.ClauseIntent) bool {
	if accepted(candidate) != accepted(prev) {
		return accepted(candidate)
	}
	return accepted(candidate) && candidate.Confidence > prev.Confidence
}

// deterministic runs rules then semantic similarity. On a miss it returns a
// note describing the best semantic candidate.
func (r *Router) deterministic(text string) (intent.Result, bool, string) {
	if res, ok := r.rules.Detect(text); ok {
		res = r.withDefaultBranch(res)
		r.logger.Debug("rule match", "intent", res.Intent)
		return res, true, ""
	}

	match, ok := r.semantic.Score(text)
	if !ok {
		return intent.Result{}, false, "Semantic match unavailable (no tokens)."
	}
	threshold := r.thresholds.For(match.Intent)
	if match.Score >= threshold {
		r.logger.Debug("semantic match", "intent", match.Intent, "example", match.Text, "score", match.Score)
		return intent.Result{
			Intent:     match.Intent,
			Confidence: match.Score,
			Source:     intent.SourceSemantic,
			Entities:   entity.ForIntent(match.Intent, text),
			Reason: fmt.Sprintf("Matched semantic example '%s' with similarity %.2f; threshold %.2f.",
				match.Text, match.Score, threshold),
		}, true, ""
	}
	r.logger.Debug("semantic below threshold", "intent", match.Intent, "score", match.Score, "threshold", threshold)
	return intent.Result{}, false, fmt.Sprintf("Best semantic match: '%s' -> %s with similarity %.2f; threshold %.2f.",
		match.Text, match.Intent, match.Score, threshold)
}

// withDefaultBranch fills in the configured branch for branch intents that
// named none. Only rule results get this treatment.
func (r *Router) withDefaultBranch(res intent.Result) intent.Result {
	if res.Source != intent.SourceRule || !intent.RequiresBranch(res.Intent) {
		return res
	}
	b := res.Entities.Value(intent.SlotBranch)
	if b != "" && !strings.EqualFold(b, "branch") {
		return res
	}
	res.Entities = res.Entities.With(intent.SlotBranch, r.defaultBranch)
	res.Reason = fmt.Sprintf("Branch name not provided; defaulting to '%s' unless a name is specified.", r.defaultBranch)
	return res
}

func unresolved(semanticNote, llmOutcome string) intent.Result {
	return intent.UnknownResult(fmt.Sprintf("No intent matched by rules; %s LLM fallback: %s", semanticNote, llmOutcome))
}
