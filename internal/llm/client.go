// Package llm is the remote fallback classifier. It talks to an
// OpenAI-compatible chat-completions endpoint (OpenRouter by default) and
// validates the model's answer against the allowed intent list.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shahar-caura/gitnl/internal/intent"
)

const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultModel     = "meta-llama/llama-3.2-1b-instruct"
	DefaultThreshold = 0.60
	DefaultTimeout   = 6 * time.Second
)

// Client classifies text with a remote model. A Client makes at most one
// request per call and never retries.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	threshold float64
	timeout   time.Duration
	client    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API base URL. A trailing slash is dropped.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithThreshold sets the minimum accepted confidence.
func WithThreshold(t float64) Option {
	return func(c *Client) {
		c.threshold = t
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// New returns a Client. An empty apiKey is allowed; every call then fails
// with ErrNoAPIKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		model:     DefaultModel,
		baseURL:   DefaultBaseURL,
		threshold: DefaultThreshold,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// ClauseIntent is the reconciled answer for one clause of a batch.
type ClauseIntent struct {
	ClauseIndex int
	Intent      intent.Intent
	Confidence  float64
	Reason      string
}

// Detect classifies a single input. It returns an error whenever no intent
// was accepted; the error text explains why.
func (c *Client) Detect(ctx context.Context, text string, allowed []intent.Intent) (intent.Result, error) {
	if len(allowed) == 0 {
		return intent.Result{}, failf(ErrSkipped, "LLM fallback skipped: no allowed intents provided.")
	}
	if c.apiKey == "" {
		return intent.Result{}, failf(ErrNoAPIKey, "LLM fallback skipped: OPENROUTER_API_KEY not set.")
	}

	system, user := BuildPrompt(text, allowed)
	obj, err := c.complete(ctx, system, user)
	if err != nil {
		return intent.Result{}, err
	}

	name, ok := obj["intent"].(string)
	if !ok {
		return intent.Result{}, failf(ErrMalformedResponse, "LLM response missing intent string.")
	}
	in, conf, err := c.validate(name, confidence(obj["confidence"]), allowed)
	if err != nil {
		return intent.Result{}, err
	}
	return intent.Result{
		Intent:     in,
		Confidence: conf,
		Source:     intent.SourceLLM,
		Entities:   intent.Entities{},
		Reason:     c.acceptReason(in, conf),
	}, nil
}

// DetectMany classifies every clause in one request. The returned slice has
// exactly one entry per clause, in clause order; clauses the model skipped or
// answered invalidly are Unknown with an explanatory Reason.
func (c *Client) DetectMany(ctx context.Context, clauses []string, allowed []intent.Intent) ([]ClauseIntent, error) {
	if len(clauses) == 0 {
		return nil, failf(ErrSkipped, "LLM fallback skipped: no clauses provided.")
	}
	if len(allowed) == 0 {
		return nil, failf(ErrSkipped, "LLM fallback skipped: no allowed intents provided.")
	}
	if c.apiKey == "" {
		return nil, failf(ErrNoAPIKey, "LLM fallback skipped: OPENROUTER_API_KEY not set.")
	}

	system, user := BuildBatchPrompt(clauses, allowed)
	obj, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	items, ok := obj["intents"].([]any)
	if !ok {
		return nil, failf(ErrMalformedResponse, "LLM response missing intents list.")
	}

	out := make([]ClauseIntent, len(clauses))
	for i := range out {
		out[i] = ClauseIntent{
			ClauseIndex: i,
			Intent:      intent.Unknown,
			Reason:      "LLM did not return an intent for this clause.",
		}
	}

	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		idx, ok := clauseIndex(item["clause_index"])
		if !ok || idx < 0 || idx >= len(clauses) {
			continue
		}
		cand := c.judge(idx, item, allowed)

		existing := out[idx]
		if existing.Intent != intent.Unknown {
			if cand.Intent == intent.Unknown || cand.Confidence <= existing.Confidence {
				continue
			}
		}
		out[idx] = cand
	}
	return out, nil
}

// judge validates one batch item. Rejected items become Unknown but keep
// the reported confidence, except when it is out of range.
func (c *Client) judge(idx int, item map[string]any, allowed []intent.Intent) ClauseIntent {
	conf := confidence(item["confidence"])
	name, ok := item["intent"].(string)
	if !ok {
		name = string(intent.Unknown)
	}
	in, accepted, err := c.validate(name, conf, allowed)
	if err != nil {
		if errors.Is(err, errOutOfRange) {
			conf = 0
		}
		return ClauseIntent{ClauseIndex: idx, Intent: intent.Unknown, Confidence: conf, Reason: err.Error()}
	}
	return ClauseIntent{ClauseIndex: idx, Intent: in, Confidence: accepted, Reason: c.acceptReason(in, accepted)}
}

var errOutOfRange = errors.New("llm: confidence out of range")

func (c *Client) validate(name string, conf float64, allowed []intent.Intent) (intent.Intent, float64, error) {
	in := intent.Intent(name)
	switch {
	case in == intent.Unknown:
		return "", 0, failf(ErrRejected, "LLM returned unknown.")
	case !slices.Contains(allowed, in):
		return "", 0, failf(ErrRejected, "LLM intent '%s' not in allowed list.", name)
	case conf < 0 || conf > 1:
		return "", 0, &reasonError{kind: errors.Join(ErrRejected, errOutOfRange), reason: "LLM confidence out of range."}
	case conf < c.threshold:
		return "", 0, failf(ErrRejected, "LLM confidence %.2f below threshold %.2f.", conf, c.threshold)
	}
	return in, conf, nil
}

func (c *Client) acceptReason(in intent.Intent, conf float64) string {
	return fmt.Sprintf("LLM (%s) classified intent '%s' with confidence %.2f.", c.model, in, conf)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends one chat-completions request and decodes the message
// content as a JSON object.
func (c *Client) complete(ctx context.Context, system, user string) (map[string]any, error) {
	payload, err := json.Marshal(chatRequest{
		Model:          c.model,
		Temperature:    0,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, failf(ErrRequest, "LLM call failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, failf(ErrRequest, "LLM call failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, failf(ErrRequest, "LLM network error: timed out after %s", c.timeout)
		}
		return nil, failf(ErrRequest, "LLM network error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failf(ErrRequest, "LLM network error: reading response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failf(ErrRequest, "LLM HTTP error %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var envelope chatResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, failf(ErrMalformedResponse, "LLM response parse failed: %v", err)
	}
	if len(envelope.Choices) == 0 {
		return nil, failf(ErrMalformedResponse, "LLM response parse failed: no choices")
	}

	dec := json.NewDecoder(strings.NewReader(stripCodeFences(envelope.Choices[0].Message.Content)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, failf(ErrMalformedResponse, "LLM response parse failed: %v", err)
	}
	if obj == nil {
		return nil, failf(ErrMalformedResponse, "LLM response parse failed: content is not a JSON object")
	}
	return obj, nil
}

// confidence converts a loosely typed confidence value. Anything that is not
// a number, numeric string, or boolean counts as 0.
func confidence(v any) float64 {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if x {
			return 1
		}
		return 0
	}
	return 0
}

// clauseIndex accepts integer JSON numbers only.
func clauseIndex(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int(i), true
}

// stripCodeFences removes markdown code fences wrapping JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
