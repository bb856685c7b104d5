package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahar-caura/gitnl/internal/config"
	"github.com/shahar-caura/gitnl/internal/intent"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// isolateEnv blanks the config overrides so the host cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvAPIKey, config.EnvModel, config.EnvBaseURL,
		config.EnvLLMFallback, config.EnvLLMTimeout, config.EnvDefaultBranch,
	} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(discardLogger())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func decodeResults(t *testing.T, out string) []intent.Result {
	t.Helper()
	var results []intent.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results), out)
	return results
}

func TestRootCmd_UnknownArgsFallThroughToClassify(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "commit", "changes", "and", "push", "commit")
	require.NoError(t, err)

	results := decodeResults(t, out)
	require.Len(t, results, 2)
	assert.Equal(t, intent.CommitChanges, results[0].Intent)
	assert.Equal(t, intent.PushCommitToOrigin, results[1].Intent)
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestClassify_SingleJSON(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "classify", "--single", "--format", "json", "undo my last commit")
	require.NoError(t, err)

	var res intent.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, intent.UndoCommitSoft, res.Intent)
	assert.Equal(t, intent.SourceRule, res.Source)
}

func TestClassify_Table(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "classify", "-o", "table", "create branch feature/foo then push commit")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#  INTENT"), lines[0])
	assert.Contains(t, lines[1], "create_branch")
	assert.Contains(t, lines[1], `branch="feature/foo"`)
	assert.Contains(t, lines[2], "push_commit_to_origin")
	assert.Contains(t, lines[2], "  -  ")
}

func TestClassify_NoLLM(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "classify", "--single", "--no-llm", "-o", "json", "tell me a joke")
	require.NoError(t, err)

	var res intent.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, intent.Unknown, res.Intent)
	assert.Contains(t, res.Reason, "LLM fallback: disabled.")
}

func TestClassify_MissingAPIKeySoftSkips(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "classify", "--single", "-o", "json", "zzz qqq")
	require.NoError(t, err)

	var res intent.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, intent.Unknown, res.Intent)
	assert.Contains(t, res.Reason, "OPENROUTER_API_KEY not set")
}

func TestClassify_LLMFallback(t *testing.T) {
	isolateEnv(t)

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"intent\":\"stash_changes\",\"confidence\":0.9,\"reason\":\"parked\"}"}}]}`))
	}))
	defer srv.Close()

	t.Setenv(config.EnvAPIKey, "sk-test")
	t.Setenv(config.EnvBaseURL, srv.URL)

	out, err := execute(t, "classify", "--single", "-o", "json", "zzz qqq")
	require.NoError(t, err)

	var res intent.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, calls)
	assert.Equal(t, intent.StashChanges, res.Intent)
	assert.Equal(t, intent.SourceLLM, res.Source)
}

func TestClassify_FillDefaults(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "classify", "--fill-defaults", "-o", "json", "commit and then soft reset")
	require.NoError(t, err)

	results := decodeResults(t, out)
	require.Len(t, results, 2)
	assert.Equal(t, "default_message", results[0].Entities.Value(intent.SlotMessage))
	assert.Equal(t, intent.UndoCommitSoft, results[1].Intent)
	assert.False(t, results[1].Entities.Has(intent.SlotTarget))
}

func TestClassify_ConfigFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "gitnl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[defaults]\nbranch = \"main\"\n"), 0o644))

	out, err := execute(t, "--config", path, "classify", "-o", "json", "create branch")
	require.NoError(t, err)

	results := decodeResults(t, out)
	require.Len(t, results, 1)
	assert.Equal(t, "main", results[0].Entities.Value(intent.SlotBranch))
}

func TestClassify_BadConfig(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "--config", "/nonexistent/gitnl.yaml", "classify", "commit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestClassify_BadFormat(t *testing.T) {
	_, err := execute(t, "classify", "--format", "xml", "commit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
}

func TestIntents(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "intents")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(intent.All())+1)
	assert.Contains(t, lines[1], "commit_changes")
	assert.Contains(t, lines[1], "message")
	assert.Contains(t, lines[1], "0.70")
	assert.Contains(t, out, "default_branch")
}

func TestIntents_FuzzyFilter(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "intents", "stsh")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[1], "stash_changes"), lines[1])
}

func TestIntents_NoMatch(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "intents", "qqqq")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no intent matches "qqqq"`)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gitnl dev\n", out)
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := execute(t, "completion", shell)
		require.NoError(t, err, shell)
		assert.Contains(t, out, "gitnl", shell)
	}
}

func TestCompletion_UnsupportedShell(t *testing.T) {
	_, err := execute(t, "completion", "tcsh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported shell "tcsh"`)
}

func TestCompletion_IntentNames(t *testing.T) {
	out, err := execute(t, "__complete", "intents", "")
	require.NoError(t, err)
	for _, name := range intentNames() {
		assert.Contains(t, out, name+"\n")
	}
	assert.Contains(t, out, ":4\n")
}

func TestCompletion_FormatValues(t *testing.T) {
	out, err := execute(t, "__complete", "classify", "--format", "")
	require.NoError(t, err)
	assert.Equal(t, "auto\njson\ntable\n:4\n", out)
}

func TestClassify_ResetModeFillsTarget(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "classify", "--fill-defaults", "-o", "json", "reset --hard")
	require.NoError(t, err)

	results := decodeResults(t, out)
	require.Len(t, results, 1)
	assert.Equal(t, intent.ResetHard, results[0].Intent)
	assert.Equal(t, "HEAD", results[0].Entities.Value(intent.SlotTarget))
}

func TestFillDefaults(t *testing.T) {
	d := config.DefaultsConfig{
		CommitMessage:   "cm",
		StashMessage:    "sm",
		ResetTarget:     "HEAD",
		ResetTargetHard: "origin/main",
	}
	in := []intent.Result{
		{Intent: intent.CommitChanges},
		{Intent: intent.StashChanges, Entities: intent.Entities{{Slot: intent.SlotMessage, Value: "keep"}}},
		{Intent: intent.ResetSoft},
		{Intent: intent.ResetHard},
		{Intent: intent.PushBranch},
	}

	out := fillDefaults(in, d)

	assert.Equal(t, "cm", out[0].Entities.Value(intent.SlotMessage))
	assert.Equal(t, "keep", out[1].Entities.Value(intent.SlotMessage))
	assert.Equal(t, "HEAD", out[2].Entities.Value(intent.SlotTarget))
	assert.Equal(t, "origin/main", out[3].Entities.Value(intent.SlotTarget))
	assert.Empty(t, out[4].Entities)
	assert.Empty(t, in[0].Entities, "input must not be modified")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "requests.txt")
	require.NoError(t, os.WriteFile(path, []byte("commit changes and push commit\n"), 0o644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	r, err := wireRouter(cfg, discardLogger(), nil, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, path, r, &out, discardLogger()) }()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("stash changes\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\n") == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	var records []watchRecord
	dec := json.NewDecoder(strings.NewReader(out.String()))
	for dec.More() {
		var rec watchRecord
		require.NoError(t, dec.Decode(&rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)
	assert.Equal(t, "commit changes and push commit", records[0].Text)
	assert.Len(t, records[0].Results, 2)
	assert.Equal(t, "stash changes", records[1].Text)
	assert.Equal(t, intent.StashChanges, records[1].Results[0].Intent)
	assert.NotEqual(t, records[0].ID, records[1].ID)
	assert.Len(t, records[0].ID, 36)
}
