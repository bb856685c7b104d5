package entity

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/shahar-caura/gitnl/internal/intent"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{"message flag", `commit -m "fix login bug"`, map[string]string{"message": "fix login bug"}},
		{"message equals flag", `commit --message="ship it"`, map[string]string{"message": "ship it"}},
		{"message concatenated short flag", `commit -mwip`, map[string]string{"message": "wip"}},
		{"branch from create phrase", "please create branch feature/auth-rework", map[string]string{"branch": "feature/auth-rework"}},
		{"rebase onto", "rebase onto main", map[string]string{"branch": "main"}},
		{"reset hard target", "reset --hard HEAD~2", map[string]string{"target": "HEAD~2"}},
		{"pull origin", "pull origin develop", map[string]string{"branch": "develop"}},
		{"natural commit message", `please commit everything with the message "fix the login flow"`, map[string]string{"message": "fix the login flow"}},
		{"natural stash message", "stash my current work with the message 'wip onboarding'", map[string]string{"message": "wip onboarding"}},
		{"create branch named", "could you create a branch named hotfix/login-page", map[string]string{"branch": "hotfix/login-page"}},
		{"switch with filler", "can you switch me over to the branch feature/checkout-flow", map[string]string{"branch": "feature/checkout-flow"}},
		{"pull with filler", "please pull the latest changes from origin develop", map[string]string{"branch": "develop"}},
		{"rebase natural", "please rebase this branch onto main so we're up to date", map[string]string{"branch": "main"}},
		{"reset to remote ref", "can you hard reset everything back to origin/main", map[string]string{"target": "origin/main"}},
		{"bare head ref", "undo the last commit softly to HEAD~1", map[string]string{"target": "HEAD~1"}},
		{"terse checkout", "checkout develop", map[string]string{"branch": "develop"}},
		{"terse switch to", "switch to release/1.2", map[string]string{"branch": "release/1.2"}},
		{"filler only", "switch to the branch", map[string]string{}},
		{"branch flag", "switch -b feature/x", map[string]string{"branch": "feature/x"}},
		{"invalid branch flag discarded", "create --branch=bad:name", map[string]string{}},
		{"target flag", "rebase --onto=main", map[string]string{"target": "main"}},
		{"hard mode without ref", "reset --hard", map[string]string{}},
		{"soft mode without ref", "reset --soft", map[string]string{}},
		{"bare hard mode", "reset hard", map[string]string{}},
		{"soft mode with ref", "reset --soft HEAD~3", map[string]string{"target": "HEAD~3"}},
		{"short flag is not a branch", "checkout -b", map[string]string{}},
		{"long flag is not a branch", "switch --force", map[string]string{}},
		{"nothing", "hello there", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text).Map()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestExtract_FlagWinsOverPhrase(t *testing.T) {
	got := Extract(`commit -m "from flag" with message "from phrase"`)
	assert.Equal(t, "from flag", got.Value(intent.SlotMessage))
}

func TestExtract_FirstFlagWins(t *testing.T) {
	got := Extract(`commit -m one -m two`)
	assert.Equal(t, "one", got.Value(intent.SlotMessage))
}

func TestExtract_UnbalancedQuotesFallBack(t *testing.T) {
	got := Extract(`commit -m "oops`)
	assert.Equal(t, "oops", got.Value(intent.SlotMessage))
}

func TestExtract_RightmostBranchWins(t *testing.T) {
	got := Extract("switch branch develop then push branch main")
	assert.Equal(t, "main", got.Value(intent.SlotBranch))
}

func TestExtract_TargetStopwords(t *testing.T) {
	got := Extract("reset everything")
	assert.False(t, got.Has(intent.SlotTarget))
}

func TestExtract_Idempotent(t *testing.T) {
	text := `commit -m "a and b" then create branch feature/foo and reset --hard HEAD^`
	assert.Equal(t, Extract(text), Extract(text))
}

func TestForIntent(t *testing.T) {
	text := `commit -m "wip" and create branch feature/foo and reset to HEAD~3`

	assert.Equal(t, map[string]string{"message": "wip"}, ForIntent(intent.CommitChanges, text).Map())
	assert.Equal(t, map[string]string{"branch": "feature/foo"}, ForIntent(intent.CreateBranch, text).Map())
	assert.Equal(t, map[string]string{"target": "HEAD~3"}, ForIntent(intent.ResetHard, text).Map())
	assert.Empty(t, ForIntent(intent.PushCommitToOrigin, text))
	assert.Len(t, ForIntent("not_an_intent", text), 3)
}

func TestStripMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`commit with message 'pull request fix'`, "commit"},
		{`commit -m "rebase later" now`, "commit now"},
		{`commit --message=stash`, "commit"},
		{`stash my work with the message "wip"`, "stash my work"},
		{"push branch main", "push branch main"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, strings.Join(strings.Fields(StripMessage(tt.in)), " "), tt.in)
	}
}
