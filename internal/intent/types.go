package intent

// Intent names a supported git workflow action.
type Intent string

const (
	CommitChanges      Intent = "commit_changes"
	UndoCommitSoft     Intent = "undo_commit_soft"
	PushCommitToOrigin Intent = "push_commit_to_origin"
	CreateBranch       Intent = "create_branch"
	SwitchBranch       Intent = "switch_branch"
	PushBranch         Intent = "push_branch"
	PullOrigin         Intent = "pull_origin"
	StashChanges       Intent = "stash_changes"
	RebaseBranch       Intent = "rebase_branch"
	ResetSoft          Intent = "reset_soft"
	ResetHard          Intent = "reset_hard"

	// Unknown is the terminal state for requests no matcher could resolve.
	// It is never part of the catalog.
	Unknown Intent = "unknown"
)

// Source identifies which matcher produced a classification.
type Source string

const (
	SourceRule     Source = "rule"
	SourceSemantic Source = "semantic"
	SourceLLM      Source = "llm"
	SourceNone     Source = "none"
)

// Result is the classification of one clause. Results are built once and
// handed to the caller; nothing in this module mutates them afterwards.
type Result struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
	Entities   Entities `json:"entities"`
	Reason     string   `json:"reason"`
}

// Resolved reports whether the result names a catalog intent.
func (r Result) Resolved() bool {
	return r.Intent != Unknown && r.Intent != ""
}

// UnknownResult returns the explicit unresolved classification.
func UnknownResult(reason string) Result {
	return Result{
		Intent:   Unknown,
		Source:   SourceNone,
		Entities: Entities{},
		Reason:   reason,
	}
}
