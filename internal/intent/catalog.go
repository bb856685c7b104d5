package intent

import "slices"

// Slot names an entity a command template can be parameterized with.
type Slot string

const (
	SlotMessage Slot = "message"
	SlotBranch  Slot = "branch"
	SlotTarget  Slot = "target"
)

type definition struct {
	intent        Intent
	slots         []Slot
	requireBranch bool
}

// catalog is the closed intent set in declaration order.
var catalog = []definition{
	{intent: CommitChanges, slots: []Slot{SlotMessage}},
	{intent: UndoCommitSoft},
	{intent: PushCommitToOrigin},
	{intent: CreateBranch, slots: []Slot{SlotBranch}, requireBranch: true},
	{intent: SwitchBranch, slots: []Slot{SlotBranch}, requireBranch: true},
	{intent: PushBranch, slots: []Slot{SlotBranch}, requireBranch: true},
	{intent: PullOrigin, slots: []Slot{SlotBranch}, requireBranch: true},
	{intent: StashChanges, slots: []Slot{SlotMessage}},
	{intent: RebaseBranch, slots: []Slot{SlotBranch}, requireBranch: true},
	{intent: ResetSoft, slots: []Slot{SlotTarget}},
	{intent: ResetHard, slots: []Slot{SlotTarget}},
}

func lookup(i Intent) (definition, bool) {
	for _, s := range catalog {
		if s.intent == i {
			return s, true
		}
	}
	return definition{}, false
}

// All returns every catalog intent in declaration order.
func All() []Intent {
	out := make([]Intent, len(catalog))
	for i, s := range catalog {
		out[i] = s.intent
	}
	return out
}

// Known reports whether i is a catalog intent.
func Known(i Intent) bool {
	_, ok := lookup(i)
	return ok
}

// AllowedSlots returns the slot allow-list for i. The boolean is false for
// intents outside the catalog, whose entities are passed through unfiltered.
func AllowedSlots(i Intent) ([]Slot, bool) {
	s, ok := lookup(i)
	if !ok {
		return nil, false
	}
	return slices.Clone(s.slots), true
}

// RequiresBranch reports whether the commands for i need a branch name.
func RequiresBranch(i Intent) bool {
	s, ok := lookup(i)
	return ok && s.requireBranch
}
