package router

import (
	"maps"

	"github.com/shahar-caura/gitnl/internal/intent"
)

// DefaultSemanticThreshold applies to intents without their own entry.
const DefaultSemanticThreshold = 0.80

// Thresholds are the minimum semantic similarities accepted per intent.
type Thresholds struct {
	Default  float64
	ByIntent map[intent.Intent]float64
}

// DefaultThresholds returns the built-in per-intent table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Default: DefaultSemanticThreshold,
		ByIntent: map[intent.Intent]float64{
			intent.CommitChanges:      0.70,
			intent.UndoCommitSoft:     0.80,
			intent.PushCommitToOrigin: 0.80,
			intent.CreateBranch:       0.70,
			intent.SwitchBranch:       0.70,
			intent.PushBranch:         0.80,
			intent.PullOrigin:         0.70,
			intent.StashChanges:       0.70,
			intent.RebaseBranch:       0.75,
			intent.ResetSoft:          0.80,
			intent.ResetHard:          0.80,
		},
	}
}

// For returns the threshold for i, falling back to Default.
func (t Thresholds) For(i intent.Intent) float64 {
	if v, ok := t.ByIntent[i]; ok {
		return v
	}
	return t.Default
}

// Merge returns a copy of t with overrides applied on top.
func (t Thresholds) Merge(overrides map[intent.Intent]float64) Thresholds {
	out := Thresholds{Default: t.Default, ByIntent: maps.Clone(t.ByIntent)}
	if out.ByIntent == nil {
		out.ByIntent = map[intent.Intent]float64{}
	}
	maps.Copy(out.ByIntent, overrides)
	return out
}
