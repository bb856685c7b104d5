package main

import (
	"log/slog"

	"github.com/shahar-caura/gitnl/internal/config"
	"github.com/shahar-caura/gitnl/internal/intent"
	"github.com/shahar-caura/gitnl/internal/llm"
	"github.com/shahar-caura/gitnl/internal/metrics"
	"github.com/shahar-caura/gitnl/internal/router"
)

// thresholdsFor combines the built-in per-intent table with config overrides.
func thresholdsFor(cfg *config.Config) router.Thresholds {
	base := router.DefaultThresholds()
	base.Default = cfg.Semantic.Threshold
	return base.Merge(cfg.Semantic.IntentThresholds())
}

func wireRouter(cfg *config.Config, logger *slog.Logger, rec *metrics.Recorder, noLLM bool) (*router.Router, error) {
	opts := []router.Option{
		router.WithLogger(logger),
		router.WithMetrics(rec),
		router.WithDefaultBranch(cfg.Defaults.Branch),
		router.WithThresholds(thresholdsFor(cfg)),
	}

	if cfg.LLM.FallbackEnabled() && !noLLM {
		client := llm.New(cfg.LLM.APIKey,
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithModel(cfg.LLM.Model),
			llm.WithThreshold(cfg.LLM.Threshold),
			llm.WithTimeout(cfg.LLM.Timeout.Duration),
		)
		opts = append(opts, router.WithLLM(client))
		logger.Debug("llm fallback enabled", "model", client.Model(), "has_key", cfg.LLM.APIKey != "")
	}

	return router.New(opts...)
}

// fillDefaults adds configured slot values the request left out.
func fillDefaults(results []intent.Result, d config.DefaultsConfig) []intent.Result {
	out := make([]intent.Result, len(results))
	for i, res := range results {
		switch res.Intent {
		case intent.CommitChanges:
			res.Entities = withDefault(res.Entities, intent.SlotMessage, d.CommitMessage)
		case intent.StashChanges:
			res.Entities = withDefault(res.Entities, intent.SlotMessage, d.StashMessage)
		case intent.ResetSoft:
			res.Entities = withDefault(res.Entities, intent.SlotTarget, firstNonEmpty(d.ResetTargetSoft, d.ResetTarget))
		case intent.ResetHard:
			res.Entities = withDefault(res.Entities, intent.SlotTarget, firstNonEmpty(d.ResetTargetHard, d.ResetTarget))
		}
		out[i] = res
	}
	return out
}

func withDefault(e intent.Entities, slot intent.Slot, value string) intent.Entities {
	if value == "" || e.Has(slot) {
		return e
	}
	return e.With(slot, value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
