package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/shahar-caura/gitnl/internal/intent"
)

// Duration wraps time.Duration with decoding from strings like "6s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText is used by the TOML decoder.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Config is the top-level gitnl configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm" toml:"llm"`
	Semantic SemanticConfig `yaml:"semantic" toml:"semantic"`
	Defaults DefaultsConfig `yaml:"defaults" toml:"defaults"`
}

// LLMConfig controls the remote fallback. Enabled is a pointer so an absent
// key can be told apart from an explicit false.
type LLMConfig struct {
	Enabled   *bool    `yaml:"enabled" toml:"enabled"`
	APIKey    string   `yaml:"api_key" toml:"api_key"`
	Model     string   `yaml:"model" toml:"model"`
	BaseURL   string   `yaml:"base_url" toml:"base_url"`
	Timeout   Duration `yaml:"timeout" toml:"timeout"`
	Threshold float64  `yaml:"threshold" toml:"threshold"`
}

// FallbackEnabled reports whether the LLM fallback should run.
func (c LLMConfig) FallbackEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type SemanticConfig struct {
	Threshold  float64            `yaml:"threshold" toml:"threshold"`
	Thresholds map[string]float64 `yaml:"thresholds" toml:"thresholds"`
}

// DefaultsConfig holds slot values used when a request leaves them out.
type DefaultsConfig struct {
	Branch          string `yaml:"branch" toml:"branch"`
	CommitMessage   string `yaml:"commit_message" toml:"commit_message"`
	StashMessage    string `yaml:"stash_message" toml:"stash_message"`
	ResetTarget     string `yaml:"reset_target" toml:"reset_target"`
	ResetTargetSoft string `yaml:"reset_target_soft" toml:"reset_target_soft"`
	ResetTargetHard string `yaml:"reset_target_hard" toml:"reset_target_hard"`
}

const (
	defaultModel             = "meta-llama/llama-3.2-1b-instruct"
	defaultBaseURL           = "https://openrouter.ai/api/v1"
	defaultLLMTimeout        = 6 * time.Second
	defaultLLMThreshold      = 0.60
	defaultSemanticThreshold = 0.80
)

// Environment variables that override file values.
const (
	EnvAPIKey        = "OPENROUTER_API_KEY"
	EnvModel         = "OPENROUTER_MODEL"
	EnvBaseURL       = "OPENROUTER_BASE_URL"
	EnvLLMFallback   = "GITNL_LLM_FALLBACK"
	EnvLLMTimeout    = "GITNL_LLM_TIMEOUT"
	EnvDefaultBranch = "GITNL_DEFAULT_BRANCH"
)

// Load reads, expands env vars, parses, and validates a gitnl config file.
// The format follows the extension: .toml for TOML, anything else is YAML.
// An empty path yields the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		expanded := []byte(os.ExpandEnv(string(data)))

		if strings.EqualFold(filepath.Ext(path), ".toml") {
			err = toml.Unmarshal(expanded, &cfg)
		} else {
			err = yaml.Unmarshal(expanded, &cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultBaseURL
	}
	if cfg.LLM.Timeout.Duration == 0 {
		cfg.LLM.Timeout.Duration = defaultLLMTimeout
	}
	if cfg.LLM.Threshold == 0 {
		cfg.LLM.Threshold = defaultLLMThreshold
	}
	if cfg.Semantic.Threshold == 0 {
		cfg.Semantic.Threshold = defaultSemanticThreshold
	}

	d := &cfg.Defaults
	if d.Branch == "" {
		d.Branch = "default_branch"
	}
	if d.CommitMessage == "" {
		d.CommitMessage = "default_message"
	}
	if d.StashMessage == "" {
		d.StashMessage = "work in progress"
	}
	if d.ResetTarget == "" {
		d.ResetTarget = "HEAD"
	}
	if d.ResetTargetSoft == "" {
		d.ResetTargetSoft = "HEAD~1"
	}
	if d.ResetTargetHard == "" {
		d.ResetTargetHard = "HEAD"
	}
}

func applyEnv(cfg *Config) error {
	var errs []error

	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvDefaultBranch); v != "" {
		cfg.Defaults.Branch = v
	}
	if v := os.Getenv(EnvLLMFallback); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid bool %q", EnvLLMFallback, v))
		} else {
			cfg.LLM.Enabled = &enabled
		}
	}
	if v := os.Getenv(EnvLLMTimeout); v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLLMTimeout, err))
		} else {
			cfg.LLM.Timeout = d
		}
	}

	return errors.Join(errs...)
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.LLM.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if !inUnitRange(cfg.LLM.Threshold) {
		errs = append(errs, fmt.Errorf("llm.threshold must be between 0 and 1, got %v", cfg.LLM.Threshold))
	}
	if !strings.HasPrefix(cfg.LLM.BaseURL, "http://") && !strings.HasPrefix(cfg.LLM.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("llm.base_url must be an http(s) URL, got %q", cfg.LLM.BaseURL))
	}
	if !inUnitRange(cfg.Semantic.Threshold) {
		errs = append(errs, fmt.Errorf("semantic.threshold must be between 0 and 1, got %v", cfg.Semantic.Threshold))
	}
	for name, v := range cfg.Semantic.Thresholds {
		if !intent.Known(intent.Intent(name)) {
			errs = append(errs, fmt.Errorf("semantic.thresholds: unknown intent %q", name))
			continue
		}
		if !inUnitRange(v) {
			errs = append(errs, fmt.Errorf("semantic.thresholds.%s must be between 0 and 1, got %v", name, v))
		}
	}

	return errors.Join(errs...)
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// IntentThresholds returns the per-intent overrides keyed by intent.
func (c SemanticConfig) IntentThresholds() map[intent.Intent]float64 {
	out := make(map[intent.Intent]float64, len(c.Thresholds))
	for name, v := range c.Thresholds {
		out[intent.Intent(name)] = v
	}
	return out
}
