// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package config loads the core's feature-flag configuration: embedding
// provider choice, semantic-matching weight, cross-project learning scope,
// hybrid-sync, and realtime budget.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// EmbeddingProviderChoice selects which embedding tier the adapter prefers.
// "auto" tries local, then cloud, then keyword fallback.
type EmbeddingProviderChoice string

const (
	EmbeddingAuto    EmbeddingProviderChoice = "auto"
	EmbeddingLocal   EmbeddingProviderChoice = "local"
	EmbeddingCloud   EmbeddingProviderChoice = "cloud"
	EmbeddingKeyword EmbeddingProviderChoice = "keyword"
)

// embeddingProviderEnvVar overrides EmbeddingConfig.Provider when set.
const embeddingProviderEnvVar = "ORCHESTRATOR_EMBEDDING_PROVIDER"

// Config is the complete feature-flag configuration for the core.
type Config struct {
	Embedding EmbeddingConfig  `yaml:"embedding"`
	Learning  LearningConfig   `yaml:"learning"`
	Scope     ScopeConfig      `yaml:"scope"`
	Sync      HybridSyncConfig `yaml:"hybrid_sync"`
}

// EmbeddingConfig configures the embedding provider chain.
type EmbeddingConfig struct {
	Provider EmbeddingProviderChoice `yaml:"provider"`
}

// LearningConfig configures cross-request learning weights.
type LearningConfig struct {
	// SemanticMatchingWeight in [0,1]: how much SemanticEmbedding
	// similarity counts versus historical pattern similarity when
	// ranking candidate agents.
	SemanticMatchingWeight float64 `yaml:"semantic_matching_weight"`

	// ValuablePatternThreshold gates which patterns the FeedbackLoop
	// persists to the long-term knowledge store. Defaults to 0.6.
	ValuablePatternThreshold float64 `yaml:"valuable_pattern_threshold"`
}

// ScopeConfig is the default Scope applied to patterns the FeedbackLoop
// considers for persistence, absent a per-request override.
type ScopeConfig struct {
	Level       model.ScopeLevel  `yaml:"level"`
	Identifier  string            `yaml:"identifier"`
	CanShare    bool              `yaml:"can_share"`
	Sensitivity model.Sensitivity `yaml:"sensitivity"`
}

// HybridSyncConfig controls the FeedbackLoop's realtime/async split.
type HybridSyncConfig struct {
	Enabled           bool `yaml:"enabled"`
	RealtimeTimeoutMS int  `yaml:"realtime_timeout_ms"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{Provider: EmbeddingAuto},
		Learning: LearningConfig{
			SemanticMatchingWeight:   0.5,
			ValuablePatternThreshold: 0.6,
		},
		Scope: ScopeConfig{
			Level:       model.ScopeProject,
			CanShare:    false,
			Sensitivity: model.SensitivityInternal,
		},
		Sync: HybridSyncConfig{
			Enabled:           true,
			RealtimeTimeoutMS: 500,
		},
	}
}

// configPath resolves ~/.config/orchestrator-core/config.yaml.
func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(dir, "orchestrator-core", "config.yaml"), nil
}

// Load reads the configuration from the per-user configuration directory.
// A missing file is not an error: Default() is returned instead, matching
// the "degrade gracefully" propagation policy assigned to configuration
// and external-collaborator failures.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return applyEnvOverride(Default()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnvOverride(Default()), nil
		}
		return Default(), fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return applyEnvOverride(cfg), nil
}

// LoadFrom reads configuration from an explicit path, bypassing the
// per-user directory resolution. Used by the CLI's --config flag and by
// tests.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return applyEnvOverride(cfg), nil
}

func applyEnvOverride(cfg *Config) *Config {
	if v := os.Getenv(embeddingProviderEnvVar); v != "" {
		switch EmbeddingProviderChoice(v) {
		case EmbeddingAuto, EmbeddingLocal, EmbeddingCloud, EmbeddingKeyword:
			cfg.Embedding.Provider = EmbeddingProviderChoice(v)
		}
	}
	return cfg
}

// Validate checks the invariants the rest of the core relies on.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case EmbeddingAuto, EmbeddingLocal, EmbeddingCloud, EmbeddingKeyword, "":
	default:
		return fmt.Errorf("embedding.provider %q is not one of auto|local|cloud|keyword", c.Embedding.Provider)
	}

	if c.Learning.SemanticMatchingWeight < 0 || c.Learning.SemanticMatchingWeight > 1 {
		return fmt.Errorf("learning.semantic_matching_weight must be in [0,1], got %f", c.Learning.SemanticMatchingWeight)
	}
	if c.Learning.ValuablePatternThreshold < 0 || c.Learning.ValuablePatternThreshold > 1 {
		return fmt.Errorf("learning.valuable_pattern_threshold must be in [0,1], got %f", c.Learning.ValuablePatternThreshold)
	}

	if c.Scope.Level != "" {
		scope := model.Scope{
			Level:       c.Scope.Level,
			Identifier:  c.Scope.Identifier,
			CanShare:    c.Scope.CanShare,
			Sensitivity: c.Scope.Sensitivity,
		}
		if !scope.Valid() {
			return fmt.Errorf("scope.level %q is incompatible with scope.sensitivity %q", c.Scope.Level, c.Scope.Sensitivity)
		}
	}

	if c.Sync.Enabled && c.Sync.RealtimeTimeoutMS <= 0 {
		return fmt.Errorf("hybrid_sync.realtime_timeout_ms must be positive when hybrid_sync.enabled is true")
	}

	return nil
}

// RegistryCachePath resolves a registry_cache.json path in the config
// directory, or the ORCHESTRATOR_REGISTRY_CACHE environment variable when
// set. internal/core does not call it: the Core's AgentRegistry cache is
// registry-cache.json in the same directory, with no environment
// override.
func RegistryCachePath() (string, error) {
	if v := os.Getenv("ORCHESTRATOR_REGISTRY_CACHE"); v != "" {
		return v, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(dir, "orchestrator-core", "registry_cache.json"), nil
}
