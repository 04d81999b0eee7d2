// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package core wires every subsystem — SemanticAnalyzer, AgentRegistry,
// PatternMemory, TemporalDecayEngine, BayesianEngine, ConflictDetector,
// ParetoOptimizer, Planner, Coordinator, FeedbackLoop — into the single
// process-wide Core aggregate (§9), constructed once per process and
// shared across every request the host handles.
package core

import (
	"context"
	"os"
	"path/filepath"

	"github.com/open-swarm/orchestrator-core/internal/bayesian"
	"github.com/open-swarm/orchestrator-core/internal/config"
	"github.com/open-swarm/orchestrator-core/internal/conflict"
	"github.com/open-swarm/orchestrator-core/internal/coordinator"
	"github.com/open-swarm/orchestrator-core/internal/external"
	"github.com/open-swarm/orchestrator-core/internal/feedback"
	"github.com/open-swarm/orchestrator-core/internal/pareto"
	"github.com/open-swarm/orchestrator-core/internal/patternmemory"
	"github.com/open-swarm/orchestrator-core/internal/planner"
	"github.com/open-swarm/orchestrator-core/internal/registry"
	"github.com/open-swarm/orchestrator-core/internal/semantic"
	"github.com/open-swarm/orchestrator-core/internal/temporaldecay"
	"github.com/open-swarm/orchestrator-core/internal/validators"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// Collaborators bundles the optional external seams the host may supply;
// every field is nil-safe (a noop/disabled implementation is substituted).
type Collaborators struct {
	Embedding external.EmbeddingProvider
	Knowledge external.KnowledgeStore
	Events    external.EventBus
}

// Core is the process-wide orchestration aggregate.
type Core struct {
	cfg *config.Config

	registry  *registry.Registry
	patterns  *patternmemory.Store
	analyzer  *semantic.Analyzer
	decay     *temporaldecay.Engine
	bayes     *bayesian.Engine
	conflicts *conflict.Detector
	pareto    *pareto.Optimizer

	planner     *planner.Planner
	coordinator *coordinator.Coordinator
	feedback    *feedback.Loop
}

// New constructs a Core, seeding the registry from its on-disk cache (or
// the built-in defaults on a cold start) and the pattern store with
// synthetic bootstrap patterns, then wiring Planner, Coordinator and
// FeedbackLoop together so every plan's outcome feeds the next.
func New(cfg *config.Config, collaborators Collaborators) (*Core, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	reg := registry.New(registryCache())
	seedRegistry(reg)

	analyzer := semantic.New()
	patterns := patternmemory.New(analyzer)
	patterns.BootstrapSynthetic(patternmemory.GenerateSyntheticPatterns())

	decay := temporaldecay.New()
	bayes := bayesian.New()
	conflicts := conflict.New(nil)
	paretoOptimizer := pareto.New()

	knowledge := collaborators.Knowledge
	if knowledge == nil {
		knowledge = external.NoopKnowledgeStore{}
	}
	events := collaborators.Events
	if events == nil {
		events = external.NoopEventBus{}
	}

	hybrid := newHybridAnalyzer(analyzer, collaborators.Embedding, cfg.Learning.SemanticMatchingWeight)

	pl := planner.New(hybrid, reg, patterns, decay, bayes, conflicts, paretoOptimizer, knowledge)

	loop := feedback.New(reg, patterns, bayes, conflicts, hybrid, paretoOptimizer, knowledge, events, scopeFromConfig(cfg), cfg)

	coord := coordinator.New(loop)

	return &Core{
		cfg:         cfg,
		registry:    reg,
		patterns:    patterns,
		analyzer:    analyzer,
		decay:       decay,
		bayes:       bayes,
		conflicts:   conflicts,
		pareto:      paretoOptimizer,
		planner:     pl,
		coordinator: coord,
		feedback:    loop,
	}, nil
}

// reuseSearchK bounds how many similar past patterns Core retrieves per
// Plan call to hand the Planner as reuse candidates.
const reuseSearchK = 10

// Plan delegates to the Planner, first retrieving this objective's most
// similar past executions from PatternMemory as reuse candidates.
func (c *Core) Plan(ctx context.Context, objective, projectContext string, cons validators.Constraints) (model.OrchestrationPlan, error) {
	return c.planner.Plan(ctx, objective, projectContext, cons, c.similarExecutions(objective, projectContext))
}

// Coordinate delegates to the Coordinator, which fires the FeedbackLoop
// in the background before returning.
func (c *Core) Coordinate(ctx context.Context, objective, projectContext string, results []model.AgentResult, plan *model.OrchestrationPlan) model.CoordinationResult {
	return c.coordinator.Coordinate(ctx, objective, projectContext, results, plan)
}

// Close flushes the registry's debounced cache and the FeedbackLoop's
// async queue. Call once at process shutdown.
func (c *Core) Close() {
	c.registry.Flush()
	c.feedback.Close()
}

// similarExecutions returns PatternMemory's nearest-neighbor matches for
// this objective, unwrapped to the bare patterns the Planner's reuse
// path (findReuseCandidate) scores for relevance.
func (c *Core) similarExecutions(objective, projectContext string) []model.ExecutionPattern {
	matches := c.patterns.FindSimilar(objective, projectContext, reuseSearchK)
	out := make([]model.ExecutionPattern, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Pattern)
	}
	return out
}

func scopeFromConfig(cfg *config.Config) model.Scope {
	return model.Scope{
		Level:       cfg.Scope.Level,
		Identifier:  cfg.Scope.Identifier,
		CanShare:    cfg.Scope.CanShare,
		Sensitivity: cfg.Scope.Sensitivity,
	}
}

// configDir resolves the same per-user directory internal/config uses,
// so the registry cache lives alongside config.yaml.
func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "orchestrator-core"), nil
}

func registryCache() registry.FileCache {
	dir, err := configDir()
	if err != nil {
		return registry.FileCache{Path: "orchestrator-core-registry-cache.json"}
	}
	return registry.FileCache{Path: filepath.Join(dir, "registry-cache.json")}
}

func seedRegistry(reg *registry.Registry) {
	cache := registryCache()
	cached, err := cache.Load()
	if err == nil && len(cached) > 0 {
		agents := make([]model.AgentCapability, 0, len(cached))
		for _, ac := range cached {
			agents = append(agents, ac)
		}
		reg.Discover(agents)
		return
	}
	reg.Discover(registry.BuiltinAgents())
}
