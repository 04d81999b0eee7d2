// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package feedback implements the FeedbackLoop (§4.11): it closes the
// loop from one completed ExecutionPattern back into every learning
// subsystem, classifying each update as real-time (hard 500ms budget) or
// async (batched, retried) per §5's sync-strategy rules.
package feedback

import (
	"context"
	"log/slog"
	"time"

	"github.com/open-swarm/orchestrator-core/internal/bayesian"
	"github.com/open-swarm/orchestrator-core/internal/conflict"
	"github.com/open-swarm/orchestrator-core/internal/config"
	"github.com/open-swarm/orchestrator-core/internal/external"
	"github.com/open-swarm/orchestrator-core/internal/patternmemory"
	"github.com/open-swarm/orchestrator-core/internal/pareto"
	"github.com/open-swarm/orchestrator-core/internal/registry"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// calibrator is the minimal SemanticAnalyzer seam Loop needs for step 6.
type calibrator interface {
	Analyze(objective string) model.ObjectiveAnalysis
	UpdateCalibration(predicted, observed model.Intent)
}

// Loop is the FeedbackLoop.
type Loop struct {
	registry  *registry.Registry
	patterns  *patternmemory.Store
	bayes     *bayesian.Engine
	conflicts *conflict.Detector
	semantic  calibrator
	pareto    *pareto.Optimizer
	knowledge external.KnowledgeStore
	events    external.EventBus
	scope     model.Scope

	realTimeBudget   time.Duration
	patternThreshold float64

	queue *AsyncQueue
}

// New constructs a Loop and starts its async queue's worker pool. cfg may
// be nil, in which case config.Default()'s realtime budget and valuable-
// pattern threshold apply. Call Close when the host process shuts down
// to flush pending batches.
func New(
	reg *registry.Registry,
	patterns *patternmemory.Store,
	bayes *bayesian.Engine,
	conflicts *conflict.Detector,
	sem calibrator,
	paretoOptimizer *pareto.Optimizer,
	knowledge external.KnowledgeStore,
	events external.EventBus,
	scope model.Scope,
	cfg *config.Config,
) *Loop {
	if knowledge == nil {
		knowledge = external.NoopKnowledgeStore{}
	}
	if events == nil {
		events = external.NoopEventBus{}
	}
	if cfg == nil {
		cfg = config.Default()
	}
	l := &Loop{
		registry:         reg,
		patterns:         patterns,
		bayes:            bayes,
		conflicts:        conflicts,
		semantic:         sem,
		pareto:           paretoOptimizer,
		knowledge:        knowledge,
		events:           events,
		scope:            scope,
		realTimeBudget:   time.Duration(cfg.Sync.RealtimeTimeoutMS) * time.Millisecond,
		patternThreshold: cfg.Learning.ValuablePatternThreshold,
	}
	l.queue = NewAsyncQueue(l.runAsyncTask)
	return l
}

// Close stops the async queue's workers, flushing any in-flight batch.
func (l *Loop) Close() {
	l.queue.Stop()
}

// Record implements §4.11's 8-step update sequence. It is not idempotent
// with respect to pattern.ID: PatternMemory overwrites a repeated id in
// place, but recording the same pattern again counts its agent results
// in the AgentRegistry a second time and repeats the calibration,
// conflict-learning, gradient and memory-bridge updates.
func (l *Loop) Record(ctx context.Context, pattern model.ExecutionPattern) {
	deadline := time.Now().Add(l.realTimeBudget)

	// Steps 1-4, 6-7: cheap, CPU-bound, in-memory updates — real-time as
	// long as the budget holds.
	l.recordAgentFeedback(pattern)
	if time.Now().After(deadline) {
		l.queue.Enqueue(AsyncTask{Kind: TaskRealTimeOverflow, Pattern: pattern})
		return
	}

	enriched := l.patterns.Record(pattern)

	if time.Now().After(deadline) {
		l.queue.Enqueue(AsyncTask{Kind: TaskAggregate, Pattern: enriched})
	}

	l.bayes.UpdateCalibration(pattern.PredictedConfidence, pattern.Success)
	l.learnConflicts(pattern)

	if observed := l.semantic.Analyze(pattern.Objective); pattern.ObjectiveType != "" {
		l.semantic.UpdateCalibration(pattern.ObjectiveType, observed.Intent)
	}

	l.gradientStep(pattern)

	// Step 8 and the audit trail are always async: they involve the
	// external knowledge store and are explicitly batched per §5.
	l.queue.Enqueue(AsyncTask{Kind: TaskMemoryBridge, Pattern: enriched, Scope: l.scope})
	l.queue.Enqueue(AsyncTask{Kind: TaskAuditLog, Pattern: enriched})

	l.events.Publish(external.Event{
		Type:      external.EventExecutionRecorded,
		Objective: pattern.Objective,
		PlanID:    pattern.ID,
	})

	slog.Info("feedback recorded", "pattern_id", pattern.ID, "success", pattern.Success)
}

// recordAgentFeedback implements step 1: push every AgentResult's
// outcome into the AgentRegistry.
func (l *Loop) recordAgentFeedback(pattern model.ExecutionPattern) {
	for _, r := range pattern.AgentResults {
		l.registry.RecordFeedback(r.AgentID, r.Success, r.TokensUsed, r.DurationMS)
	}
}

// learnConflicts implements step 4: for every pair of agents in the
// pattern's execution order and every conflict type, tell the
// ConflictDetector whether that type of conflict was actually observed
// (per the post-hoc labels Coordinator attached) or not.
func (l *Loop) learnConflicts(pattern model.ExecutionPattern) {
	order := pattern.ExecutionOrder
	if len(order) == 0 {
		order = pattern.AgentsUsed
	}
	if len(order) < 2 {
		return
	}

	observed := parseConflictLabels(pattern.Conflicts)
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			a, b := order[i], order[j]
			for _, typ := range []model.ConflictType{
				model.ConflictToolOverlap, model.ConflictResource,
				model.ConflictSemantic, model.ConflictOrdering,
			} {
				conflicted := observed[conflictKey(a, b, typ)] || observed[conflictKey(b, a, typ)]
				l.conflicts.Learn(a, b, typ, conflicted)
			}
		}
	}
}

// gradientStep implements step 7, approximating the observed/predicted
// utility split from the fields the pattern actually carries: predicted
// accuracy/cost come from the originating plan (PredictedConfidence,
// PredictedTokens); predicted latency has no stored counterpart so it is
// held equal to the observed value, a documented simplification that
// zeroes that dimension's error signal rather than inventing one.
func (l *Loop) gradientStep(pattern model.ExecutionPattern) {
	observedAccuracy := 0.0
	if pattern.Success {
		observedAccuracy = 1.0
	}
	observed := pareto.Candidate{
		Label:      "observed",
		Agents:     pattern.AgentsUsed,
		Accuracy:   observedAccuracy,
		NegCost:    -float64(pattern.TotalTokens),
		NegLatency: -float64(pattern.TotalDurationMS),
	}
	predictedTokens := pattern.PredictedTokens
	if predictedTokens == 0 {
		predictedTokens = pattern.TotalTokens
	}
	predicted := pareto.Candidate{
		Label:      "predicted",
		Agents:     pattern.AgentsUsed,
		Accuracy:   pattern.PredictedConfidence,
		NegCost:    -float64(predictedTokens),
		NegLatency: -float64(pattern.TotalDurationMS),
	}

	utility := observedAccuracy
	l.pareto.GradientStep(observed, predicted, utility)
}

func conflictKey(a, b model.AgentId, typ model.ConflictType) string {
	return string(typ) + ":" + string(a) + "-" + string(b)
}

// parseConflictLabels turns Coordinator's "type:agentA-agentB" labels
// back into a lookup set.
func parseConflictLabels(labels []string) map[string]bool {
	out := make(map[string]bool, len(labels))
	for _, l := range labels {
		out[l] = true
	}
	return out
}
