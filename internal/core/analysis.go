// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package core

import (
	"context"
	"fmt"

	"github.com/open-swarm/orchestrator-core/internal/bayesian"
	"github.com/open-swarm/orchestrator-core/internal/diagnosis"
	"github.com/open-swarm/orchestrator-core/internal/patternmemory"
	"github.com/open-swarm/orchestrator-core/internal/temporaldecay"
	"github.com/open-swarm/orchestrator-core/internal/validators"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// healthSampleSize bounds how many recent patterns Analyze/Health feed to
// the TemporalDecayEngine.
const healthSampleSize = 200

// Health reports the freshness of recently recorded patterns.
func (c *Core) Health() temporaldecay.Health {
	patterns, domains := c.patterns.RecentWithDomains(healthSampleSize)
	enriched := c.decay.Enrich(patterns, domains)
	return c.decay.CalculateHealth(enriched)
}

// RecentFailures returns up to k of the most recently diagnosed failures.
func (c *Core) RecentFailures(k int) []model.FailureContext {
	return c.patterns.GetRecentFailures(k)
}

// RankedAgents returns every known agent ordered by success rate,
// descending.
func (c *Core) RankedAgents() []model.AgentCapability {
	return c.registry.RankedBySuccessRate()
}

// RecordAgentFeedback updates a single agent's registry statistics
// directly, without going through a full ExecutionPattern — the
// "record_feedback" tool's one-agent-at-a-time shape.
func (c *Core) RecordAgentFeedback(agentID model.AgentId, success bool, tokensUsed int, durationMS int64) {
	c.registry.RecordFeedback(agentID, success, tokensUsed, durationMS)
}

// ListAgents returns every known agent in registry order.
func (c *Core) ListAgents() []model.AgentCapability {
	return c.registry.List()
}

// AgentPrediction is one agent's predicted performance for an objective.
type AgentPrediction struct {
	AgentID            model.AgentId
	PredictedSuccess   float64
	Confidence         float64
	ConfidenceInterval [2]float64
	SimilarExecutions  int
}

// PredictAgents scores each requested agent id independently: for every
// id it retrieves this objective's similar executions, decay-weights
// them, and runs the same BayesianConfidenceEngine pass the Planner uses
// for a single-agent candidate set.
func (c *Core) PredictAgents(ctx context.Context, agentIDs []model.AgentId, objective, projectContext string) []AgentPrediction {
	analysis := c.analyzer.Analyze(objective)
	matches := c.patterns.FindSimilar(objective, projectContext, reuseSearchK)
	ctxs := patternContextsFor(matches, c.decay, analysis.Domain)

	out := make([]AgentPrediction, 0, len(agentIDs))
	for _, id := range agentIDs {
		ac, ok := c.registry.Get(id)
		if !ok {
			continue
		}
		result := c.bayes.CalculateConfidence([]model.AgentCapability{ac}, ctxs, c.conflicts.Graph())
		out = append(out, AgentPrediction{
			AgentID:            id,
			PredictedSuccess:   ac.SuccessRate,
			Confidence:         result.Confidence,
			ConfidenceInterval: result.ConfidenceInterval,
			SimilarExecutions:  len(matches),
		})
	}
	return out
}

// patternContextsFor mirrors internal/planner's patternContexts helper:
// it is small enough, and tied closely enough to the bayesian/temporaldecay
// seams Core already holds, to keep as its own copy rather than exporting
// an unrelated package's internal helper.
func patternContextsFor(matches []patternmemory.Match, decay *temporaldecay.Engine, domain model.Domain) []bayesian.PatternContext {
	out := make([]bayesian.PatternContext, 0, len(matches))
	for _, m := range matches {
		out = append(out, bayesian.PatternContext{
			Pattern:            m.Pattern,
			TemporalRelevance:  decay.Relevance(domain, m.Pattern.Timestamp),
			SemanticSimilarity: m.Similarity,
		})
	}
	return out
}

// AnalyzeFailure classifies a single reported failure into a full
// FailureContext and a short list of suggested fixes, without requiring
// the failure to already be recorded in PatternMemory.
func (c *Core) AnalyzeFailure(objective string, failedAgent model.AgentId, errorMessage string, precedingAgents []model.AgentId, projectContext string) (model.FailureContext, []string) {
	analysis := c.analyzer.Analyze(objective)
	pattern := model.ExecutionPattern{
		Objective:      objective,
		ProjectContext: projectContext,
		ExecutionOrder: append(append([]model.AgentId{}, precedingAgents...), failedAgent),
		FailureReason:  errorMessage,
	}
	fc := diagnosis.Diagnose(pattern, analysis.Domain)
	return fc, diagnosis.SuggestedFixes(fc)
}

// FindPatterns exposes PatternMemory's kNN search directly.
func (c *Core) FindPatterns(objective, projectContext string, limit int) []patternmemory.Match {
	if limit <= 0 {
		limit = reuseSearchK
	}
	return c.patterns.FindSimilar(objective, projectContext, limit)
}

// DiscoverAgents registers newly-discovered agent capabilities (or
// re-registers updated ones) and returns the registry's current view of
// the requested ids.
func (c *Core) DiscoverAgents(caps []model.AgentCapability) []model.AgentCapability {
	c.registry.Discover(caps)
	out := make([]model.AgentCapability, 0, len(caps))
	for _, spec := range caps {
		if ac, ok := c.registry.Get(spec.ID); ok {
			out = append(out, ac)
		}
	}
	return out
}

// RefinedPlan is the result of RefinePlan: an adjusted OrchestrationPlan
// plus the reasoning behind each change.
type RefinedPlan struct {
	Plan        model.OrchestrationPlan
	ChangesMade []string
	Reasoning   string
	Confidence  float64
}

// RefinePlan implements §6's refine_plan: given the plan that produced a
// failure and its diagnosed FailureContext, it proposes an adjusted plan
// following the failure's recovery strategy — substituting the failed
// agent on a fallback recommendation, leaving the plan untouched (but
// re-scored) on a bare retry, and refusing to refine an abort/manual
// failure since retrying would repeat it.
func (c *Core) RefinePlan(ctx context.Context, original model.OrchestrationPlan, fc model.FailureContext, objective, projectContext string, cons validators.Constraints) (RefinedPlan, error) {
	if !fc.IsRecoverable {
		return RefinedPlan{
			Plan:       original,
			Reasoning:  fmt.Sprintf("failure category %q recommends %q; refinement would repeat the same failure, escalate instead", fc.ErrorCategory, fc.RecoveryStrategy),
			Confidence: 0,
		}, nil
	}

	analysis := c.analyzer.Analyze(objective)
	specs := append([]model.AgentSpec{}, original.Agents...)
	var changes []string

	if fc.RecoveryStrategy == model.RecoveryFallback {
		replacement, ok := c.findFallbackAgent(fc.FailedAgent)
		if ok {
			for i, s := range specs {
				if s.AgentID == fc.FailedAgent {
					specs[i].AgentID = replacement.ID
					changes = append(changes, fmt.Sprintf("substituted %s with fallback agent %s", fc.FailedAgent, replacement.ID))
				}
			}
		} else {
			changes = append(changes, fmt.Sprintf("no fallback agent found for %s; kept plan unchanged", fc.FailedAgent))
		}
	} else {
		changes = append(changes, fmt.Sprintf("re-running %s unchanged per recovery strategy %q", fc.FailedAgent, fc.RecoveryStrategy))
	}

	candidates := c.resolveSpecCandidates(specs)
	conflictResult := c.conflicts.Analyze(specs)
	if order := conflictResult.RecommendedReordering; len(order) > 0 {
		reordered := make([]model.AgentSpec, 0, len(specs))
		for _, id := range order {
			for _, s := range specs {
				if s.AgentID == id {
					reordered = append(reordered, s)
				}
			}
		}
		if len(reordered) == len(specs) {
			specs = reordered
		}
		changes = append(changes, "reordered agents to reduce predicted conflicts")
	}

	matches := c.patterns.FindSimilar(objective, projectContext, reuseSearchK)
	ctxs := patternContextsFor(matches, c.decay, analysis.Domain)
	bayesResult := c.bayes.CalculateConfidence(candidates, ctxs, c.conflicts.Graph())

	refined := original
	refined.Agents = specs
	refined.PredictedConflicts = conflictResult.PredictedConflicts
	refined.RiskScore = conflictResult.RiskScore
	refined.BayesianConfidence = bayesResult.Confidence
	refined.ConfidenceInterval = bayesResult.ConfidenceInterval
	refined.Uncertainty = bayesResult.Uncertainty
	refined.Rationale = fmt.Sprintf("refined after failure in %s (%s): %s", fc.FailedAgent, fc.ErrorCategory, original.Rationale)

	return RefinedPlan{
		Plan:        refined,
		ChangesMade: changes,
		Reasoning:   fmt.Sprintf("failure category %q recommends %q", fc.ErrorCategory, fc.RecoveryStrategy),
		Confidence:  bayesResult.Confidence,
	}, nil
}

// findFallbackAgent picks the highest-success-rate registered agent with
// the same specialization as the failed one, excluding the failed agent
// itself.
func (c *Core) findFallbackAgent(failed model.AgentId) (model.AgentCapability, bool) {
	failedCap, ok := c.registry.Get(failed)
	if !ok {
		return model.AgentCapability{}, false
	}
	var best model.AgentCapability
	found := false
	for _, ac := range c.registry.RankedBySuccessRate() {
		if ac.ID == failed || ac.Specialization != failedCap.Specialization {
			continue
		}
		best = ac
		found = true
		break
	}
	return best, found
}

// resolveSpecCandidates looks up each spec's current AgentCapability from
// the registry, skipping any id the registry no longer recognizes.
func (c *Core) resolveSpecCandidates(specs []model.AgentSpec) []model.AgentCapability {
	out := make([]model.AgentCapability, 0, len(specs))
	for _, s := range specs {
		if ac, ok := c.registry.Get(s.AgentID); ok {
			out = append(out, ac)
		}
	}
	return out
}
