// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package planner implements the Planner (§4.9): the orchestrator that
// turns a free-text objective into an OrchestrationPlan by composing every
// other subsystem — SemanticAnalyzer, AgentRegistry, PatternMemory,
// TemporalDecayEngine, BayesianConfidenceEngine, ConflictDetector,
// ParetoOptimizer, and the four Validators — behind one authoritative
// algorithm, grounded on the teacher's internal/planner.PlanParser as the
// single entry point callers reach for.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-swarm/orchestrator-core/internal/bayesian"
	"github.com/open-swarm/orchestrator-core/internal/conflict"
	"github.com/open-swarm/orchestrator-core/internal/external"
	"github.com/open-swarm/orchestrator-core/internal/patternmemory"
	"github.com/open-swarm/orchestrator-core/internal/pareto"
	"github.com/open-swarm/orchestrator-core/internal/registry"
	"github.com/open-swarm/orchestrator-core/internal/temporaldecay"
	"github.com/open-swarm/orchestrator-core/internal/validators"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// paretoFallbackThreshold mirrors validators' low-confidence gate (scenario
// S6's 0.3 trigger point): below this, §4.9 step 6j asks the
// ParetoOptimizer to pick among trimmed variants before the final
// ConfidenceValidator gate runs.
const paretoFallbackThreshold = 0.3

// semanticAnalyzer is the minimal SemanticAnalyzer seam the Planner needs.
type semanticAnalyzer interface {
	Analyze(objective string) model.ObjectiveAnalysis
}

// Planner is the orchestrator of §4.1-4.8.
type Planner struct {
	semantic  semanticAnalyzer
	registry  *registry.Registry
	patterns  *patternmemory.Store
	decay     *temporaldecay.Engine
	bayes     *bayesian.Engine
	conflicts *conflict.Detector
	pareto    *pareto.Optimizer
	knowledge external.KnowledgeStore

	safety        *validators.SafetyValidator
	vague         *validators.VagueRequestDetector
	constraints   *validators.ConstraintEnforcer
	confidenceGate *validators.ConfidenceValidator
}

// New constructs a Planner from its collaborators. knowledge may be nil, in
// which case step 3's retrieval is skipped entirely.
func New(
	analyzer semanticAnalyzer,
	reg *registry.Registry,
	patterns *patternmemory.Store,
	decay *temporaldecay.Engine,
	bayes *bayesian.Engine,
	conflicts *conflict.Detector,
	paretoOptimizer *pareto.Optimizer,
	knowledge external.KnowledgeStore,
) *Planner {
	return &Planner{
		semantic:       analyzer,
		registry:       reg,
		patterns:       patterns,
		decay:          decay,
		bayes:          bayes,
		conflicts:      conflicts,
		pareto:         paretoOptimizer,
		knowledge:      knowledge,
		safety:         validators.NewSafetyValidator(),
		vague:          validators.NewVagueRequestDetector(),
		constraints:    validators.NewConstraintEnforcer(),
		confidenceGate: validators.NewConfidenceValidator(),
	}
}

// Plan executes the authoritative §4.9 algorithm.
func (p *Planner) Plan(
	ctx context.Context,
	objective string,
	projectContext string,
	cons validators.Constraints,
	pastExecutions []model.ExecutionPattern,
) (model.OrchestrationPlan, error) {
	// Step 1: SafetyValidator.
	if err := p.safety.Check(&validators.Input{Objective: objective}); err != nil {
		return model.OrchestrationPlan{}, err
	}

	// Step 2: VagueRequestDetector.
	if err := p.vague.Check(&validators.Input{Objective: objective}); err != nil {
		return model.OrchestrationPlan{}, err
	}
	vagueResult := p.vague.Analyze(objective)
	if vagueResult.IsVague {
		return buildRequirementsGatheringPlan(objective, vagueResult), nil
	}

	analysis := p.semantic.Analyze(objective)

	// Step 3: best-effort long-term retrieval, bounded by a 2s deadline.
	var warnings []string
	if p.knowledge != nil {
		kctx, cancel := context.WithTimeout(ctx, external.RetrievalDeadline)
		if _, err := p.knowledge.Search(kctx, objective); err != nil {
			warnings = append(warnings, "long-term knowledge retrieval unavailable: "+err.Error())
		}
		cancel()
	}

	// Step 4: pattern reuse.
	if reuse, ok := p.findReuseCandidate(objective, projectContext, analysis, pastExecutions); ok {
		plan, err := p.finalizePlan(objective, analysis, reuse.pattern.AgentsUsed, nil, warnings, cons)
		if err != nil {
			return model.OrchestrationPlan{}, err
		}
		plan.Rationale = fmt.Sprintf("pattern reuse (similarity=%.2f, prior success): %s", reuse.similarity, plan.Rationale)
		return plan, nil
	}

	// Step 5: canonical pattern library match.
	if canon, ok := matchCanonicalPattern(objective, analysis); ok {
		plan, err := p.finalizePlan(objective, analysis, canon.Agents, nil, warnings, cons)
		if err != nil {
			return model.OrchestrationPlan{}, err
		}
		plan.Rationale = fmt.Sprintf("matched canonical pattern %q: %s", canon.Name, plan.Rationale)
		return plan, nil
	}

	// Step 6: custom plan generation.
	candidateIDs, matches := p.selectCustomCandidates(objective, projectContext, analysis)
	plan, err := p.finalizePlan(objective, analysis, candidateIDs, matches, warnings, cons)
	if err != nil {
		return model.OrchestrationPlan{}, err
	}
	plan.Rationale = "custom plan: " + plan.Rationale
	return plan, nil
}

// finalizePlan is the common tail shared by every path that reaches a
// candidate agent id list: build specs, run ConflictDetector (6h),
// ConstraintEnforcer (6i), the final Bayesian pass with a Pareto fallback
// (6j), and the ConfidenceValidator gate (6k), then emit a rationale (7).
func (p *Planner) finalizePlan(
	objective string,
	analysis model.ObjectiveAnalysis,
	agentIDs []model.AgentId,
	matches []patternmemory.Match,
	warnings []string,
	cons validators.Constraints,
) (model.OrchestrationPlan, error) {
	candidates := p.resolveCandidates(agentIDs, analysis.Domain)
	rankBySuccessRate(candidates)

	similar := similarSummaries(matches)
	specs := buildAgentSpecs(objective, analysis, candidates, similar, warnings)
	strategy, phases := determineStrategyAndPhases(specs, candidates)

	plan := model.OrchestrationPlan{
		Agents:             specs,
		Strategy:           strategy,
		Phases:             phases,
		Intent:             analysis.Intent,
		EstimatedTokens:    estimateTokens(candidates),
		SemanticConfidence: analysis.Confidence,
		SuccessCriteria:    []string{"all agents complete without error", "no unresolved conflicts"},
	}

	// 6h: conflict analysis.
	conflictResult := p.conflicts.Analyze(specs)
	plan.PredictedConflicts = conflictResult.PredictedConflicts
	plan.RiskScore = conflictResult.RiskScore
	if len(conflictResult.RecommendedReordering) > 0 {
		plan.Agents = reorderSpecs(plan.Agents, conflictResult.RecommendedReordering)
	}
	if len(conflictResult.AgentsToRemove) > 0 {
		plan.Agents = removeSpecs(plan.Agents, conflictResult.AgentsToRemove)
		candidates = removeCandidates(candidates, conflictResult.AgentsToRemove)
	}

	// 6i: constraint enforcement.
	adjusted, err := p.constraints.Enforce(plan, cons)
	if err != nil {
		return model.OrchestrationPlan{}, err
	}
	plan = adjusted
	candidates = filterCandidatesToSpecs(candidates, plan.Agents)

	// 6j: final Bayesian pass, with a Pareto fallback below threshold.
	ctxs := patternContexts(matches, p.decay, analysis.Domain)
	bayesResult := p.bayes.CalculateConfidence(candidates, ctxs, p.conflicts.Graph())
	plan.BayesianConfidence = bayesResult.Confidence
	plan.ConfidenceInterval = bayesResult.ConfidenceInterval
	plan.Uncertainty = bayesResult.Uncertainty
	warnings = append(warnings, bayesResult.Warnings...)

	if bayesResult.Confidence < paretoFallbackThreshold && len(candidates) > 1 {
		plan, candidates, bayesResult = p.applyParetoFallback(plan, candidates, ctxs)
	}

	// 6k: final gate.
	if err := p.confidenceGate.Check(&validators.Input{Plan: &plan, Registry: p.registry}); err != nil {
		return model.OrchestrationPlan{}, err
	}

	plan.Rationale = buildRationale(analysis, bayesResult, warnings, len(plan.Agents))
	return plan, nil
}

// applyParetoFallback implements §4.9 step 6j's low-confidence escape
// hatch: build four trimmed variants of the candidate set — as-is,
// drop-lowest-priority, high-priority-only, and one-per-specialization —
// score each across accuracy/cost/latency, and recommend the best from
// the Pareto frontier. Accuracy approximates a variant's registry
// success rate average; cost and latency are negated token/duration
// estimates per the optimizer's convention.
func (p *Planner) applyParetoFallback(plan model.OrchestrationPlan, candidates []model.AgentCapability, ctxs []bayesian.PatternContext) (model.OrchestrationPlan, []model.AgentCapability, bayesian.Result) {
	variants := buildParetoVariants(candidates)
	if len(variants) == 0 {
		return plan, candidates, p.bayes.CalculateConfidence(candidates, ctxs, p.conflicts.Graph())
	}

	best := p.pareto.Recommend(variants)
	chosen := capabilitiesForLabel(candidates, best.Label)
	if len(chosen) == 0 {
		return plan, candidates, p.bayes.CalculateConfidence(candidates, ctxs, p.conflicts.Graph())
	}

	keep := make(map[model.AgentId]bool, len(chosen))
	for _, ac := range chosen {
		keep[ac.ID] = true
	}
	plan.Agents = removeSpecs(plan.Agents, missingIDs(candidates, keep))
	bayesResult := p.bayes.CalculateConfidence(chosen, ctxs, p.conflicts.Graph())
	return plan, chosen, bayesResult
}

// paretoVariantLabels names the four §4.9j fallback variants.
const (
	variantCurrent            = "current"
	variantDropLowestPriority = "drop_lowest_priority"
	variantHighPriorityOnly   = "high_priority_only"
	variantDedupeFamily       = "dedupe_by_family"
)

func buildParetoVariants(candidates []model.AgentCapability) []pareto.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	variants := []struct {
		label string
		set   []model.AgentCapability
	}{
		{variantCurrent, candidates},
		{variantDropLowestPriority, dropLast(candidates)},
		{variantHighPriorityOnly, firstN(candidates, (len(candidates)+1)/2)},
		{variantDedupeFamily, dedupeByFamily(candidates)},
	}

	out := make([]pareto.Candidate, 0, len(variants))
	for _, v := range variants {
		if len(v.set) == 0 {
			continue
		}
		out = append(out, pareto.Candidate{
			Label:      v.label,
			Agents:     idsOf(v.set),
			Accuracy:   averageSuccessRate(v.set),
			NegCost:    -float64(estimateTokens(v.set)),
			NegLatency: -sumDuration(v.set),
		})
	}
	return out
}

func capabilitiesForLabel(candidates []model.AgentCapability, label string) []model.AgentCapability {
	switch label {
	case variantCurrent:
		return candidates
	case variantDropLowestPriority:
		return dropLast(candidates)
	case variantHighPriorityOnly:
		return firstN(candidates, (len(candidates)+1)/2)
	case variantDedupeFamily:
		return dedupeByFamily(candidates)
	default:
		return nil
	}
}

func dropLast(candidates []model.AgentCapability) []model.AgentCapability {
	if len(candidates) <= 1 {
		return candidates
	}
	return append([]model.AgentCapability(nil), candidates[:len(candidates)-1]...)
}

func firstN(candidates []model.AgentCapability, n int) []model.AgentCapability {
	if n <= 0 {
		n = 1
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	return append([]model.AgentCapability(nil), candidates[:n]...)
}

func idsOf(candidates []model.AgentCapability) []model.AgentId {
	out := make([]model.AgentId, len(candidates))
	for i, ac := range candidates {
		out[i] = ac.ID
	}
	return out
}

func averageSuccessRate(candidates []model.AgentCapability) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var total float64
	for _, ac := range candidates {
		total += ac.SuccessRate
	}
	return total / float64(len(candidates))
}

func sumDuration(candidates []model.AgentCapability) float64 {
	var total float64
	for _, ac := range candidates {
		total += ac.AvgDurationMS
	}
	return total
}

func missingIDs(candidates []model.AgentCapability, keep map[model.AgentId]bool) []model.AgentId {
	var out []model.AgentId
	for _, ac := range candidates {
		if !keep[ac.ID] {
			out = append(out, ac.ID)
		}
	}
	return out
}

func buildRationale(analysis model.ObjectiveAnalysis, bayes bayesian.Result, warnings []string, agentCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s; %d agent(s) selected; semantic_confidence=%.2f; bayesian_confidence=%.2f (CI %.2f-%.2f, uncertainty=%.2f)",
		analysis.Rationale, agentCount, analysis.Confidence, bayes.Confidence, bayes.ConfidenceInterval[0], bayes.ConfidenceInterval[1], bayes.Uncertainty)
	if len(warnings) > 0 {
		b.WriteString("; warnings: ")
		b.WriteString(strings.Join(warnings, "; "))
	}
	return b.String()
}

func reorderSpecs(specs []model.AgentSpec, order []model.AgentId) []model.AgentSpec {
	byID := make(map[model.AgentId]model.AgentSpec, len(specs))
	for _, s := range specs {
		byID[s.AgentID] = s
	}
	out := make([]model.AgentSpec, 0, len(specs))
	placed := make(map[model.AgentId]bool, len(specs))
	for _, id := range order {
		if s, ok := byID[id]; ok && !placed[id] {
			out = append(out, s)
			placed[id] = true
		}
	}
	for _, s := range specs {
		if !placed[s.AgentID] {
			out = append(out, s)
		}
	}
	return out
}

func removeSpecs(specs []model.AgentSpec, remove []model.AgentId) []model.AgentSpec {
	drop := make(map[model.AgentId]bool, len(remove))
	for _, id := range remove {
		drop[id] = true
	}
	out := make([]model.AgentSpec, 0, len(specs))
	for _, s := range specs {
		if !drop[s.AgentID] {
			out = append(out, s)
		}
	}
	return out
}

func removeCandidates(candidates []model.AgentCapability, remove []model.AgentId) []model.AgentCapability {
	drop := make(map[model.AgentId]bool, len(remove))
	for _, id := range remove {
		drop[id] = true
	}
	out := make([]model.AgentCapability, 0, len(candidates))
	for _, c := range candidates {
		if !drop[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func filterCandidatesToSpecs(candidates []model.AgentCapability, specs []model.AgentSpec) []model.AgentCapability {
	keep := make(map[model.AgentId]bool, len(specs))
	for _, s := range specs {
		keep[s.AgentID] = true
	}
	out := make([]model.AgentCapability, 0, len(specs))
	for _, c := range candidates {
		if keep[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
