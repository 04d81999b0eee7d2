// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package planner

import (
	"fmt"

	"github.com/open-swarm/orchestrator-core/internal/bayesian"
	"github.com/open-swarm/orchestrator-core/internal/patternmemory"
	"github.com/open-swarm/orchestrator-core/internal/semantic"
	"github.com/open-swarm/orchestrator-core/internal/temporaldecay"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// reuseSimilarityThreshold, reuseRelevanceThreshold implement §4.9 step 4's
// "similarity >=0.85 and prior success and age <= half-life" reuse gate.
// A single ExecutionPattern has no separately tracked success rate; a
// pattern tagged successful is treated as rate 1.0, which clears the
// spec's >=0.8 bar.
const (
	reuseSimilarityThreshold = 0.85
	reuseRelevanceThreshold  = 0.5 // age <= half-life
	similarPatternFetchK     = 5
)

// reuseCandidate pairs a historical pattern with its similarity to the
// current objective.
type reuseCandidate struct {
	pattern    model.ExecutionPattern
	similarity float64
}

// findReuseCandidate checks the internal PatternMemory and any
// caller-supplied past_executions for a plan eligible to reuse outright.
func (p *Planner) findReuseCandidate(objective, projectContext string, analysis model.ObjectiveAnalysis, pastExecutions []model.ExecutionPattern) (reuseCandidate, bool) {
	var candidates []reuseCandidate

	for _, m := range p.patterns.FindSimilar(objective, projectContext, similarPatternFetchK) {
		candidates = append(candidates, reuseCandidate{pattern: m.Pattern, similarity: m.Similarity})
	}

	if len(pastExecutions) > 0 {
		query := patternmemory.Featurize(model.ExecutionPattern{Objective: objective, ProjectContext: projectContext}, analysis)
		for _, pe := range pastExecutions {
			vec := patternmemory.Featurize(pe, p.semantic.Analyze(pe.Objective))
			candidates = append(candidates, reuseCandidate{pattern: pe, similarity: vec.CosineSimilarity(query)})
		}
	}

	var best reuseCandidate
	found := false
	for _, c := range candidates {
		if c.similarity < reuseSimilarityThreshold || !c.pattern.Success {
			continue
		}
		if p.decay.Relevance(analysis.Domain, c.pattern.Timestamp) < reuseRelevanceThreshold {
			continue
		}
		if !found || c.similarity > best.similarity {
			best = c
			found = true
		}
	}
	return best, found
}

// resolveCandidates maps agent ids to their registry capability records
// (synthesizing a bare stub for unregistered ids so planning never fails
// on an unknown agent) and appends any agent the registry marks mandatory
// for the objective's domain.
func (p *Planner) resolveCandidates(ids []model.AgentId, domain model.Domain) []model.AgentCapability {
	seen := make(map[model.AgentId]bool, len(ids))
	out := make([]model.AgentCapability, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if ac, ok := p.registry.Get(id); ok {
			out = append(out, ac)
		} else {
			out = append(out, model.AgentCapability{ID: id, SuccessRate: 0.5})
		}
	}

	for _, ac := range p.registry.List() {
		if seen[ac.ID] {
			continue
		}
		if _, mandatory := ac.MandatoryFor[string(domain)]; mandatory {
			out = append(out, ac)
			seen[ac.ID] = true
		}
	}
	return out
}

// selectCustomCandidates implements §4.9 step 6a-6d: the union of
// analysis-recommended agents and capability-matched registry agents,
// merged with similar-pattern agents filtered by temporal relevance, then
// ranked and trimmed to the complexity-derived budget.
func (p *Planner) selectCustomCandidates(objective, projectContext string, analysis model.ObjectiveAnalysis) ([]model.AgentId, []patternmemory.Match) {
	idSet := map[model.AgentId]bool{}
	var ids []model.AgentId
	add := func(id model.AgentId) {
		if id == "" || idSet[id] {
			return
		}
		idSet[id] = true
		ids = append(ids, id)
	}

	for _, id := range analysis.RecommendedAgents {
		add(id)
	}
	for _, id := range p.registry.SelectByCapabilities(semantic.RequiredCapabilities(analysis.Domain, analysis.Intent)) {
		add(id)
	}

	matches := p.patterns.FindSimilar(objective, projectContext, similarPatternFetchK)
	for _, m := range matches {
		if p.decay.Relevance(analysis.Domain, m.Pattern.Timestamp) < temporalDropThreshold {
			continue
		}
		for _, id := range m.Pattern.AgentsUsed {
			add(id)
		}
	}

	candidates := p.resolveCandidates(ids, analysis.Domain)
	rankBySuccessRate(candidates)

	budget := agentBudget[analysis.Complexity]
	if budget == 0 {
		budget = agentBudget[model.ComplexityModerate]
	}

	var trimmed []model.AgentId
	for i, ac := range candidates {
		if i >= budget {
			// mandatory agents bypass the budget per §4.9e.
			if _, mandatory := ac.MandatoryFor[string(analysis.Domain)]; !mandatory {
				continue
			}
		}
		trimmed = append(trimmed, ac.ID)
	}
	if len(trimmed) == 0 && len(candidates) > 0 {
		trimmed = []model.AgentId{candidates[0].ID}
	}

	return trimmed, matches
}

// temporalDropThreshold is §4.9 step 6c's "drop relevance <0.2" rule.
const temporalDropThreshold = 0.2

// patternContexts converts FindSimilar matches into the bayesian engine's
// PatternContext shape, resolving each match's temporal relevance via the
// decay engine.
func patternContexts(matches []patternmemory.Match, decay *temporaldecay.Engine, domain model.Domain) []bayesian.PatternContext {
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

// similarSummaries renders short human-readable summaries of matched
// patterns for prompt context.
func similarSummaries(matches []patternmemory.Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, fmt.Sprintf("%.2f similarity: %s (success=%t)", m.Similarity, m.Pattern.Objective, m.Pattern.Success))
	}
	return out
}
