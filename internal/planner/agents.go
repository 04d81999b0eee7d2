// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package planner

import (
	"fmt"
	"sort"

	"github.com/open-swarm/orchestrator-core/internal/prompts"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// agentBudget maps Complexity to how many agents a custom plan selects,
// before mandatory-agent enforcement can add more.
var agentBudget = map[model.Complexity]int{
	model.ComplexitySimple:   1,
	model.ComplexityModerate: 2,
	model.ComplexityComplex:  3,
}

// defaultAvgTokens is used when a candidate agent has no execution history
// yet (AvgTokens == 0), so estimation never silently rounds an unproven
// agent's cost to zero.
const defaultAvgTokens = 1500

// tokenOverheadFactor is the 10% overhead applied to the sum of selected
// agents' avg_tokens (§4.9g).
const tokenOverheadFactor = 1.10

// phaseBucket classifies an agent into one of the three canonical phases
// by its declared capability tags — design, verification, or the
// implementation default — so strategy/phase determination (§4.9f) can
// detect the design/implement/verify tri-phase shape.
func phaseBucket(ac model.AgentCapability) string {
	if _, ok := ac.Capabilities["architecture"]; ok {
		return "design"
	}
	if _, ok := ac.Capabilities["design"]; ok {
		return "design"
	}
	if _, ok := ac.Capabilities["verification"]; ok {
		return "verification"
	}
	return "implementation"
}

// buildAgentSpecs turns a ranked, deduplicated agent id list into
// AgentSpecs with dependencies wired by phase (design -> implementation ->
// verification) and prompts rendered per agent.
func buildAgentSpecs(
	objective string,
	analysis model.ObjectiveAnalysis,
	candidates []model.AgentCapability,
	similar []string,
	warnings []string,
) []model.AgentSpec {
	byPhase := map[string][]model.AgentId{}
	for _, ac := range candidates {
		phase := phaseBucket(ac)
		byPhase[phase] = append(byPhase[phase], ac.ID)
	}

	var deps func(phase string) []model.AgentId
	deps = func(phase string) []model.AgentId {
		switch phase {
		case "implementation":
			return byPhase["design"]
		case "verification":
			out := append([]model.AgentId(nil), byPhase["design"]...)
			out = append(out, byPhase["implementation"]...)
			return out
		default:
			return nil
		}
	}

	specs := make([]model.AgentSpec, 0, len(candidates))
	for _, ac := range candidates {
		phase := phaseBucket(ac)
		task := fmt.Sprintf("%s: address the %s aspect of the %s domain for: %s", phase, phase, analysis.Domain, objective)
		priority := model.PriorityMedium
		if phase == "verification" {
			priority = model.PriorityHigh
		}
		specs = append(specs, model.AgentSpec{
			AgentID:         ac.ID,
			TaskDescription: task,
			Prompt:          prompts.BuildForSpec(task, objective, analysis.Intent, analysis.Domain, deps(phase), similar, warnings),
			Dependencies:    deps(phase),
			Priority:        priority,
		})
	}
	return specs
}

// determineStrategyAndPhases implements §4.9f: parallel iff no agent
// declares a dependency, phased iff all three canonical phases are
// present, else sequential in one "execution" phase (dependencies stay
// as buildAgentSpecs wired them by phase; nothing is rewired here).
func determineStrategyAndPhases(specs []model.AgentSpec, candidates []model.AgentCapability) (model.Strategy, []model.Phase) {
	hasDeps := false
	for _, s := range specs {
		if len(s.Dependencies) > 0 {
			hasDeps = true
			break
		}
	}
	if !hasDeps {
		return model.StrategyParallel, []model.Phase{{
			Name:           "execution",
			Agents:         agentIDs(specs),
			CanRunParallel: true,
		}}
	}

	byPhase := map[string][]model.AgentId{}
	for _, ac := range candidates {
		phase := phaseBucket(ac)
		byPhase[phase] = append(byPhase[phase], ac.ID)
	}
	if len(byPhase["design"]) > 0 && len(byPhase["implementation"]) > 0 && len(byPhase["verification"]) > 0 {
		phases := []model.Phase{
			{Name: "design", Agents: byPhase["design"], CanRunParallel: len(byPhase["design"]) > 1},
			{Name: "implementation", Agents: byPhase["implementation"], CanRunParallel: len(byPhase["implementation"]) > 1},
			{Name: "verification", Agents: byPhase["verification"], CanRunParallel: len(byPhase["verification"]) > 1},
		}
		return model.StrategyPhased, phases
	}

	return model.StrategySequential, []model.Phase{{Name: "execution", Agents: agentIDs(specs)}}
}

func agentIDs(specs []model.AgentSpec) []model.AgentId {
	out := make([]model.AgentId, len(specs))
	for i, s := range specs {
		out[i] = s.AgentID
	}
	return out
}

// estimateTokens sums each candidate's avg_tokens (defaulting unproven
// agents to defaultAvgTokens) with a 10% overhead factor (§4.9g).
func estimateTokens(candidates []model.AgentCapability) int {
	var total float64
	for _, ac := range candidates {
		tokens := ac.AvgTokens
		if tokens <= 0 {
			tokens = defaultAvgTokens
		}
		total += tokens
	}
	return int(total * tokenOverheadFactor)
}

// rankBySuccessRate sorts candidates by success_rate descending, ties
// broken by agent id for determinism.
func rankBySuccessRate(candidates []model.AgentCapability) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].SuccessRate != candidates[j].SuccessRate {
			return candidates[i].SuccessRate > candidates[j].SuccessRate
		}
		return candidates[i].ID < candidates[j].ID
	})
}

// dedupeByFamily keeps only the first (highest-ranked) agent per
// specialization family — used by the Pareto fallback variant in §4.9j.
func dedupeByFamily(candidates []model.AgentCapability) []model.AgentCapability {
	seen := make(map[string]bool, len(candidates))
	out := make([]model.AgentCapability, 0, len(candidates))
	for _, ac := range candidates {
		if seen[ac.Specialization] {
			continue
		}
		seen[ac.Specialization] = true
		out = append(out, ac)
	}
	return out
}
