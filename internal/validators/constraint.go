// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package validators

import (
	"fmt"
	"sort"

	"github.com/open-swarm/orchestrator-core/internal/errors"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// priorityRank is shared with internal/conflict's lowest-priority removal
// ordering: lower rank means higher urgency and is kept first.
var priorityRank = map[model.Priority]int{
	model.PriorityCritical: 0,
	model.PriorityHigh:     1,
	model.PriorityMedium:   2,
	model.PriorityLow:      3,
}

// ConstraintEnforcer trims a built plan down to the caller's max_agents and
// max_tokens bounds, dropping lowest-priority agents first, before raising
// a ConstraintViolation only if no trim can satisfy the bound.
type ConstraintEnforcer struct{}

func NewConstraintEnforcer() *ConstraintEnforcer { return &ConstraintEnforcer{} }

func (c *ConstraintEnforcer) Name() string { return "constraint_enforcer" }

// Enforce mutates a copy of the plan to satisfy Constraints, auto-adjusting
// where possible. It returns the adjusted plan and, when no adjustment can
// satisfy the bound (e.g. max_tokens below the single cheapest agent), a
// ConstraintViolation.
func (c *ConstraintEnforcer) Enforce(plan model.OrchestrationPlan, cons Constraints) (model.OrchestrationPlan, error) {
	adjusted := plan
	agents := append([]model.AgentSpec(nil), plan.Agents...)

	if cons.MaxAgents < 0 {
		return adjusted, errors.ConstraintViolation("max_agents must not be negative", "")
	}

	if cons.MaxAgents > 0 && len(agents) > cons.MaxAgents {
		sort.SliceStable(agents, func(i, j int) bool {
			return priorityRank[agents[i].Priority] < priorityRank[agents[j].Priority]
		})
		agents = agents[:cons.MaxAgents]
	}

	adjusted.Agents = agents
	adjusted.Phases = filterPhases(plan.Phases, agents)

	if cons.MaxTokens > 0 {
		estimated := estimateTokensForAgents(plan, agents)
		for estimated > cons.MaxTokens && len(agents) > 1 {
			agents = dropLowestPriority(agents)
			estimated = estimateTokensForAgents(plan, agents)
		}
		if estimated > cons.MaxTokens {
			return adjusted, errors.ConstraintViolation(
				fmt.Sprintf("cannot satisfy max_tokens=%d", cons.MaxTokens),
				fmt.Sprintf("even the single remaining agent is estimated at %d tokens", estimated),
			)
		}
		adjusted.Agents = agents
		adjusted.Phases = filterPhases(plan.Phases, agents)
		adjusted.EstimatedTokens = estimated
	}

	return adjusted, nil
}

// Check implements Gate; it requires in.Plan to be set (post plan-generation).
func (c *ConstraintEnforcer) Check(in *Input) error {
	if in.Plan == nil {
		return nil
	}
	adjusted, err := c.Enforce(*in.Plan, in.Constraints)
	if err != nil {
		return err
	}
	*in.Plan = adjusted
	return nil
}

func dropLowestPriority(agents []model.AgentSpec) []model.AgentSpec {
	if len(agents) == 0 {
		return agents
	}
	worstIdx, worstRank := 0, -1
	for i, a := range agents {
		if r := priorityRank[a.Priority]; r > worstRank {
			worstRank = r
			worstIdx = i
		}
	}
	return append(agents[:worstIdx], agents[worstIdx+1:]...)
}

func filterPhases(phases []model.Phase, kept []model.AgentSpec) []model.Phase {
	keptSet := make(map[model.AgentId]bool, len(kept))
	for _, a := range kept {
		keptSet[a.AgentID] = true
	}
	var out []model.Phase
	for _, p := range phases {
		var agents []model.AgentId
		for _, id := range p.Agents {
			if keptSet[id] {
				agents = append(agents, id)
			}
		}
		if len(agents) > 0 {
			out = append(out, model.Phase{Name: p.Name, Agents: agents, CanRunParallel: p.CanRunParallel})
		}
	}
	return out
}

// estimateTokensForAgents re-derives a proportional token estimate for a
// trimmed agent subset from the original plan's total, since per-agent
// token estimates are not separately tracked on AgentSpec.
func estimateTokensForAgents(original model.OrchestrationPlan, kept []model.AgentSpec) int {
	if len(original.Agents) == 0 || original.EstimatedTokens == 0 {
		return 0
	}
	perAgent := float64(original.EstimatedTokens) / float64(len(original.Agents))
	return int(perAgent * float64(len(kept)))
}
