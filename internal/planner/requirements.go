// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package planner

import (
	"fmt"
	"strings"

	"github.com/open-swarm/orchestrator-core/internal/prompts"
	"github.com/open-swarm/orchestrator-core/internal/validators"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// requirementsGatheringAgent is the single agent dispatched for a vague
// objective: asking clarifying questions rather than guessing.
const requirementsGatheringAgent model.AgentId = "the_scholar"

// requirementsGatheringTokens is a flat estimate for a single
// clarifying-question pass.
const requirementsGatheringTokens = 500

// buildRequirementsGatheringPlan short-circuits §4.9 step 2: rather than
// guess at an under-specified objective, dispatch a single agent whose job
// is to ask clarifying questions.
func buildRequirementsGatheringPlan(objective string, vague validators.VagueResult) model.OrchestrationPlan {
	task := "Ask clarifying questions to turn this under-specified objective into an actionable plan: " + objective
	spec := model.AgentSpec{
		AgentID:         requirementsGatheringAgent,
		TaskDescription: task,
		Prompt:          prompts.BuildForSpec(task, objective, "", "", nil, nil, vague.MissingElements),
		Priority:        model.PriorityHigh,
	}

	return model.OrchestrationPlan{
		Agents:          []model.AgentSpec{spec},
		Strategy:        model.StrategySequential,
		Phases:          []model.Phase{{Name: "clarification", Agents: []model.AgentId{requirementsGatheringAgent}}},
		SuccessCriteria: []string{"objective is specific enough to plan against"},
		EstimatedTokens: requirementsGatheringTokens,
		Rationale: fmt.Sprintf(
			"objective scored %.2f on the vagueness scale (missing: %s); short-circuiting to a requirements-gathering plan",
			vague.Score, strings.Join(vague.MissingElements, ", "),
		),
		SemanticConfidence: 1 - vague.Score,
		BayesianConfidence: 1.0, // a clarifying-question agent cannot itself fail to execute
		ConfidenceInterval: [2]float64{1 - vague.Score, 1.0},
	}
}
