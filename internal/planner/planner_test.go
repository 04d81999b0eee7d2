// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/internal/bayesian"
	"github.com/open-swarm/orchestrator-core/internal/conflict"
	"github.com/open-swarm/orchestrator-core/internal/external"
	"github.com/open-swarm/orchestrator-core/internal/patternmemory"
	"github.com/open-swarm/orchestrator-core/internal/pareto"
	"github.com/open-swarm/orchestrator-core/internal/registry"
	"github.com/open-swarm/orchestrator-core/internal/semantic"
	"github.com/open-swarm/orchestrator-core/internal/temporaldecay"
	"github.com/open-swarm/orchestrator-core/internal/validators"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	reg := registry.New(nil)
	reg.Discover(registry.BuiltinAgents())
	analyzer := semantic.New()
	store := patternmemory.New(analyzer)
	return New(analyzer, reg, store, temporaldecay.New(), bayesian.New(), conflict.New(nil), pareto.New(), external.NoopKnowledgeStore{})
}

func TestPlan_SafetyViolation_BlocksBeforeAnalysis(t *testing.T) {
	p := newTestPlanner(t)
	_, err := p.Plan(context.Background(), "rm -rf / the production database", "", validators.Constraints{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety")
}

func TestPlan_VagueObjective_ShortCircuitsToRequirementsGathering(t *testing.T) {
	p := newTestPlanner(t)
	plan, err := p.Plan(context.Background(), "help", "", validators.Constraints{}, nil)
	require.NoError(t, err)
	require.Len(t, plan.Agents, 1)
	assert.Equal(t, requirementsGatheringAgent, plan.Agents[0].AgentID)
	assert.Equal(t, model.StrategySequential, plan.Strategy)
}

func TestPlan_CanonicalPatternMatch_BugFix(t *testing.T) {
	p := newTestPlanner(t)
	plan, err := p.Plan(context.Background(), "there is a crash happening in the checkout flow, please fix the bug", "", validators.Constraints{}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, plan.Agents)
	assert.Contains(t, plan.Rationale, "canonical pattern")
}

func TestPlan_CustomGeneration_SelectsAgentsWithinComplexityBudget(t *testing.T) {
	p := newTestPlanner(t)
	plan, err := p.Plan(context.Background(), "design a new architecture for the payments subsystem and implement it across several services with full verification", "", validators.Constraints{}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(plan.Agents), agentBudget[model.ComplexityComplex]+1)
	assert.NotEmpty(t, plan.Rationale)
}

func TestPlan_ConstraintViolation_MaxAgentsOne_TrimsToHighestPriority(t *testing.T) {
	p := newTestPlanner(t)
	cons := validators.Constraints{MaxAgents: 1}
	plan, err := p.Plan(context.Background(), "implement a new feature for user profile avatars with tests and documentation", "", cons, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(plan.Agents), 1)
}

func TestPlan_ReuseCandidate_FromPastExecutions(t *testing.T) {
	p := newTestPlanner(t)
	objective := "implement a new feature for the billing export pipeline"
	past := []model.ExecutionPattern{{
		Objective:  objective,
		Timestamp:  time.Now(),
		AgentsUsed: []model.AgentId{"the_builder"},
		Success:    true,
	}}
	plan, err := p.Plan(context.Background(), objective, "", validators.Constraints{}, past)
	require.NoError(t, err)
	assert.Contains(t, plan.Rationale, "pattern reuse")
}

func TestFinalizePlan_LowConfidenceFallsBackToFewerAgents(t *testing.T) {
	p := newTestPlanner(t)
	analysis := model.ObjectiveAnalysis{
		Intent:     model.IntentCreateNew,
		Domain:     model.DomainCode,
		Complexity: model.ComplexityComplex,
		Confidence: 0.5,
	}
	ids := []model.AgentId{"the_builder", "the_cartographer", "the_verifier"}
	plan, err := p.finalizePlan("objective", analysis, ids, nil, nil, validators.Constraints{})
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Agents)
}
