// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(nil, Collaborators{})
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func TestPlan_ReturnsAPlanForAnOrdinaryObjective(t *testing.T) {
	o := newTestOrchestrator(t)

	resp := o.Plan(context.Background(), PlanRequest{Objective: "fix the failing login test", ProjectContext: "auth-service"})
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Plan)
	assert.NotEmpty(t, resp.Plan.Agents)
}

func TestPlan_SafetyViolationReturnsEnvelope(t *testing.T) {
	o := newTestOrchestrator(t)

	resp := o.Plan(context.Background(), PlanRequest{Objective: "rm -rf / the production database"})
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.Error.Kind)
}

func TestCoordinate_ReportsFailedAgents(t *testing.T) {
	o := newTestOrchestrator(t)

	planResp := o.Plan(context.Background(), PlanRequest{Objective: "add a caching layer to the API", ProjectContext: "payments"})
	require.Nil(t, planResp.Error)
	require.NotEmpty(t, planResp.Plan.Agents)

	results := []model.AgentResult{{AgentID: planResp.Plan.Agents[0].AgentID, Success: false, Error: "timeout"}}
	resp := o.Coordinate(context.Background(), CoordinateRequest{
		Objective:    "add a caching layer to the API",
		AgentResults: results,
		Plan:         planResp.Plan,
	})
	assert.Contains(t, resp.Result.FailedAgents, planResp.Plan.Agents[0].AgentID)
}

func TestAnalyze_ReturnsAHealthScore(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.Analyze(context.Background(), AnalyzeRequest{})
	assert.GreaterOrEqual(t, resp.HealthScore, 0.0)
}

func TestRecordFeedback_UpdatesRegistryStats(t *testing.T) {
	o := newTestOrchestrator(t)
	agents := o.ListLearnedAgents(context.Background(), ListLearnedAgentsRequest{})
	require.NotEmpty(t, agents.Agents)

	id := agents.Agents[0].ID
	resp := o.RecordFeedback(context.Background(), RecordFeedbackRequest{AgentID: id, Success: true, TokensUsed: 100, DurationMS: 200})
	assert.True(t, resp.OK)
}

func TestAnalyzeFailure_ReturnsCategoryAndFixes(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.AnalyzeFailure(context.Background(), AnalyzeFailureRequest{
		Objective:     "deploy the service",
		FailedAgentID: "deployer",
		Error:         "connection refused",
	})
	assert.Equal(t, model.ErrorNetwork, resp.FailureContext.ErrorCategory)
	assert.NotEmpty(t, resp.SuggestedFixes)
}

func TestFindPatterns_ReturnsSimilarityScores(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.FindPatterns(context.Background(), FindPatternsRequest{Objective: "fix a failing unit test"})
	for _, m := range resp.Patterns {
		assert.GreaterOrEqual(t, m.SimilarityScore, 0.0)
	}
}

func TestDiscoverAgents_RegistersNewAgent(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.DiscoverAgents(context.Background(), DiscoverAgentsRequest{
		Agents: []model.AgentCapability{{ID: "custom-agent", Specialization: "research"}},
	})
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, model.AgentId("custom-agent"), resp.Agents[0].ID)
}

func TestListLearnedAgents_RankedOrdersBySuccessRate(t *testing.T) {
	o := newTestOrchestrator(t)
	resp := o.ListLearnedAgents(context.Background(), ListLearnedAgentsRequest{Ranked: true})
	require.NotEmpty(t, resp.Agents)
	for i := 1; i < len(resp.Agents); i++ {
		assert.GreaterOrEqual(t, resp.Agents[i-1].SuccessRate, resp.Agents[i].SuccessRate)
	}
}
