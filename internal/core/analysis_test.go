// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/internal/config"
	"github.com/open-swarm/orchestrator-core/internal/validators"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func TestHealth_ReturnsAScoreFromBootstrapPatterns(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	health := c.Health()
	assert.GreaterOrEqual(t, health.HealthScore, 0.0)
	assert.LessOrEqual(t, health.HealthScore, 1.0)
}

func TestPredictAgents_SkipsUnknownIDsAndScoresKnownOnes(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	known := c.registry.List()[0].ID
	predictions := c.PredictAgents(context.Background(), []model.AgentId{known, "does-not-exist"}, "fix a bug", "")

	require.Len(t, predictions, 1)
	assert.Equal(t, known, predictions[0].AgentID)
}

func TestAnalyzeFailure_ClassifiesAndSuggestsFixes(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	fc, fixes := c.AnalyzeFailure("deploy the service", "deployer", "401 unauthorized: invalid credentials",
		[]model.AgentId{"planner", "coder"}, "infra")

	assert.Equal(t, model.AgentId("deployer"), fc.FailedAgent)
	assert.Equal(t, model.ErrorAuthentication, fc.ErrorCategory)
	assert.Equal(t, model.RecoveryManual, fc.RecoveryStrategy)
	assert.NotEmpty(t, fixes)
}

func TestRefinePlan_AbortRecoveryRefusesToRefine(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	original := model.OrchestrationPlan{Agents: []model.AgentSpec{{AgentID: "coder"}}}
	fc := model.FailureContext{FailedAgent: "coder", RecoveryStrategy: model.RecoveryAbort, IsRecoverable: false}

	refined, err := c.RefinePlan(context.Background(), original, fc, "fix the bug", "", validators.Constraints{})
	require.NoError(t, err)
	assert.Equal(t, original, refined.Plan)
	assert.Equal(t, 0.0, refined.Confidence)
}

func TestRefinePlan_FallbackSubstitutesAnAgent(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	plan, err := c.Plan(context.Background(), "fix the login bug in the auth service", "auth-service", validators.Constraints{})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Agents)

	failedID := plan.Agents[0].AgentID
	failedCap, ok := c.registry.Get(failedID)
	require.True(t, ok)
	c.DiscoverAgents([]model.AgentCapability{{ID: "backup-agent", Specialization: failedCap.Specialization}})

	fc := model.FailureContext{
		FailedAgent:      failedID,
		ErrorCategory:    model.ErrorVersionMismatch,
		RecoveryStrategy: model.RecoveryFallback,
		IsRecoverable:    true,
	}

	refined, err := c.RefinePlan(context.Background(), plan, fc, "fix the login bug in the auth service", "auth-service", validators.Constraints{})
	require.NoError(t, err)
	assert.NotEmpty(t, refined.Reasoning)

	ids := make([]model.AgentId, 0, len(refined.Plan.Agents))
	for _, a := range refined.Plan.Agents {
		ids = append(ids, a.AgentID)
	}
	assert.Contains(t, ids, model.AgentId("backup-agent"))
	assert.NotContains(t, ids, failedID)
}

func TestFindPatterns_DefaultsLimitWhenNonPositive(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	matches := c.FindPatterns("fix a failing test", "", 0)
	assert.NotNil(t, matches)
}

func TestDiscoverAgents_RegistersAndReturnsRequested(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	caps := []model.AgentCapability{{ID: "new-agent", Specialization: "testing"}}
	out := c.DiscoverAgents(caps)
	require.Len(t, out, 1)
	assert.Equal(t, model.AgentId("new-agent"), out[0].ID)
}
