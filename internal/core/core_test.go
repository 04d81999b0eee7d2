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

func TestNew_ReturnsUsableCore(t *testing.T) {
	c, err := New(nil, Collaborators{})
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(c.Close)

	assert.NotEmpty(t, c.registry.List())
}

func TestPlan_EndToEnd_ProducesAPlan(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	plan, err := c.Plan(context.Background(), "fix the login bug in the auth service", "auth-service", validators.Constraints{})
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Agents)
}

func TestPlan_VagueObjective_ReturnsRequirementsGatheringPlan(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	plan, err := c.Plan(context.Background(), "do something", "", validators.Constraints{})
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Rationale)
}

func TestCoordinate_EndToEnd_FeedsFeedbackLoop(t *testing.T) {
	c, err := New(config.Default(), Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	plan, err := c.Plan(context.Background(), "implement a new caching layer", "payments", validators.Constraints{})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Agents)

	results := make([]model.AgentResult, 0, len(plan.Agents))
	for _, a := range plan.Agents {
		results = append(results, model.AgentResult{
			AgentID:    a.AgentID,
			Success:    true,
			DurationMS: 500,
			TokensUsed: 300,
		})
	}

	coordination := c.Coordinate(context.Background(), "implement a new caching layer", "payments", results, &plan)
	assert.Empty(t, coordination.FailedAgents)
}

func TestNew_NilConfigUsesDefault(t *testing.T) {
	c, err := New(nil, Collaborators{})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	assert.Equal(t, config.Default().Learning.ValuablePatternThreshold, c.cfg.Learning.ValuablePatternThreshold)
}
