// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/internal/errors"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

type fakeRegistry struct {
	ranked []model.AgentCapability
}

func (f fakeRegistry) SelectByCapabilities(required []string) []model.AgentId { return nil }
func (f fakeRegistry) RankedBySuccessRate() []model.AgentCapability           { return f.ranked }

func TestConfidenceValidator_HighConfidencePasses(t *testing.T) {
	c := NewConfidenceValidator()
	plan := &model.OrchestrationPlan{BayesianConfidence: 0.9}
	err := c.Check(&Input{Plan: plan})
	assert.NoError(t, err)
}

func TestConfidenceValidator_ThresholdIsPointThree(t *testing.T) {
	c := NewConfidenceValidator()

	atThreshold := &model.OrchestrationPlan{BayesianConfidence: 0.3}
	assert.NoError(t, c.Check(&Input{Plan: atThreshold}), "0.3 itself must pass, scenario S6 triggers strictly below it")

	justBelow := &model.OrchestrationPlan{BayesianConfidence: 0.29}
	assert.Error(t, c.Check(&Input{Plan: justBelow}), "confidence just below 0.3 must trigger the low-confidence path")
}

func TestConfidenceValidator_LowConfidenceAddsFallback(t *testing.T) {
	c := NewConfidenceValidator()
	plan := &model.OrchestrationPlan{
		BayesianConfidence: 0.1,
		Agents:             []model.AgentSpec{{AgentID: "the_builder"}},
	}
	registry := fakeRegistry{ranked: []model.AgentCapability{
		{ID: "the_builder", SuccessRate: 0.95},
		{ID: "the_verifier", SuccessRate: 0.9},
	}}

	err := c.Check(&Input{Plan: plan, Registry: registry})
	require.NoError(t, err)
	require.Len(t, plan.Agents, 2)
	assert.Equal(t, model.AgentId("the_verifier"), plan.Agents[1].AgentID)
}

func TestConfidenceValidator_LowConfidenceNoFallback_Errors(t *testing.T) {
	c := NewConfidenceValidator()
	plan := &model.OrchestrationPlan{BayesianConfidence: 0.1}
	err := c.Check(&Input{Plan: plan})

	require.Error(t, err)
	var pe *errors.PlanError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.KindLowConfidence, pe.Kind)
}
