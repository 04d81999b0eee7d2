// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func TestAnalyze_EmptyObjective(t *testing.T) {
	a := New()
	analysis := a.Analyze("")

	assert.Equal(t, model.IntentInvestigate, analysis.Intent)
	assert.Equal(t, model.DomainResearch, analysis.Domain)
	assert.LessOrEqual(t, analysis.Confidence, 0.3)
}

func TestAnalyze_CreativeShortCircuit(t *testing.T) {
	a := New()
	analysis := a.Analyze("Write a haiku about autumn leaves.")

	assert.Equal(t, model.IntentCreateNew, analysis.Intent)
	assert.Equal(t, model.DomainCreative, analysis.Domain)
	assert.Equal(t, model.TaskTypeCreative, analysis.TaskType)
}

func TestAnalyze_InfrastructureDeploy(t *testing.T) {
	a := New()
	analysis := a.Analyze("Setup AWS cloud orchestration cluster")

	assert.Equal(t, model.IntentDeploy, analysis.Intent)
	assert.Equal(t, model.DomainInfrastructure, analysis.Domain)
}

func TestAnalyze_DashboardDisambiguation(t *testing.T) {
	a := New()
	analysis := a.Analyze("Create a fun interactive demo web dashboard that visualizes orchestration patterns")

	assert.Equal(t, model.DomainUIUX, analysis.Domain)
}

func TestAnalyze_DeployBeforeCreateNew(t *testing.T) {
	a := New()
	analysis := a.Analyze("setup infrastructure for the new service")

	assert.Equal(t, model.IntentDeploy, analysis.Intent, "deploy must win over create_new priority")
}

func TestAnalyze_NoKeywordMatchDefaultsToInvestigate(t *testing.T) {
	a := New()
	analysis := a.Analyze("Look at the sunset over there")

	assert.Equal(t, model.IntentInvestigate, analysis.Intent, "zero keyword matches must default to investigate, not the last cascade entry")
}

func TestRequiredCapabilities_Infrastructure(t *testing.T) {
	caps := RequiredCapabilities(model.DomainInfrastructure, model.IntentDeploy)
	assert.Contains(t, caps, "devops")
}

func TestRequiredCapabilities_Creative(t *testing.T) {
	caps := RequiredCapabilities(model.DomainCreative, model.IntentCreateNew)
	assert.Contains(t, caps, "creative_writing")
}

func TestEmbed_ScoresSumToOne(t *testing.T) {
	a := New()
	embedding := a.Embed("Fix the broken login test")

	var total float64
	for _, s := range embedding.IntentScores {
		total += s
	}
	assert.InDelta(t, 1.0, total, 0.01)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := New()
	first := a.Analyze("Refactor the authentication middleware")
	second := a.Analyze("Refactor the authentication middleware")

	assert.Equal(t, first, second)
}
