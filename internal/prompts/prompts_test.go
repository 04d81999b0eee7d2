// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func TestBuilder_Build_IncludesAllSections(t *testing.T) {
	out := New("fix the failing login test").
		WithObjective("fix the auth bug").
		WithIntentDomain(model.IntentFixIssue, model.DomainCode).
		WithDependencies([]model.AgentId{"the_scholar"}).
		WithSimilarPatterns([]string{"fixed similar NPE in 2026-07-01"}).
		WithWarnings([]string{"low historical confidence for this domain"}).
		Build()

	assert.Contains(t, out, "fix the failing login test")
	assert.Contains(t, out, "fix the auth bug")
	assert.Contains(t, out, "fix_issue")
	assert.Contains(t, out, "the_scholar")
	assert.Contains(t, out, "fixed similar NPE")
	assert.Contains(t, out, "low historical confidence")
	assert.Contains(t, out, "root cause")
}

func TestBuilder_Build_MinimalOmitsOptionalSections(t *testing.T) {
	out := New("write the initial scaffold").Build()
	assert.NotContains(t, out, "## Depends On")
	assert.NotContains(t, out, "## Similar Past Executions")
	assert.NotContains(t, out, "## Warnings")
	assert.Contains(t, out, "Complete the task as described")
}

func TestClosingInstructions_VariesByIntent(t *testing.T) {
	deploy := New("ship it").WithIntentDomain(model.IntentDeploy, model.DomainInfrastructure).Build()
	assert.Contains(t, deploy, "rollback path")

	validate := New("check it").WithIntentDomain(model.IntentValidate, model.DomainTesting).Build()
	assert.Contains(t, validate, "acceptance criteria")
}

func TestBuildForSpec_Convenience(t *testing.T) {
	out := BuildForSpec("task", "objective", model.IntentOptimize, model.DomainCode, nil, nil, nil)
	assert.Contains(t, out, "baseline measurement")
}
