// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package diagnosis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func TestClassify_MatchesExpectedCategory(t *testing.T) {
	cases := []struct {
		name     string
		message  string
		expected model.ErrorCategory
	}{
		{"missing dependency", "cannot find package \"github.com/foo/bar\"", model.ErrorMissingDependency},
		{"version mismatch", "version mismatch: requires go 1.22", model.ErrorVersionMismatch},
		{"configuration", "required environment variable API_KEY not set", model.ErrorConfiguration},
		{"compilation", "build failed: undefined: foo.Bar", model.ErrorCompilation},
		{"syntax", "syntax error: unexpected token }", model.ErrorSyntax},
		{"network refused", "dial tcp 127.0.0.1:5432: connection refused", model.ErrorNetwork},
		{"timeout", "context deadline exceeded", model.ErrorTimeout},
		{"rate limit", "received 429 too many requests", model.ErrorAPIRateLimit},
		{"auth", "401 unauthorized: invalid credentials", model.ErrorAuthentication},
		{"permission", "permission denied writing to /etc", model.ErrorPermission},
		{"resource", "resource exhausted: out of memory", model.ErrorResourceExhausted},
		{"unknown", "the task produced unexpected output", model.ErrorUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, Classify(c.message))
		})
	}
}

func TestSeverity_HighCategoriesAndCriticalMarkers(t *testing.T) {
	assert.Equal(t, model.SeverityHigh, Severity(model.ErrorCompilation, "build failed"))
	assert.Equal(t, model.SeverityMedium, Severity(model.ErrorTimeout, "context deadline exceeded"))
	assert.Equal(t, model.SeverityCritical, Severity(model.ErrorTimeout, "fatal: context deadline exceeded"))
	assert.Equal(t, model.SeverityCritical, Severity(model.ErrorLogic, "blocker: assertion failed"))
}

func TestRecovery_NetworkErrorSplitsOnConnectionRefused(t *testing.T) {
	assert.Equal(t, model.RecoveryRetryBackoff, Recovery(model.ErrorNetwork, "dial tcp: connection refused"))
	assert.Equal(t, model.RecoveryRetry, Recovery(model.ErrorNetwork, "network unreachable"))
}

func TestRecovery_TableLookup(t *testing.T) {
	assert.Equal(t, model.RecoveryAbort, Recovery(model.ErrorCompilation, "build failed"))
	assert.Equal(t, model.RecoveryManual, Recovery(model.ErrorAuthentication, "401 unauthorized"))
	assert.Equal(t, model.RecoveryFallback, Recovery(model.ErrorVersionMismatch, "version mismatch"))
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(model.RecoveryRetry))
	assert.True(t, IsRecoverable(model.RecoveryRetryBackoff))
	assert.True(t, IsRecoverable(model.RecoveryFallback))
	assert.False(t, IsRecoverable(model.RecoveryAbort))
	assert.False(t, IsRecoverable(model.RecoveryManual))
}

func TestDiagnose_PopulatesFullFailureContext(t *testing.T) {
	pattern := model.ExecutionPattern{
		ID:             "pattern-1",
		Objective:      "deploy the service",
		ExecutionOrder: []model.AgentId{"planner", "coder", "deployer"},
		FailureReason:  "401 unauthorized: invalid credentials",
		Timestamp:      time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC),
	}

	fc := Diagnose(pattern, model.DomainInfrastructure)

	assert.Equal(t, model.AgentId("deployer"), fc.FailedAgent)
	assert.Equal(t, []model.AgentId{"planner", "coder"}, fc.PrecedingAgents)
	assert.Equal(t, model.ErrorAuthentication, fc.ErrorCategory)
	assert.Equal(t, model.SeverityHigh, fc.ErrorSeverity)
	assert.Equal(t, model.RecoveryManual, fc.RecoveryStrategy)
	assert.False(t, fc.IsRecoverable)
	assert.NotEmpty(t, fc.LearnedAvoidanceRule)
	assert.Equal(t, model.DomainInfrastructure, fc.ErrorDomain)
}

func TestSuggestedFixes_IncludesAvoidanceRuleAndStrategyHint(t *testing.T) {
	fc := model.FailureContext{
		LearnedAvoidanceRule: "retry deployer with backoff",
		RecoveryStrategy:     model.RecoveryRetryBackoff,
	}
	fixes := SuggestedFixes(fc)
	assert.Contains(t, fixes, "retry deployer with backoff")
	assert.Len(t, fixes, 2)
}
