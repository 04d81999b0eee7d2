// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package diagnosis classifies agent failure messages into the error
// taxonomy (§7): category, severity, recoverability and recommended
// recovery strategy, then derives a FailureContext and a short list of
// suggested fixes. Classification follows the same priority-ordered
// keyword-cascade idiom internal/semantic uses for intent/domain.
package diagnosis

import (
	"regexp"
	"strings"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

type categoryRule struct {
	category model.ErrorCategory
	pattern  *regexp.Regexp
}

func rule(category model.ErrorCategory, terms ...string) categoryRule {
	return categoryRule{category: category, pattern: regexp.MustCompile(`(?i)` + strings.Join(terms, "|"))}
}

// categoryCascade is checked in order; the first matching rule wins,
// mirroring intentOrder's "most specific first" discipline.
var categoryCascade = []categoryRule{
	rule(model.ErrorAuthentication, "unauthorized", "authentication failed", "invalid credentials", "401"),
	rule(model.ErrorPermission, "permission denied", "forbidden", "403"),
	rule(model.ErrorAPIRateLimit, "rate limit", "too many requests", "429"),
	rule(model.ErrorResourceExhausted, "out of memory", "disk full", "too many open files", "resource exhausted"),
	rule(model.ErrorNetwork, "connection refused", "dial tcp", "no route to host", "network unreachable"),
	rule(model.ErrorTimeout, "timeout", "deadline exceeded", "context deadline"),
	rule(model.ErrorVersionMismatch, "version mismatch", "incompatible version", "requires go"),
	rule(model.ErrorMissingDependency, "module not found", "cannot find package", "no such file", "missing dependency"),
	rule(model.ErrorConfiguration, "config", "environment variable", "not set"),
	rule(model.ErrorCompilation, "compile error", "build failed", "undefined:"),
	rule(model.ErrorSyntax, "syntax error", "unexpected token"),
	rule(model.ErrorLogic, "assertion failed", "expected .* got"),
}

// highSeverityCategories matches §7's fixed high-severity set.
var highSeverityCategories = map[model.ErrorCategory]bool{
	model.ErrorCompilation:       true,
	model.ErrorSyntax:            true,
	model.ErrorAuthentication:    true,
	model.ErrorMissingDependency: true,
	model.ErrorVersionMismatch:   true,
}

var criticalMarkers = regexp.MustCompile(`(?i)\bblocker\b|\bfatal\b`)

// recoveryTable encodes §7's (category) → recovery strategy mapping.
// network_error is special-cased in Recovery below (retry_backoff only
// on "connection refused", plain retry otherwise).
var recoveryTable = map[model.ErrorCategory]model.RecoveryStrategy{
	model.ErrorMissingDependency: model.RecoveryRetry,
	model.ErrorVersionMismatch:   model.RecoveryFallback,
	model.ErrorConfiguration:     model.RecoveryFallback,
	model.ErrorCompilation:       model.RecoveryAbort,
	model.ErrorSyntax:            model.RecoveryAbort,
	model.ErrorTimeout:           model.RecoveryRetry,
	model.ErrorAPIRateLimit:      model.RecoveryRetryBackoff,
	model.ErrorAuthentication:    model.RecoveryManual,
	model.ErrorPermission:        model.RecoveryManual,
	model.ErrorResourceExhausted: model.RecoveryRetryBackoff,
	model.ErrorLogic:             model.RecoveryManual,
	model.ErrorUnknown:           model.RecoveryManual,
}

// Classify maps a free-text error message to its category, falling back
// to unknown when nothing in the cascade matches.
func Classify(errorMessage string) model.ErrorCategory {
	for _, r := range categoryCascade {
		if r.pattern.MatchString(errorMessage) {
			return r.category
		}
	}
	return model.ErrorUnknown
}

// Severity derives §7's severity: the category's baseline, bumped to
// critical when the message carries an explicit "blocker"/"fatal"
// marker.
func Severity(category model.ErrorCategory, errorMessage string) model.ErrorSeverity {
	if criticalMarkers.MatchString(errorMessage) {
		return model.SeverityCritical
	}
	if highSeverityCategories[category] {
		return model.SeverityHigh
	}
	return model.SeverityMedium
}

// Recovery implements §7's category → strategy table, special-casing
// network_error's connection-refused split on the error message;
// severity does not enter the choice.
func Recovery(category model.ErrorCategory, errorMessage string) model.RecoveryStrategy {
	if category == model.ErrorNetwork {
		if strings.Contains(strings.ToLower(errorMessage), "connection refused") {
			return model.RecoveryRetryBackoff
		}
		return model.RecoveryRetry
	}
	if strategy, ok := recoveryTable[category]; ok {
		return strategy
	}
	return model.RecoveryManual
}

// IsRecoverable reports whether the recommended strategy is something
// other than a dead end requiring a human.
func IsRecoverable(strategy model.RecoveryStrategy) bool {
	return strategy != model.RecoveryAbort && strategy != model.RecoveryManual
}

// Diagnose classifies one failed ExecutionPattern into a full
// FailureContext, including the agent that failed and the agents that
// ran before it.
func Diagnose(pattern model.ExecutionPattern, domain model.Domain) model.FailureContext {
	var failedAgent model.AgentId
	var preceding []model.AgentId
	order := pattern.ExecutionOrder
	if len(order) == 0 {
		order = pattern.AgentsUsed
	}
	if len(order) > 0 {
		failedAgent = order[len(order)-1]
		preceding = order[:len(order)-1]
	}

	category := Classify(pattern.FailureReason)
	severity := Severity(category, pattern.FailureReason)
	recovery := Recovery(category, pattern.FailureReason)

	return model.FailureContext{
		PatternID:            pattern.ID,
		Objective:            pattern.Objective,
		FailedAgent:          failedAgent,
		ErrorMessage:         pattern.FailureReason,
		ErrorCategory:        category,
		ErrorSeverity:        severity,
		ErrorDomain:          domain,
		PrecedingAgents:      preceding,
		RecoveryStrategy:     recovery,
		IsRecoverable:        IsRecoverable(recovery),
		LearnedAvoidanceRule: avoidanceRule(category, failedAgent),
		Timestamp:            pattern.Timestamp,
	}
}

// avoidanceRule renders the short, human-readable rule the coordinator
// surfaces as a recommendation: what to do differently next time.
func avoidanceRule(category model.ErrorCategory, agent model.AgentId) string {
	switch category {
	case model.ErrorMissingDependency:
		return "verify " + string(agent) + "'s declared dependencies are installed before dispatch"
	case model.ErrorVersionMismatch:
		return "pin a compatible toolchain/version before re-running " + string(agent)
	case model.ErrorConfiguration:
		return "check required configuration/environment variables before re-running " + string(agent)
	case model.ErrorCompilation, model.ErrorSyntax:
		return "run a build/lint check before dispatching " + string(agent) + " again"
	case model.ErrorAuthentication, model.ErrorPermission:
		return "escalate to a human to fix credentials/permissions before retrying " + string(agent)
	case model.ErrorTimeout, model.ErrorNetwork:
		return "retry " + string(agent) + " with backoff; check network reachability"
	case model.ErrorAPIRateLimit, model.ErrorResourceExhausted:
		return "retry " + string(agent) + " with backoff after the rate/resource limit clears"
	default:
		return "review " + string(agent) + "'s output manually before retrying"
	}
}

// SuggestedFixes expands a FailureContext's avoidance rule into a short
// list of concrete next actions for the host to present.
func SuggestedFixes(fc model.FailureContext) []string {
	fixes := []string{fc.LearnedAvoidanceRule}
	switch fc.RecoveryStrategy {
	case model.RecoveryRetry:
		fixes = append(fixes, "re-execute the same agent with no changes")
	case model.RecoveryRetryBackoff:
		fixes = append(fixes, "re-execute after a backoff delay (1s/2s/4s)")
	case model.RecoveryFallback:
		fixes = append(fixes, "substitute a fallback agent with equivalent capabilities")
	case model.RecoveryAbort:
		fixes = append(fixes, "abort this plan; the error is not recoverable by retrying")
	case model.RecoveryManual:
		fixes = append(fixes, "flag for manual review before continuing")
	}
	return fixes
}
