// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package feedback

import (
	"context"
	"fmt"

	"github.com/open-swarm/orchestrator-core/internal/external"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// runAsyncTask is the AsyncQueue's process callback; it is also the body
// every FeedbackWorkflow activity delegates to, so the in-process and
// Temporal-backed paths share one implementation.
func (l *Loop) runAsyncTask(ctx context.Context, t AsyncTask) error {
	switch t.Kind {
	case TaskRealTimeOverflow:
		// Step 1 already ran in Record before the budget check.
		l.patterns.Record(t.Pattern)
		l.bayes.UpdateCalibration(t.Pattern.PredictedConfidence, t.Pattern.Success)
		l.learnConflicts(t.Pattern)
		if observed := l.semantic.Analyze(t.Pattern.Objective); t.Pattern.ObjectiveType != "" {
			l.semantic.UpdateCalibration(t.Pattern.ObjectiveType, observed.Intent)
		}
		l.gradientStep(t.Pattern)
		return nil
	case TaskAggregate:
		// patterns.Record already folded this pattern into the rolling
		// aggregate synchronously; nothing further to do here once the
		// real-time path has already enriched it.
		return nil
	case TaskMemoryBridge:
		return l.bridgeToKnowledge(ctx, t.Pattern, t.Scope)
	case TaskAuditLog:
		l.events.Publish(external.Event{
			Type:      external.EventExecutionRecorded,
			Objective: t.Pattern.Objective,
			PlanID:    t.Pattern.ID,
			Detail:    fmt.Sprintf("success=%v agents=%d", t.Pattern.Success, len(t.Pattern.AgentsUsed)),
		})
		return nil
	default:
		return nil
	}
}

// valueScore combines success, novelty (few agents used, implying a
// tight reusable recipe) and project-relevance (a non-empty project
// context) into the memory-bridge's single retention signal.
func valueScore(p model.ExecutionPattern) float64 {
	score := 0.0
	if p.Success {
		score += 0.5
	}
	if len(p.AgentsUsed) > 0 && len(p.AgentsUsed) <= 3 {
		score += 0.2
	}
	if p.ProjectContext != "" {
		score += 0.15
	}
	if len(p.Conflicts) == 0 && len(p.Gaps) == 0 {
		score += 0.15
	}
	return score
}

// bridgeToKnowledge implements step 8: score the pattern, and if it
// clears the configured valuable-pattern threshold, anonymize it per
// scope and persist it as an entity (plus agent-used relations) to the
// long-term store.
func (l *Loop) bridgeToKnowledge(ctx context.Context, p model.ExecutionPattern, scope model.Scope) error {
	if p.Synthetic {
		return nil
	}
	if valueScore(p) < l.patternThreshold {
		return nil
	}

	entity := anonymize(p, scope)
	ctx, cancel := context.WithTimeout(ctx, external.PersistenceDeadline)
	defer cancel()

	if err := l.knowledge.CreateEntities(ctx, []external.KnowledgeStoreEntity{entity}); err != nil {
		return err
	}

	relations := make([]external.KnowledgeStoreRelation, 0, len(p.AgentsUsed))
	for _, agent := range p.AgentsUsed {
		relations = append(relations, external.KnowledgeStoreRelation{
			From: entity.Name,
			To:   string(agent),
			Type: "used_agent",
		})
	}
	if len(relations) == 0 {
		return nil
	}
	return l.knowledge.CreateRelations(ctx, relations)
}

// anonymize strips or generalizes fields per Scope.Sensitivity before a
// pattern crosses the knowledge-store boundary. Restricted/confidential
// scopes drop the literal objective and project context entirely,
// keeping only the structural shape (objective type/agents/outcome/
// tokens/duration) that makes the pattern reusable without leaking what
// was worked on.
func anonymize(p model.ExecutionPattern, scope model.Scope) external.KnowledgeStoreEntity {
	objective := p.Objective
	projectContext := p.ProjectContext
	if scope.Sensitivity == model.SensitivityConfidential || scope.Sensitivity == model.SensitivityRestricted {
		objective = fmt.Sprintf("objective_type:%s", p.ObjectiveType)
		projectContext = ""
	}

	observations := []string{
		fmt.Sprintf("objective: %s", objective),
		fmt.Sprintf("success: %v", p.Success),
		fmt.Sprintf("agents: %v", p.AgentsUsed),
		fmt.Sprintf("total_tokens: %d", p.TotalTokens),
		fmt.Sprintf("total_duration_ms: %d", p.TotalDurationMS),
	}
	if projectContext != "" {
		observations = append(observations, fmt.Sprintf("project_context: %s", projectContext))
	}

	return external.KnowledgeStoreEntity{
		Name:         fmt.Sprintf("execution_pattern:%s", p.ID),
		EntityType:   "execution_pattern",
		Observations: observations,
	}
}
