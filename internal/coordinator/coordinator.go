// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package coordinator implements the Coordinator (§4.10): it turns the raw
// AgentResult[] from an executed OrchestrationPlan into a synthesis,
// detected conflicts, coverage gaps, and a verification-needed flag, then
// kicks the FeedbackLoop off in the background so the caller never waits
// on learning-subsystem updates.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// Recorder is the minimal FeedbackLoop seam the Coordinator needs: record
// one completed execution. Implemented by internal/feedback.Loop; kept as
// a narrow interface here so this package never imports feedback (which
// in turn depends on the subsystems feedback updates, not on coordinator).
type Recorder interface {
	Record(ctx context.Context, pattern model.ExecutionPattern)
}

// noopRecorder is used when the caller hasn't wired a FeedbackLoop yet
// (e.g. a dry-run CLI), so Coordinate never needs a nil check.
type noopRecorder struct{}

func (noopRecorder) Record(context.Context, model.ExecutionPattern) {}

// Coordinator is the Coordinator.
type Coordinator struct {
	recorder Recorder
}

// New constructs a Coordinator. recorder may be nil, in which case
// feedback updates are skipped (useful for dry runs/tests).
func New(recorder Recorder) *Coordinator {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Coordinator{recorder: recorder}
}

// Coordinate implements §4.10's algorithm end to end and fires the
// FeedbackLoop asynchronously before returning.
func (c *Coordinator) Coordinate(
	ctx context.Context,
	objective string,
	projectContext string,
	results []model.AgentResult,
	plan *model.OrchestrationPlan,
) model.CoordinationResult {
	result := model.CoordinationResult{
		PhaseSummaries: map[string]string{},
	}

	var failed, succeeded []model.AgentId
	for _, r := range results {
		if r.Success {
			succeeded = append(succeeded, r.AgentID)
		} else {
			failed = append(failed, r.AgentID)
		}
	}
	result.FailedAgents = failed
	result.SucceededAgents = succeeded

	if len(failed) > 0 {
		result.Synthesis = failureReport(failed, succeeded, results)
		result.Recommendations = []string{
			fmt.Sprintf("re-execute failed agent(s): %v", failed),
		}
	} else {
		phases := groupByPhase(results, plan)
		result.PhaseSummaries = summarizePhases(phases)
		result.Synthesis = concatenateSummaries(result.PhaseSummaries)
	}

	result.Conflicts = detectPostHocConflicts(results, plan)
	result.Gaps = detectGaps(results, plan)
	result.VerificationNeeded = verificationNeeded(results, plan)

	if len(result.Gaps) > 0 {
		for _, g := range result.Gaps {
			result.Recommendations = append(result.Recommendations, g.SuggestedAction)
		}
	}
	if result.VerificationNeeded {
		result.Recommendations = append(result.Recommendations, "run a verification agent before considering this objective complete")
	}

	pattern := buildExecutionPattern(objective, projectContext, results, plan, result)
	go c.recorder.Record(context.Background(), pattern)

	slog.Info("coordination complete",
		"objective", objective,
		"succeeded", len(succeeded),
		"failed", len(failed),
		"conflicts", len(result.Conflicts),
		"gaps", len(result.Gaps),
	)

	return result
}

func failureReport(failed, succeeded []model.AgentId, results []model.AgentResult) string {
	byID := make(map[model.AgentId]model.AgentResult, len(results))
	for _, r := range results {
		byID[r.AgentID] = r
	}
	report := fmt.Sprintf("%d of %d agents failed.\n", len(failed), len(results))
	for _, id := range failed {
		report += fmt.Sprintf("- %s failed: %s\n", id, byID[id].Error)
	}
	for _, id := range succeeded {
		report += fmt.Sprintf("- %s succeeded\n", id)
	}
	return report
}

func buildExecutionPattern(
	objective, projectContext string,
	results []model.AgentResult,
	plan *model.OrchestrationPlan,
	coordination model.CoordinationResult,
) model.ExecutionPattern {
	var agentsUsed []model.AgentId
	var totalDuration int64
	var totalTokens int
	success := len(coordination.FailedAgents) == 0
	var failureReason string

	for _, r := range results {
		agentsUsed = append(agentsUsed, r.AgentID)
		totalDuration += r.DurationMS
		totalTokens += r.TokensUsed
		if !r.Success && failureReason == "" {
			failureReason = r.Error
		}
	}

	var conflictLabels []string
	for _, conf := range coordination.Conflicts {
		conflictLabels = append(conflictLabels, fmt.Sprintf("%s:%s-%s", conf.Type, conf.AgentA, conf.AgentB))
	}
	var gapLabels []string
	for _, g := range coordination.Gaps {
		gapLabels = append(gapLabels, string(g.Type))
	}

	pattern := model.ExecutionPattern{
		ID:                 uuid.NewString(),
		Timestamp:          time.Now(),
		Objective:          objective,
		ProjectContext:     projectContext,
		AgentsUsed:         agentsUsed,
		AgentResults:       results,
		Success:            success,
		TotalDurationMS:    totalDuration,
		TotalTokens:        totalTokens,
		Conflicts:          conflictLabels,
		Gaps:               gapLabels,
		VerificationPassed: !coordination.VerificationNeeded,
		FailureReason:      failureReason,
	}
	if plan != nil {
		pattern.ExecutionOrder = agentIDsFromSpecs(plan.Agents)
		pattern.PredictedConfidence = plan.BayesianConfidence
		pattern.PredictedTokens = plan.EstimatedTokens
		pattern.ObjectiveType = plan.Intent
	}
	return pattern
}

func agentIDsFromSpecs(specs []model.AgentSpec) []model.AgentId {
	out := make([]model.AgentId, len(specs))
	for i, s := range specs {
		out[i] = s.AgentID
	}
	return out
}
