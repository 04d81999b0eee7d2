// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package orchestrator is the tool surface (§6): one method per tool a
// host (an MCP server, an HTTP handler, a CLI) exposes to callers, each
// taking/returning plain DTOs and converting every failure into the
// {error:{kind,message,detail}} envelope rather than a raw Go error.
package orchestrator

import (
	"context"

	"github.com/open-swarm/orchestrator-core/internal/config"
	"github.com/open-swarm/orchestrator-core/internal/core"
	"github.com/open-swarm/orchestrator-core/internal/errors"
	"github.com/open-swarm/orchestrator-core/internal/validators"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// Collaborators re-exports internal/core's optional external seams so
// callers never need to import internal/core directly.
type Collaborators = core.Collaborators

// Orchestrator wraps the process-wide Core with the exact request/response
// shapes §6 documents.
type Orchestrator struct {
	core *core.Core
}

// New constructs an Orchestrator. cfg may be nil (loads defaults).
func New(cfg *config.Config, collaborators Collaborators) (*Orchestrator, error) {
	c, err := core.New(cfg, collaborators)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{core: c}, nil
}

// Close flushes and releases every held resource. Call once at shutdown.
func (o *Orchestrator) Close() {
	o.core.Close()
}

// --- plan --------------------------------------------------------------

type PlanRequest struct {
	Objective      string                 `json:"objective"`
	ProjectContext string                 `json:"context,omitempty"`
	Constraints    *ConstraintsDTO        `json:"constraints,omitempty"`
}

type ConstraintsDTO struct {
	MaxAgents      int  `json:"max_agents,omitempty"`
	MaxTokens      int  `json:"max_tokens,omitempty"`
	PreferParallel bool `json:"prefer_parallel,omitempty"`
}

func (c *ConstraintsDTO) toValidators() validators.Constraints {
	if c == nil {
		return validators.Constraints{}
	}
	return validators.Constraints{MaxAgents: c.MaxAgents, MaxTokens: c.MaxTokens, PreferParallel: c.PreferParallel}
}

type PlanResponse struct {
	Plan  *model.OrchestrationPlan `json:"plan,omitempty"`
	Error *errors.Envelope         `json:"error,omitempty"`
}

// Plan implements the "plan" tool.
func (o *Orchestrator) Plan(ctx context.Context, req PlanRequest) PlanResponse {
	plan, err := o.core.Plan(ctx, req.Objective, req.ProjectContext, req.Constraints.toValidators())
	if err != nil {
		env := errors.ToEnvelope(err)
		return PlanResponse{Error: &env}
	}
	return PlanResponse{Plan: &plan}
}

// --- coordinate ----------------------------------------------------------

type CoordinateRequest struct {
	Objective      string                   `json:"objective"`
	ProjectContext string                   `json:"context,omitempty"`
	AgentResults   []model.AgentResult      `json:"agent_results"`
	Plan           *model.OrchestrationPlan `json:"plan,omitempty"`
}

type CoordinateResponse struct {
	Result model.CoordinationResult `json:"result"`
}

// Coordinate implements the "coordinate" tool.
func (o *Orchestrator) Coordinate(ctx context.Context, req CoordinateRequest) CoordinateResponse {
	result := o.core.Coordinate(ctx, req.Objective, req.ProjectContext, req.AgentResults, req.Plan)
	return CoordinateResponse{Result: result}
}

// --- analyze -------------------------------------------------------------

type AnalyzeRequest struct {
	ProjectContext string `json:"context,omitempty"`
}

type AnalyzeResponse struct {
	HealthScore     float64               `json:"health_score"`
	CriticalIssues  []string              `json:"critical_issues"`
	Recommendations []string              `json:"recommendations"`
	SuggestedAgents []model.AgentCapability `json:"suggested_agents"`
}

// criticalFailureSample bounds how many recent failures feed analyze's
// critical-issue surfacing.
const criticalFailureSample = 20

// lowSuccessRateThreshold flags an agent as a suggested-improvement
// target once its smoothed success rate falls below this.
const lowSuccessRateThreshold = 0.5

// Analyze implements the "analyze" tool: a system-health snapshot built
// from recent pattern freshness, recent high-severity failures, and
// under-performing agents.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) AnalyzeResponse {
	health := o.core.Health()

	var critical []string
	var recommendations []string
	for _, fc := range o.core.RecentFailures(criticalFailureSample) {
		if fc.ErrorSeverity == model.SeverityHigh || fc.ErrorSeverity == model.SeverityCritical {
			critical = append(critical, string(fc.FailedAgent)+": "+string(fc.ErrorCategory)+" ("+fc.ErrorMessage+")")
			recommendations = append(recommendations, fc.LearnedAvoidanceRule)
		}
	}

	var suggested []model.AgentCapability
	for _, ac := range o.core.RankedAgents() {
		if ac.Total > 0 && ac.SuccessRate < lowSuccessRateThreshold {
			suggested = append(suggested, ac)
		}
	}

	if health.HealthScore < 0.3 {
		recommendations = append(recommendations, "pattern memory is mostly stale; re-run canonical objectives to refresh learned recipes")
	}

	return AnalyzeResponse{
		HealthScore:     health.HealthScore,
		CriticalIssues:  critical,
		Recommendations: recommendations,
		SuggestedAgents: suggested,
	}
}

// --- record_feedback -------------------------------------------------------

type RecordFeedbackRequest struct {
	AgentID    model.AgentId `json:"agent_id"`
	Success    bool          `json:"success"`
	TokensUsed int           `json:"tokens_used,omitempty"`
	DurationMS int64         `json:"duration_ms,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type RecordFeedbackResponse struct {
	OK bool `json:"ok"`
}

// RecordFeedback implements the "record_feedback" tool: a thin,
// single-agent wrapper over the same registry statistics update Record
// performs for every agent in a full ExecutionPattern.
func (o *Orchestrator) RecordFeedback(ctx context.Context, req RecordFeedbackRequest) RecordFeedbackResponse {
	o.core.RecordAgentFeedback(req.AgentID, req.Success, req.TokensUsed, req.DurationMS)
	return RecordFeedbackResponse{OK: true}
}

// --- predict_agents --------------------------------------------------------

type PredictAgentsRequest struct {
	AgentIDs       []model.AgentId `json:"agent_ids"`
	Objective      string          `json:"objective"`
	ProjectContext string          `json:"context,omitempty"`
}

type PredictAgentsResponse struct {
	Predictions []core.AgentPrediction `json:"predictions"`
}

// PredictAgents implements the "predict_agents" tool.
func (o *Orchestrator) PredictAgents(ctx context.Context, req PredictAgentsRequest) PredictAgentsResponse {
	return PredictAgentsResponse{Predictions: o.core.PredictAgents(ctx, req.AgentIDs, req.Objective, req.ProjectContext)}
}

// --- analyze_failure --------------------------------------------------------

type AnalyzeFailureRequest struct {
	Objective       string          `json:"objective"`
	FailedAgentID   model.AgentId   `json:"failed_agent_id"`
	Error           string          `json:"error"`
	PrecedingAgents []model.AgentId `json:"preceding_agents,omitempty"`
	ProjectContext  string          `json:"context,omitempty"`
}

type AnalyzeFailureResponse struct {
	FailureContext model.FailureContext `json:"failure_context"`
	SuggestedFixes []string             `json:"suggested_fixes"`
}

// AnalyzeFailure implements the "analyze_failure" tool.
func (o *Orchestrator) AnalyzeFailure(ctx context.Context, req AnalyzeFailureRequest) AnalyzeFailureResponse {
	fc, fixes := o.core.AnalyzeFailure(req.Objective, req.FailedAgentID, req.Error, req.PrecedingAgents, req.ProjectContext)
	return AnalyzeFailureResponse{FailureContext: fc, SuggestedFixes: fixes}
}

// --- refine_plan ------------------------------------------------------------

type RefinePlanRequest struct {
	OriginalPlan   model.OrchestrationPlan `json:"original_plan"`
	FailureContext model.FailureContext    `json:"failure_context"`
	Objective      string                  `json:"objective"`
	ProjectContext string                  `json:"context,omitempty"`
	Constraints    *ConstraintsDTO         `json:"constraints,omitempty"`
}

type RefinePlanResponse struct {
	RefinedPlan model.OrchestrationPlan `json:"refined_plan"`
	ChangesMade []string                `json:"changes_made"`
	Reasoning   string                  `json:"reasoning"`
	Confidence  float64                 `json:"confidence"`
	Error       *errors.Envelope        `json:"error,omitempty"`
}

// RefinePlan implements the "refine_plan" tool.
func (o *Orchestrator) RefinePlan(ctx context.Context, req RefinePlanRequest) RefinePlanResponse {
	refined, err := o.core.RefinePlan(ctx, req.OriginalPlan, req.FailureContext, req.Objective, req.ProjectContext, req.Constraints.toValidators())
	if err != nil {
		env := errors.ToEnvelope(err)
		return RefinePlanResponse{Error: &env}
	}
	return RefinePlanResponse{
		RefinedPlan: refined.Plan,
		ChangesMade: refined.ChangesMade,
		Reasoning:   refined.Reasoning,
		Confidence:  refined.Confidence,
	}
}

// --- find_patterns ----------------------------------------------------------

type FindPatternsRequest struct {
	Objective      string `json:"objective"`
	ProjectContext string `json:"context,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

type PatternMatch struct {
	Pattern        model.ExecutionPattern `json:"pattern"`
	SimilarityScore float64               `json:"similarity_score"`
	SuccessRate     float64               `json:"success_rate"`
}

type FindPatternsResponse struct {
	Patterns []PatternMatch `json:"patterns"`
}

// FindPatterns implements the "find_patterns" tool.
func (o *Orchestrator) FindPatterns(ctx context.Context, req FindPatternsRequest) FindPatternsResponse {
	matches := o.core.FindPatterns(req.Objective, req.ProjectContext, req.Limit)
	out := make([]PatternMatch, 0, len(matches))
	for _, m := range matches {
		rate := 0.0
		if m.Pattern.Success {
			rate = 1.0
		}
		out = append(out, PatternMatch{Pattern: m.Pattern, SimilarityScore: m.Similarity, SuccessRate: rate})
	}
	return FindPatternsResponse{Patterns: out}
}

// --- discover_agents / list_learned_agents -----------------------------------

type DiscoverAgentsRequest struct {
	Agents []model.AgentCapability `json:"agents"`
}

type DiscoverAgentsResponse struct {
	Agents []model.AgentCapability `json:"agents"`
}

// DiscoverAgents implements the "discover_agents" tool.
func (o *Orchestrator) DiscoverAgents(ctx context.Context, req DiscoverAgentsRequest) DiscoverAgentsResponse {
	return DiscoverAgentsResponse{Agents: o.core.DiscoverAgents(req.Agents)}
}

type ListLearnedAgentsRequest struct {
	Ranked bool `json:"ranked,omitempty"`
}

type ListLearnedAgentsResponse struct {
	Agents []model.AgentCapability `json:"agents"`
}

// ListLearnedAgents implements the "list_learned_agents" tool.
func (o *Orchestrator) ListLearnedAgents(ctx context.Context, req ListLearnedAgentsRequest) ListLearnedAgentsResponse {
	if req.Ranked {
		return ListLearnedAgentsResponse{Agents: o.core.RankedAgents()}
	}
	return ListLearnedAgentsResponse{Agents: o.core.ListAgents()}
}
