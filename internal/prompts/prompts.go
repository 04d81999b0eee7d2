// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package prompts builds the free-text Prompt field of an AgentSpec from
// in-memory planning context only. Grounded on the teacher's
// internal/prompts.ImplementationBuilder fluent-builder idiom, dispatched by
// intent the way the teacher dispatches review prompts by ReviewType — but
// unlike the teacher's helpers.go, nothing here touches the filesystem: the
// Planner is pure logic over values already held in memory.
package prompts

import (
	"fmt"
	"strings"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// Context is everything the builder needs to produce one agent's prompt.
type Context struct {
	Objective       string
	Domain          model.Domain
	Intent          model.Intent
	TaskDescription string
	Dependencies    []model.AgentId
	SimilarPatterns []string // short summaries of matched past executions
	Warnings        []string
}

// Builder is the fluent prompt builder, mirroring ImplementationBuilder's
// With*/Build shape.
type Builder struct {
	ctx Context
}

// New starts a builder for one agent invocation.
func New(taskDescription string) *Builder {
	return &Builder{ctx: Context{TaskDescription: taskDescription}}
}

func (b *Builder) WithObjective(objective string) *Builder {
	b.ctx.Objective = objective
	return b
}

func (b *Builder) WithIntentDomain(intent model.Intent, domain model.Domain) *Builder {
	b.ctx.Intent = intent
	b.ctx.Domain = domain
	return b
}

func (b *Builder) WithDependencies(deps []model.AgentId) *Builder {
	b.ctx.Dependencies = deps
	return b
}

func (b *Builder) WithSimilarPatterns(summaries []string) *Builder {
	b.ctx.SimilarPatterns = summaries
	return b
}

func (b *Builder) WithWarnings(warnings []string) *Builder {
	b.ctx.Warnings = warnings
	return b
}

// Build renders the complete prompt string.
func (b *Builder) Build() string {
	var sb strings.Builder

	sb.WriteString("# Task\n\n")
	sb.WriteString(b.ctx.TaskDescription)
	sb.WriteString("\n\n")

	if b.ctx.Objective != "" {
		sb.WriteString("## Originating Objective\n\n")
		sb.WriteString(b.ctx.Objective)
		sb.WriteString("\n\n")
	}

	if b.ctx.Intent != "" || b.ctx.Domain != "" {
		sb.WriteString("## Classification\n\n")
		sb.WriteString(fmt.Sprintf("- **Intent:** %s\n- **Domain:** %s\n\n", b.ctx.Intent, b.ctx.Domain))
	}

	if len(b.ctx.Dependencies) > 0 {
		sb.WriteString("## Depends On\n\n")
		for _, dep := range b.ctx.Dependencies {
			sb.WriteString(fmt.Sprintf("- %s\n", dep))
		}
		sb.WriteString("\n")
	}

	if len(b.ctx.SimilarPatterns) > 0 {
		sb.WriteString("## Similar Past Executions\n\n")
		for _, p := range b.ctx.SimilarPatterns {
			sb.WriteString(fmt.Sprintf("- %s\n", p))
		}
		sb.WriteString("\n")
	}

	if len(b.ctx.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range b.ctx.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(closingInstructions(b.ctx.Intent))

	return sb.String()
}

// closingInstructions dispatches by intent, mirroring the teacher's
// buildClosingInstructions switch on RequestType.
func closingInstructions(intent model.Intent) string {
	switch intent {
	case model.IntentFixIssue:
		return "## Instructions\n\n" +
			"1. Identify the root cause before changing code.\n" +
			"2. Make the minimal change that fixes it.\n" +
			"3. Verify the fix does not regress adjacent behavior.\n"
	case model.IntentValidate:
		return "## Instructions\n\n" +
			"1. Check the stated acceptance criteria one by one.\n" +
			"2. Report any criterion that is not met, with evidence.\n"
	case model.IntentDeploy:
		return "## Instructions\n\n" +
			"1. Confirm the target environment and rollback path before acting.\n" +
			"2. Apply the change.\n" +
			"3. Verify the deployed state matches expectations.\n"
	case model.IntentDocument:
		return "## Instructions\n\n" +
			"1. Document the current behavior accurately; do not invent capabilities.\n" +
			"2. Keep examples runnable.\n"
	case model.IntentOptimize:
		return "## Instructions\n\n" +
			"1. Establish a baseline measurement before changing anything.\n" +
			"2. Make the change.\n" +
			"3. Re-measure and report the delta.\n"
	case model.IntentDesign:
		return "## Instructions\n\n" +
			"1. Propose the design with tradeoffs stated explicitly.\n" +
			"2. Do not implement until the design is accepted.\n"
	default:
		return "## Instructions\n\n" +
			"1. Complete the task as described.\n" +
			"2. Note any assumptions made.\n"
	}
}

// BuildForSpec is the Planner's entry point: given a task description and
// the objective-level classification, render a complete prompt.
func BuildForSpec(taskDescription, objective string, intent model.Intent, domain model.Domain, deps []model.AgentId, similar []string, warnings []string) string {
	return New(taskDescription).
		WithObjective(objective).
		WithIntentDomain(intent, domain).
		WithDependencies(deps).
		WithSimilarPatterns(similar).
		WithWarnings(warnings).
		Build()
}
