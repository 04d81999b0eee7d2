// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package validators implements the four pure-function plan gatekeepers
// (Safety, VagueRequest, Constraint, Confidence) as a fixed-order chain,
// grounded on the teacher's internal/gates.Gate/GateChain idiom: a small
// interface plus a sequential runner that stops at the first failure.
package validators

import "github.com/open-swarm/orchestrator-core/pkg/model"

// AgentLister is the slice of AgentRegistry the Confidence validator needs
// to propose a fallback agent. Satisfied by *internal/registry.Registry.
type AgentLister interface {
	SelectByCapabilities(required []string) []model.AgentId
	RankedBySuccessRate() []model.AgentCapability
}

// Constraints bounds a plan (§4.8 ConstraintEnforcer).
type Constraints struct {
	MaxAgents      int
	MaxTokens      int
	PreferParallel bool
}

// Input bundles everything a gate in the chain might need. Not every gate
// uses every field; Plan is nil until after custom plan generation, so the
// Safety and VagueRequest gates run on Objective/Analysis alone.
type Input struct {
	Objective   string
	Analysis    model.ObjectiveAnalysis
	Plan        *model.OrchestrationPlan
	Constraints Constraints
	Registry    AgentLister
}

// Gate is the fixed-order validator interface.
type Gate interface {
	Name() string
	Check(in *Input) error
}

// Chain runs gates in sequence, stopping at the first failure — mirrors
// the teacher's GateChain.Execute.
type Chain struct {
	gates []Gate
}

// NewChain builds a validator chain from the given gates, run in the order
// passed. The Planner wires Safety, VagueRequest ahead of plan generation
// and Constraint, Confidence after.
func NewChain(gates ...Gate) *Chain {
	return &Chain{gates: gates}
}

// Execute runs every gate in order, returning the first error encountered
// (always an *errors.PlanError from the concrete gates), or nil.
func (c *Chain) Execute(in *Input) error {
	for _, g := range c.gates {
		if err := g.Check(in); err != nil {
			return err
		}
	}
	return nil
}

// Names lists the chain's gates in execution order, for rationale strings.
func (c *Chain) Names() []string {
	names := make([]string, len(c.gates))
	for i, g := range c.gates {
		names[i] = g.Name()
	}
	return names
}
