// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package validators

import (
	"fmt"

	"github.com/open-swarm/orchestrator-core/internal/errors"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// lowConfidenceThreshold is the scenario S6 trigger point: Bayesian
// confidence below 0.3 forces the low-confidence fallback/rejection path.
const lowConfidenceThreshold = 0.3

// ConfidenceValidator is the final gate: when a plan's Bayesian confidence
// is too low to trust, it tries to widen the plan with a registry fallback
// agent (a generalist, highest success-rate agent not already included)
// before giving up and raising LowConfidence.
type ConfidenceValidator struct{}

func NewConfidenceValidator() *ConfidenceValidator { return &ConfidenceValidator{} }

func (c *ConfidenceValidator) Name() string { return "confidence_validator" }

// Check implements Gate. It only runs once a plan and its Bayesian
// confidence have been computed.
func (c *ConfidenceValidator) Check(in *Input) error {
	if in.Plan == nil {
		return nil
	}
	if in.Plan.BayesianConfidence >= lowConfidenceThreshold {
		return nil
	}

	if in.Registry != nil {
		if fallback := pickFallback(in.Registry, in.Plan.Agents); fallback != "" {
			in.Plan.Agents = append(in.Plan.Agents, model.AgentSpec{
				AgentID:         fallback,
				TaskDescription: "review and validate overall plan output given low predicted confidence",
				Priority:        model.PriorityMedium,
			})
			return nil
		}
	}

	return errors.LowConfidence(
		fmt.Sprintf("predicted confidence %.2f below threshold %.2f", in.Plan.BayesianConfidence, lowConfidenceThreshold),
		"no fallback agent available in the registry to widen the plan",
	)
}

// pickFallback returns the highest success-rate registered agent not
// already present in the plan, or "" if every known agent is already used.
func pickFallback(registry AgentLister, existing []model.AgentSpec) model.AgentId {
	used := make(map[model.AgentId]bool, len(existing))
	for _, a := range existing {
		used[a.AgentID] = true
	}
	for _, ac := range registry.RankedBySuccessRate() {
		if !used[ac.ID] {
			return ac.ID
		}
	}
	return ""
}
