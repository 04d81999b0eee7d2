// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package registry

import "github.com/open-swarm/orchestrator-core/pkg/model"

// BuiltinAgents seeds a fresh registry when no disk cache exists. These
// are the core's known-good defaults, each tagged with the capability
// RequiredCapabilities would ask for, so a cold-started process can
// still produce a sensible plan (§9 "dynamic discovery of agents").
func BuiltinAgents() []model.AgentCapability {
	return []model.AgentCapability{
		agent("the_scribe", "creative writer", "creative_writing"),
		agent("the_sentinel", "infrastructure operator", "devops"),
		agent("cinna", "interface designer", "design"),
		agent("the_archivist", "technical writer", "technical_writing"),
		agent("the_warden", "security reviewer", "security_review"),
		agent("the_verifier", "test and verification runner", "verification"),
		agent("the_cartographer", "systems architect", "architecture"),
		agent("the_miner", "data engineer", "data_engineering"),
		agent("the_scholar", "researcher", "research"),
		agent("the_builder", "implementation engineer", "implementation"),
	}
}

func agent(id model.AgentId, specialization string, capabilities ...string) model.AgentCapability {
	caps := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		caps[c] = struct{}{}
	}
	return model.AgentCapability{
		ID:             id,
		Specialization: specialization,
		Capabilities:   caps,
		Tools:          map[string]struct{}{},
		UseCases:       map[string]struct{}{},
		MandatoryFor:   map[string]struct{}{},
		SuccessRate:    0.5,
	}
}
