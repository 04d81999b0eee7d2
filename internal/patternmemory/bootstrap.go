// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patternmemory

import (
	"fmt"
	"time"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// canonicalPatternSeed describes one of the six canonical plan shapes
// used to bootstrap synthetic ExecutionPatterns at construction time.
type canonicalPatternSeed struct {
	name      string
	objective string
	intent    model.Intent
	agents    []model.AgentId
}

var canonicalSeeds = []canonicalPatternSeed{
	{"scaffold", "scaffold a new service", model.IntentCreateNew, []model.AgentId{"the_builder", "the_cartographer"}},
	{"fix_tests", "fix the failing test suite", model.IntentFixIssue, []model.AgentId{"the_verifier", "the_builder"}},
	{"security_fix", "patch the reported vulnerability", model.IntentFixIssue, []model.AgentId{"the_warden", "the_builder"}},
	{"deployment", "deploy the service to production", model.IntentDeploy, []model.AgentId{"the_sentinel", "the_verifier"}},
	{"feature_implementation", "implement the requested feature", model.IntentCreateNew, []model.AgentId{"the_builder", "the_verifier", "the_archivist"}},
	{"bug_fix", "fix the reported bug", model.IntentFixIssue, []model.AgentId{"the_builder", "the_verifier"}},
}

var bootstrapDomains = []model.Domain{
	model.DomainCreative, model.DomainSecurity, model.DomainInfrastructure,
	model.DomainTesting, model.DomainUIUX, model.DomainData,
	model.DomainDocumentation, model.DomainArchitecture, model.DomainResearch, model.DomainCode,
}

// bootstrapContexts doubles the canonical-pattern x domain grid so the
// generated set lands close to the ~100-pattern bootstrap size called for
// in SPEC_FULL.md, varying only project_context (and so the feature
// vector's hash-bucket dimension) between the two passes.
var bootstrapContexts = []string{"bootstrap", "bootstrap-secondary"}

// CanonicalPattern is the Planner-facing view of one of the six canonical
// plan shapes (§4.9 step 5): a name, the intent it matches, and the default
// agent list to use when no closer historical match exists.
type CanonicalPattern struct {
	Name   string
	Intent model.Intent
	Agents []model.AgentId
}

// CanonicalPatterns exposes the six canonical seeds to the Planner without
// duplicating the list.
func CanonicalPatterns() []CanonicalPattern {
	out := make([]CanonicalPattern, len(canonicalSeeds))
	for i, s := range canonicalSeeds {
		out[i] = CanonicalPattern{Name: s.name, Intent: s.intent, Agents: s.agents}
	}
	return out
}

// GenerateSyntheticPatterns produces synthetic ExecutionPatterns (6
// canonical patterns x 10 domains x 2 project contexts = 120) flagged
// synthetic:true, suitable for Store.BootstrapSynthetic.
func GenerateSyntheticPatterns() []model.ExecutionPattern {
	patterns := make([]model.ExecutionPattern, 0, len(canonicalSeeds)*len(bootstrapDomains)*len(bootstrapContexts))
	now := time.Now().Add(-48 * time.Hour)

	for _, seed := range canonicalSeeds {
		for _, domain := range bootstrapDomains {
			for _, ctx := range bootstrapContexts {
				patterns = append(patterns, model.ExecutionPattern{
					Timestamp:          now,
					Objective:          fmt.Sprintf("%s (%s)", seed.objective, domain),
					ObjectiveType:      seed.intent,
					ProjectContext:     ctx,
					AgentsUsed:         seed.agents,
					ExecutionOrder:     seed.agents,
					Success:            true,
					TotalDurationMS:    60_000,
					TotalTokens:        8_000,
					VerificationPassed: true,
					Tags:               []string{seed.name, string(domain)},
					Synthetic:          true,
				})
			}
		}
	}
	return patterns
}
