// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package coordinator

import (
	"fmt"
	"strings"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// gapKeywords classifies a result's task description/output into the
// three fixed gap categories §4.10 names.
var gapKeywords = struct {
	implementation, verification, feature, docs, deploy, ci []string
}{
	implementation: []string{"implement", "build", "add", "create"},
	verification:   []string{"test", "verify", "verification", "qa"},
	feature:        []string{"feature", "implement"},
	docs:           []string{"document", "docs", "readme"},
	deploy:         []string{"deploy", "release", "rollout", "ship"},
	ci:             []string{"ci", "ci/cd", "pipeline", "github actions", "workflow"},
}

func containsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// detectGaps implements §4.10's fixed gap table: implementation without a
// verification agent, a feature without documentation, and a deploy
// without CI/CD — each agent's TaskDescription (from the plan, when
// available) and Output are scanned for the relevant keywords.
func detectGaps(results []model.AgentResult, plan *model.OrchestrationPlan) []model.Gap {
	descByAgent := map[model.AgentId]string{}
	if plan != nil {
		for _, a := range plan.Agents {
			descByAgent[a.AgentID] = a.TaskDescription
		}
	}

	var hasImplementation, hasVerification, hasFeature, hasDocs, hasDeploy, hasCI bool
	var implAgent, featureAgent, deployAgent model.AgentId

	for _, r := range results {
		text := descByAgent[r.AgentID] + "\n" + r.Output
		if containsAny(text, gapKeywords.implementation) {
			hasImplementation = true
			implAgent = r.AgentID
		}
		if containsAny(text, gapKeywords.verification) {
			hasVerification = true
		}
		if containsAny(text, gapKeywords.feature) {
			hasFeature = true
			featureAgent = r.AgentID
		}
		if containsAny(text, gapKeywords.docs) {
			hasDocs = true
		}
		if containsAny(text, gapKeywords.deploy) {
			hasDeploy = true
			deployAgent = r.AgentID
		}
		if containsAny(text, gapKeywords.ci) {
			hasCI = true
		}
	}

	var gaps []model.Gap
	if hasImplementation && !hasVerification {
		gaps = append(gaps, model.Gap{
			Type:            model.GapMissingVerification,
			AgentID:         implAgent,
			SuggestedAction: fmt.Sprintf("add a verification pass for %s's changes before merging", implAgent),
		})
	}
	if hasFeature && !hasDocs {
		gaps = append(gaps, model.Gap{
			Type:            model.GapMissingDocs,
			AgentID:         featureAgent,
			SuggestedAction: fmt.Sprintf("document the feature %s implemented", featureAgent),
		})
	}
	if hasDeploy && !hasCI {
		gaps = append(gaps, model.Gap{
			Type:            model.GapMissingCI,
			AgentID:         deployAgent,
			SuggestedAction: fmt.Sprintf("add a CI/CD pipeline before %s's deploy goes out", deployAgent),
		})
	}
	return gaps
}

// verificationNeeded is true unless a verifier agent ran and succeeded.
func verificationNeeded(results []model.AgentResult, plan *model.OrchestrationPlan) bool {
	descByAgent := map[model.AgentId]string{}
	if plan != nil {
		for _, a := range plan.Agents {
			descByAgent[a.AgentID] = a.TaskDescription
		}
	}
	for _, r := range results {
		if containsAny(descByAgent[r.AgentID], gapKeywords.verification) && r.Success {
			return false
		}
	}
	return true
}
