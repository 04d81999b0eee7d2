// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package coordinator

import (
	"regexp"
	"strings"

	"github.com/open-swarm/orchestrator-core/internal/patternmatch"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// postHocToolOverlapProbability and postHocSemanticProbability are fixed
// confidences for a pass that, unlike ConflictDetector's learned graph,
// only ever runs once over a single plan's outputs — there is no
// observation count to weigh them by.
const (
	postHocToolOverlapProbability = 0.5
	postHocSemanticProbability    = 0.6
)

// backtickToken extracts inline-code identifiers (library/file names
// agents tend to call out in backticks) from free-text output.
var backtickToken = regexp.MustCompile("`([\\w./-]+)`")

// detectPostHocConflicts implements §4.10's "same typed rules as §4.6
// applied post-hoc": tool_overlap when two agents' outputs reference the
// same file-like token, and semantic when a design-phase output names a
// library/module an implementation-phase output never mentions.
func detectPostHocConflicts(results []model.AgentResult, plan *model.OrchestrationPlan) []model.PredictedConflict {
	var conflicts []model.PredictedConflict

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			a, b := results[i], results[j]
			if toolOverlap(a.Output, b.Output) {
				conflicts = append(conflicts, model.PredictedConflict{
					AgentA: a.AgentID, AgentB: b.AgentID,
					Type: model.ConflictToolOverlap, Probability: postHocToolOverlapProbability,
				})
			}
		}
	}

	if plan == nil {
		return conflicts
	}
	phaseOf := map[model.AgentId]string{}
	for _, ph := range plan.Phases {
		for _, id := range ph.Agents {
			phaseOf[id] = ph.Name
		}
	}

	for _, design := range results {
		if phaseOf[design.AgentID] != "design" {
			continue
		}
		named := backtickToken.FindAllStringSubmatch(design.Output, -1)
		if len(named) == 0 {
			continue
		}
		for _, impl := range results {
			if phaseOf[impl.AgentID] != "implementation" {
				continue
			}
			for _, m := range named {
				token := m[1]
				if !strings.Contains(impl.Output, token) {
					conflicts = append(conflicts, model.PredictedConflict{
						AgentA: design.AgentID, AgentB: impl.AgentID,
						Type: model.ConflictSemantic, Probability: postHocSemanticProbability,
					})
					break
				}
			}
		}
	}

	return conflicts
}

// toolOverlap checks whether two agents' outputs name an overlapping
// file path, reusing patternmatch.Overlap's glob-symmetric comparison
// over every path-shaped token found in each output.
func toolOverlap(a, b string) bool {
	for _, pa := range filePathTokens(a) {
		for _, pb := range filePathTokens(b) {
			if patternmatch.Overlap(pa, pb) {
				return true
			}
		}
	}
	return false
}

var filePathToken = regexp.MustCompile(`\b[\w-]+/[\w./-]+\.\w+\b`)

func filePathTokens(s string) []string {
	return filePathToken.FindAllString(s, -1)
}
