// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package coordinator

import (
	"sort"
	"strings"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// phaseOrder is the canonical design/implementation/verification ordering
// used when the plan doesn't carry explicit phase names (or carries none
// at all, e.g. a parallel/sequential strategy).
var phaseOrder = []string{"design", "implementation", "verification"}

// groupByPhase buckets results by the phase their agent belongs to per
// the plan, falling back to "implementation" for any agent the plan
// doesn't mention (or when no plan was supplied).
func groupByPhase(results []model.AgentResult, plan *model.OrchestrationPlan) map[string][]model.AgentResult {
	phaseOf := map[model.AgentId]string{}
	if plan != nil {
		for _, ph := range plan.Phases {
			for _, id := range ph.Agents {
				phaseOf[id] = ph.Name
			}
		}
	}

	grouped := map[string][]model.AgentResult{}
	for _, r := range results {
		phase, ok := phaseOf[r.AgentID]
		if !ok {
			phase = "implementation"
		}
		grouped[phase] = append(grouped[phase], r)
	}
	return grouped
}

// summarizePhases extracts a best-effort summary from every result's
// output per phase and concatenates them.
func summarizePhases(grouped map[string][]model.AgentResult) map[string]string {
	out := make(map[string]string, len(grouped))
	for phase, results := range grouped {
		var parts []string
		for _, r := range results {
			if s := extractSummary(r.Output); s != "" {
				parts = append(parts, s)
			}
		}
		out[phase] = strings.Join(parts, "\n\n")
	}
	return out
}

// extractSummary pulls the "## Summary" section out of an agent's output
// if present, else falls back to the first paragraph.
func extractSummary(output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return ""
	}

	lower := strings.ToLower(output)
	if idx := strings.Index(lower, "## summary"); idx >= 0 {
		rest := output[idx+len("## summary"):]
		if next := nextHeadingIndex(rest); next >= 0 {
			rest = rest[:next]
		}
		return strings.TrimSpace(rest)
	}

	if idx := strings.Index(output, "\n\n"); idx >= 0 {
		return strings.TrimSpace(output[:idx])
	}
	return output
}

// nextHeadingIndex finds the next markdown heading ("\n#") in s, or -1.
func nextHeadingIndex(s string) int {
	lines := strings.Split(s, "\n")
	offset := 0
	for i, line := range lines {
		if i > 0 && strings.HasPrefix(strings.TrimSpace(line), "#") {
			return offset
		}
		offset += len(line) + 1
	}
	return -1
}

// concatenateSummaries renders the phase summaries in canonical order,
// with any phase names the plan used that aren't in phaseOrder appended
// afterward in alphabetical order for determinism.
func concatenateSummaries(phaseSummaries map[string]string) string {
	seen := make(map[string]bool, len(phaseSummaries))
	var parts []string
	for _, phase := range phaseOrder {
		if s, ok := phaseSummaries[phase]; ok && s != "" {
			parts = append(parts, "### "+phase+"\n"+s)
		}
		seen[phase] = true
	}

	var extra []string
	for phase := range phaseSummaries {
		if !seen[phase] {
			extra = append(extra, phase)
		}
	}
	sort.Strings(extra)
	for _, phase := range extra {
		if s := phaseSummaries[phase]; s != "" {
			parts = append(parts, "### "+phase+"\n"+s)
		}
	}

	return strings.Join(parts, "\n\n")
}
