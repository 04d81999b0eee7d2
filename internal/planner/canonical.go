// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package planner

import (
	"regexp"

	"github.com/open-swarm/orchestrator-core/internal/patternmemory"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// canonicalKeywords disambiguates between canonical patterns that share an
// Intent (fix_tests, security_fix, and bug_fix are all fix_issue), checked
// in canonicalOrder order — the same priority-cascade idiom internal/
// semantic uses for intent/domain.
var canonicalKeywords = map[string]*regexp.Regexp{
	"scaffold":               regexp.MustCompile(`(?i)\b(scaffold|bootstrap|starter|new\s+(service|project|repo))\b`),
	"security_fix":           regexp.MustCompile(`(?i)\b(vulnerabilit\w*|security\s+patch|cve|exploit)\b`),
	"fix_tests":              regexp.MustCompile(`(?i)\b(failing\s+test|test\s+suite|broken\s+test)\b`),
	"deployment":             regexp.MustCompile(`(?i)\b(deploy|release|rollout|ship)\b`),
	"feature_implementation": regexp.MustCompile(`(?i)\b(feature|implement)\b`),
	"bug_fix":                regexp.MustCompile(`(?i)\b(bug|crash|broken|error)\b`),
}

// canonicalOrder is the cascade order: more specific patterns are checked
// before their catch-all siblings (security_fix/fix_tests before the
// generic bug_fix; scaffold before feature_implementation).
var canonicalOrder = []string{"scaffold", "security_fix", "fix_tests", "deployment", "feature_implementation", "bug_fix"}

// matchCanonicalPattern checks the objective against the six canonical
// patterns (§4.9 step 5), first narrowing by Intent and then by keyword.
func matchCanonicalPattern(objective string, analysis model.ObjectiveAnalysis) (patternmemory.CanonicalPattern, bool) {
	byName := make(map[string]patternmemory.CanonicalPattern, len(canonicalOrder))
	for _, p := range patternmemory.CanonicalPatterns() {
		byName[p.Name] = p
	}

	for _, name := range canonicalOrder {
		pattern, ok := byName[name]
		if !ok || pattern.Intent != analysis.Intent {
			continue
		}
		if re := canonicalKeywords[name]; re != nil && re.MatchString(objective) {
			return pattern, true
		}
	}
	return patternmemory.CanonicalPattern{}, false
}
