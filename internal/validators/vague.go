// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package validators

import (
	"regexp"
	"strings"

	"github.com/open-swarm/orchestrator-core/internal/errors"
)

// vagueScoreThreshold: at or above this, the Planner short-circuits to a
// single-agent requirements-gathering plan instead of custom generation.
const vagueScoreThreshold = 0.7

// shortObjectiveWords is the word count below which brevity alone starts
// contributing to the vagueness score.
const shortObjectiveWords = 4

var actionVerbs = regexp.MustCompile(`(?i)\b(add|build|create|fix|implement|deploy|refactor|remove|update|write|investigate|design|optimize|document|test|validate|migrate|configure|review)\b`)

var concreteNounHints = regexp.MustCompile(`(?i)\b(bug|feature|test|endpoint|function|service|pipeline|database|schema|ui|api|config|doc(?:s|umentation)?|file|module|deploy(?:ment)?|error|issue)\b`)

var vagueFillers = regexp.MustCompile(`(?i)\b(something|stuff|things?|whatever|somehow|anything|some\s+kind\s+of|make\s+it\s+better|improve\s+it|fix\s+stuff)\b`)

// VagueResult is the VagueRequestDetector's finding.
type VagueResult struct {
	IsVague         bool
	Score           float64
	MissingElements []string
}

// VagueRequestDetector flags under-specified objectives so the Planner can
// short-circuit to a single clarifying-question agent instead of guessing.
type VagueRequestDetector struct{}

func NewVagueRequestDetector() *VagueRequestDetector { return &VagueRequestDetector{} }

func (v *VagueRequestDetector) Name() string { return "vague_request_detector" }

// Analyze scores an objective's specificity on four signals: length, the
// presence of an action verb, the presence of a concrete noun, and filler
// language. Each missing signal contributes 0.25 to the score.
func (v *VagueRequestDetector) Analyze(objective string) VagueResult {
	trimmed := strings.TrimSpace(objective)
	if trimmed == "" {
		return VagueResult{IsVague: true, Score: 1.0, MissingElements: []string{"objective is empty"}}
	}

	words := strings.Fields(trimmed)
	var score float64
	var missing []string

	if len(words) < shortObjectiveWords {
		score += 0.25
		missing = append(missing, "objective is very short")
	}
	if !actionVerbs.MatchString(trimmed) {
		score += 0.25
		missing = append(missing, "no recognizable action verb")
	}
	if !concreteNounHints.MatchString(trimmed) {
		score += 0.25
		missing = append(missing, "no concrete subject (feature, bug, service, etc.)")
	}
	if vagueFillers.MatchString(trimmed) {
		score += 0.25
		missing = append(missing, "uses vague filler language")
	}

	return VagueResult{
		IsVague:         score >= vagueScoreThreshold,
		Score:           score,
		MissingElements: missing,
	}
}

// Check implements Gate. Vagueness alone never blocks the chain — the
// Planner reads Analyze directly at its pattern-reuse step to decide
// whether to short-circuit — but a literally empty objective is invalid
// input and does block.
func (v *VagueRequestDetector) Check(in *Input) error {
	if strings.TrimSpace(in.Objective) == "" {
		return errors.InvalidInput("objective is empty", "")
	}
	return nil
}
