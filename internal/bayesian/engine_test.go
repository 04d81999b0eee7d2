// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package bayesian

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func TestCalculateConfidence_WarnsOnSparseHistory(t *testing.T) {
	e := New()
	result := e.CalculateConfidence(
		[]model.AgentCapability{{ID: "a", Successes: 9, Total: 10}},
		nil,
		nil,
	)
	assert.Contains(t, joined(result.Warnings), "fewer than 3")
}

func TestCalculateConfidence_LowExecutionsWarning(t *testing.T) {
	e := New()
	result := e.CalculateConfidence(
		[]model.AgentCapability{{ID: "new_agent", Successes: 1, Total: 1}},
		[]PatternContext{{TemporalRelevance: 0.9, SemanticSimilarity: 0.9}, {TemporalRelevance: 0.9, SemanticSimilarity: 0.9}, {TemporalRelevance: 0.9, SemanticSimilarity: 0.9}},
		nil,
	)
	assert.Contains(t, joined(result.Warnings), "fewer than 5")
}

func TestCalculateConfidence_NeverNaN(t *testing.T) {
	e := New()
	result := e.CalculateConfidence(nil, nil, nil)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestUpdateCalibration_ShrinksTowardBaseRateWhenPoor(t *testing.T) {
	e := New()
	for i := 0; i < 20; i++ {
		e.UpdateCalibration(0.9, false) // consistently wrong predictions
	}
	assert.Greater(t, e.CalibrationScore(), calibrationPoorThreshold)

	result := e.CalculateConfidence(
		[]model.AgentCapability{{ID: "a", Successes: 9, Total: 10}},
		[]PatternContext{{TemporalRelevance: 0.9, SemanticSimilarity: 0.9}, {TemporalRelevance: 0.9, SemanticSimilarity: 0.9}, {TemporalRelevance: 0.9, SemanticSimilarity: 0.9}},
		nil,
	)
	assert.Less(t, result.Confidence, 0.9)
}

func joined(ss []string) string {
	out := ""
	for _, s := range ss {
		out += s + "; "
	}
	return out
}
