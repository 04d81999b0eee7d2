// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func TestPredict_SafeWithNoLearnedEdges(t *testing.T) {
	d := New(nil)
	result := d.Predict([]model.AgentSpec{{AgentID: "a"}, {AgentID: "b"}})
	assert.True(t, result.SafeToExecute)
	assert.InDelta(t, 1.0, result.RiskScore+result.ConflictFreeProbability, 0.001)
}

func TestLearn_ThenPredict_UsesGraphProbability(t *testing.T) {
	d := New(nil)
	for i := 0; i < 10; i++ {
		d.Learn("a", "b", model.ConflictToolOverlap, true)
	}

	result := d.Predict([]model.AgentSpec{{AgentID: "a"}, {AgentID: "b"}})
	require.Len(t, result.PredictedConflicts, 1)
	assert.Greater(t, result.PredictedConflicts[0].Probability, 0.8)
	assert.False(t, result.SafeToExecute)
}

func TestAnalyze_RecommendsReorderingForOrderingConflict(t *testing.T) {
	d := New(nil)
	for i := 0; i < 10; i++ {
		d.Learn("b", "a", model.ConflictOrdering, true)
	}

	result := d.Analyze([]model.AgentSpec{{AgentID: "a"}, {AgentID: "b"}})
	require.NotEmpty(t, result.RecommendedReordering)
}

func TestGraph_PairwiseCompatibility_NoEdgesIsOne(t *testing.T) {
	g := NewGraph()
	assert.Equal(t, 1.0, g.PairwiseCompatibility([]model.AgentId{"a", "b"}))
}

func TestGraph_LaplaceSmoothing(t *testing.T) {
	g := NewGraph()
	g.Learn("a", "b", model.ConflictResource, true)
	p, ok := g.Probability("a", "b", model.ConflictResource)
	require.True(t, ok)
	// (1+1)/(1+2) = 0.666...
	assert.InDelta(t, 0.667, p, 0.01)
}

func TestGraph_Probability_SymmetricLookup(t *testing.T) {
	g := NewGraph()
	g.Learn("a", "b", model.ConflictResource, true)
	p1, _ := g.Probability("a", "b", model.ConflictResource)
	p2, _ := g.Probability("b", "a", model.ConflictResource)
	assert.Equal(t, p1, p2)
}
