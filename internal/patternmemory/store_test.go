// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patternmemory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/internal/semantic"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func TestRecord_TreeSizeMatchesIDMapSize(t *testing.T) {
	s := New(semantic.New())

	for i := 0; i < 20; i++ {
		s.Record(model.ExecutionPattern{
			Objective:      "implement a feature",
			ProjectContext: "proj-a",
			AgentsUsed:     []model.AgentId{"the_builder"},
			Success:        true,
		})
	}

	assert.Equal(t, s.Size(), s.TreeSize())
}

func TestEvictIfDue_TreeStaysInSyncBelowTenPercentEviction(t *testing.T) {
	s := New(semantic.New())

	stale := time.Now().Add(-2 * rollingWindow)
	for i := 0; i < 19; i++ {
		s.Record(model.ExecutionPattern{
			Objective:      "implement a feature",
			ProjectContext: "proj-a",
			Success:        true,
			Timestamp:      time.Now(),
		})
	}
	s.Record(model.ExecutionPattern{
		Objective:      "implement a feature",
		ProjectContext: "proj-a",
		Success:        true,
		Timestamp:      stale,
	})

	// One stale entry out of 20 is a 5% eviction, below the old 10%
	// rebuild-gate threshold that used to leave the tree stale.
	s.evictIfDue()

	assert.Equal(t, s.Size(), s.TreeSize())
}

func TestFindSimilar_FiltersBelowThreshold(t *testing.T) {
	s := New(semantic.New())
	s.Record(model.ExecutionPattern{
		Objective:      "Add TypeScript support to a JavaScript project",
		ProjectContext: "proj-a",
		AgentsUsed:     []model.AgentId{"the_builder"},
		Success:        true,
		Timestamp:      time.Now(),
	})

	matches := s.FindSimilar("Add TypeScript support to my JS codebase", "proj-a", 5)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Similarity, similarityThreshold)
	}
}

func TestGetAggregateStats_ExcludesSynthetic(t *testing.T) {
	s := New(semantic.New())
	s.BootstrapSynthetic(GenerateSyntheticPatterns())
	s.Record(model.ExecutionPattern{
		Objective:      "fix the login bug",
		ProjectContext: "proj-a",
		Success:        true,
		Timestamp:      time.Now(),
	})

	stats := s.GetAggregateStats()
	assert.Equal(t, 1, stats.TotalExecutions, "synthetic patterns must not count toward real aggregates")
}

func TestDetectFailureChain_TagsSharedErrorCategory(t *testing.T) {
	s := New(semantic.New())
	now := time.Now()

	for i := 0; i < 3; i++ {
		s.Record(model.ExecutionPattern{
			Objective:      "deploy the service",
			ProjectContext: "proj-a",
			Success:        false,
			FailureReason:  "network_error",
			Timestamp:      now.Add(time.Duration(i) * time.Minute),
		})
	}

	failures := s.GetRecentFailures(5)
	require.Len(t, failures, 3)

	chainIDs := map[string]bool{}
	for _, p := range s.byID {
		chainIDs[p.FailureChainID] = true
	}
	assert.Len(t, chainIDs, 1, "all three failures must share one chain id")
	assert.False(t, chainIDs[""], "the chain id must be set")
}

func TestGenerateSyntheticPatterns_AllFlaggedSynthetic(t *testing.T) {
	patterns := GenerateSyntheticPatterns()
	require.NotEmpty(t, patterns)
	for _, p := range patterns {
		assert.True(t, p.Synthetic)
	}
}

func TestFeaturize_CosineSimilarityIsBounded(t *testing.T) {
	a := semantic.New()
	p1 := model.ExecutionPattern{Objective: "deploy to production", Success: true}
	p2 := model.ExecutionPattern{Objective: "deploy to production", Success: true}

	v1 := Featurize(p1, a.Analyze(p1.Objective))
	v2 := Featurize(p2, a.Analyze(p2.Objective))

	sim := v1.CosineSimilarity(v2)
	assert.GreaterOrEqual(t, sim, 0.0)
	assert.LessOrEqual(t, sim, 1.01)
}
