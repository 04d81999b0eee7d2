// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package conflict predicts pairwise agent conflicts and recommends
// reorderings or removals, grounded on the teacher's file-reservation
// Analyzer (overlap detection + typed resolution) generalized from file
// patterns to agent pairs, and on pkg/dag.Scheduler's toposort usage for
// the ordering-conflict reordering pass.
package conflict

import (
	"sync"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// edgeKey identifies one unordered agent pair plus conflict type.
type edgeKey struct {
	a, b model.AgentId
	typ  model.ConflictType
}

func newEdgeKey(a, b model.AgentId, typ model.ConflictType) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a: a, b: b, typ: typ}
}

// edgeStats is the Laplace-smoothed observation state for one edge:
// probability = (conflicts+1) / (observations+2).
type edgeStats struct {
	conflicts    int
	observations int
}

func (e edgeStats) probability() float64 {
	return (float64(e.conflicts) + 1) / (float64(e.observations) + 2)
}

// Graph is the ConflictGraph: a learned map of pairwise conflict
// probabilities, updated only by ConflictDetector.Learn (a write path per
// §5).
type Graph struct {
	mu    sync.RWMutex
	edges map[edgeKey]edgeStats
}

// NewGraph constructs an empty ConflictGraph.
func NewGraph() *Graph {
	return &Graph{edges: make(map[edgeKey]edgeStats)}
}

// Learn records one observed (a,b,type,conflicted) outcome, updating the
// edge's Laplace-smoothed probability.
func (g *Graph) Learn(a, b model.AgentId, typ model.ConflictType, conflicted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := newEdgeKey(a, b, typ)
	stats := g.edges[key]
	stats.observations++
	if conflicted {
		stats.conflicts++
	}
	g.edges[key] = stats
}

// Probability returns the learned conflict probability for a pair/type,
// or (0, false) if no edge has been observed yet.
func (g *Graph) Probability(a, b model.AgentId, typ model.ConflictType) (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	stats, ok := g.edges[newEdgeKey(a, b, typ)]
	if !ok {
		return 0, false
	}
	return stats.probability(), true
}

// PairwiseCompatibility returns a single [0,1] factor summarizing the
// joint compatibility of every pair in agents, used by
// bayesian.Engine.CalculateConfidence as the pairwise-compatibility term.
// Implements the bayesian.compatibility seam.
func (g *Graph) PairwiseCompatibility(agents []model.AgentId) float64 {
	if len(agents) < 2 {
		return 1.0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	factor := 1.0
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			worst := 0.0
			for _, typ := range []model.ConflictType{
				model.ConflictToolOverlap, model.ConflictResource,
				model.ConflictSemantic, model.ConflictOrdering,
			} {
				if stats, ok := g.edges[newEdgeKey(agents[i], agents[j], typ)]; ok {
					if p := stats.probability(); p > worst {
						worst = p
					}
				}
			}
			factor *= 1 - worst
		}
	}
	return factor
}
