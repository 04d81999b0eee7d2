// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package pareto computes the Pareto frontier across accuracy, cost, and
// latency for a set of candidate agent lists, and recommends one
// candidate via a learned weight vector updated by gradient steps from
// observed post-hoc utility.
package pareto

import (
	"sync"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// learningRate governs the FeedbackLoop's gradient step on weights.
const learningRate = 0.05

// Candidate is one candidate agent list scored across the three
// objectives. Cost and Latency are already negated (higher is better)
// per §4.7's "−estimated_tokens, −estimated_duration" convention.
type Candidate struct {
	Label          string
	Agents         []model.AgentId
	Accuracy       float64
	NegCost        float64
	NegLatency     float64
}

// Weights is the learned objective weight vector, initialized to
// (0.6, 0.2, 0.2) and clamped to sum to 1.
type Weights struct {
	Accuracy float64
	Cost     float64
	Latency  float64
}

func defaultWeights() Weights {
	return Weights{Accuracy: 0.6, Cost: 0.2, Latency: 0.2}
}

// Optimizer is the ParetoOptimizer. Weights are mutable state updated
// only by FeedbackLoop (a write path per §5).
type Optimizer struct {
	mu      sync.RWMutex
	weights Weights
}

func New() *Optimizer {
	return &Optimizer{weights: defaultWeights()}
}

// Frontier returns the non-dominated subset of candidates.
func Frontier(candidates []Candidate) []Candidate {
	var frontier []Candidate
	for i, c := range candidates {
		dominated := false
		for j, other := range candidates {
			if i == j {
				continue
			}
			if dominates(other, c) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, c)
		}
	}
	return frontier
}

func dominates(a, b Candidate) bool {
	geAll := a.Accuracy >= b.Accuracy && a.NegCost >= b.NegCost && a.NegLatency >= b.NegLatency
	gtOne := a.Accuracy > b.Accuracy || a.NegCost > b.NegCost || a.NegLatency > b.NegLatency
	return geAll && gtOne
}

// Recommend scores the frontier by the current learned weight vector and
// returns the top candidate. Returns the zero Candidate if candidates is
// empty.
func (o *Optimizer) Recommend(candidates []Candidate) Candidate {
	frontier := Frontier(candidates)
	if len(frontier) == 0 {
		return Candidate{}
	}

	o.mu.RLock()
	w := o.weights
	o.mu.RUnlock()

	best := frontier[0]
	bestScore := score(best, w)
	for _, c := range frontier[1:] {
		if s := score(c, w); s > bestScore {
			bestScore = s
			best = c
		}
	}
	return best
}

func score(c Candidate, w Weights) float64 {
	return w.Accuracy*c.Accuracy + w.Cost*c.NegCost + w.Latency*c.NegLatency
}

// Weights returns a snapshot of the current learned weight vector.
func (o *Optimizer) Weights() Weights {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.weights
}

// GradientStep nudges weights toward whichever objective best explains
// the observed utility delta, then renormalizes to sum to 1. Called by
// FeedbackLoop after each execution.
func (o *Optimizer) GradientStep(observed Candidate, predicted Candidate, actualUtility float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	predictedUtility := score(predicted, o.weights)
	errSignal := actualUtility - predictedUtility

	o.weights.Accuracy += learningRate * errSignal * observed.Accuracy
	o.weights.Cost += learningRate * errSignal * observed.NegCost
	o.weights.Latency += learningRate * errSignal * observed.NegLatency

	o.weights = clampWeights(o.weights)
}

func clampWeights(w Weights) Weights {
	if w.Accuracy < 0 {
		w.Accuracy = 0
	}
	if w.Cost < 0 {
		w.Cost = 0
	}
	if w.Latency < 0 {
		w.Latency = 0
	}
	total := w.Accuracy + w.Cost + w.Latency
	if total == 0 {
		return defaultWeights()
	}
	return Weights{Accuracy: w.Accuracy / total, Cost: w.Cost / total, Latency: w.Latency / total}
}
