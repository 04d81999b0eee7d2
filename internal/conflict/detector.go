// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package conflict

import (
	"log/slog"

	"github.com/gammazero/toposort"

	"github.com/open-swarm/orchestrator-core/internal/patternmatch"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// safeExecutionThreshold: a plan is safe_to_execute iff risk_score <= this.
const safeExecutionThreshold = 0.35

// staticRule is a fallback used when no learned graph edge exists yet.
type staticRule struct {
	typ         model.ConflictType
	probability float64
}

// PredictResult is the output of Predict/Analyze.
type PredictResult struct {
	RiskScore              float64
	ConflictFreeProbability float64
	PredictedConflicts     []model.PredictedConflict
	SafeToExecute          bool

	RecommendedReordering []model.AgentId
	AgentsToRemove        []model.AgentId
}

// Detector is the ConflictDetector.
type Detector struct {
	graph *Graph
}

// New constructs a ConflictDetector backed by the given ConflictGraph.
func New(graph *Graph) *Detector {
	if graph == nil {
		graph = NewGraph()
	}
	return &Detector{graph: graph}
}

// Predict scores a candidate agent list for conflict risk without
// suggesting remediation.
func (d *Detector) Predict(agents []model.AgentSpec) PredictResult {
	conflicts := d.predictedConflicts(agents)
	return scoreConflicts(conflicts)
}

// Analyze scores a candidate agent list and, when risk is unsafe,
// recommends a reordering (topological sort over ordering-type edges) or,
// when those edges form a cycle, removal of the lowest-priority agent in
// the whole list (see recommendReordering).
func (d *Detector) Analyze(agents []model.AgentSpec) PredictResult {
	result := d.Predict(agents)
	if result.SafeToExecute {
		return result
	}

	reordering, removed, err := d.recommendReordering(agents, result.PredictedConflicts)
	if err != nil {
		slog.Warn("conflict reordering failed, falling back to removal", "error", err)
		result.AgentsToRemove = append(result.AgentsToRemove, removed...)
		return result
	}
	result.RecommendedReordering = reordering
	result.AgentsToRemove = removed
	return result
}

// Graph exposes the underlying ConflictGraph, e.g. for BayesianEngine's
// PairwiseCompatibility seam.
func (d *Detector) Graph() *Graph {
	return d.graph
}

// Learn updates the ConflictGraph edge for one observed outcome,
// typically called by FeedbackLoop for each ordered pair actually
// executed.
func (d *Detector) Learn(a, b model.AgentId, typ model.ConflictType, conflicted bool) {
	d.graph.Learn(a, b, typ, conflicted)
}

func (d *Detector) predictedConflicts(agents []model.AgentSpec) []model.PredictedConflict {
	var conflicts []model.PredictedConflict
	for i := 0; i < len(agents); i++ {
		for j := i + 1; j < len(agents); j++ {
			a, b := agents[i], agents[j]
			for _, typ := range []model.ConflictType{
				model.ConflictToolOverlap, model.ConflictResource,
				model.ConflictSemantic, model.ConflictOrdering,
			} {
				if p, ok := d.graph.Probability(a.AgentID, b.AgentID, typ); ok {
					if p > 0 {
						conflicts = append(conflicts, model.PredictedConflict{
							AgentA: a.AgentID, AgentB: b.AgentID, Type: typ, Probability: p,
						})
					}
					continue
				}
				if rule, ok := staticRuleFor(a, b, typ); ok {
					conflicts = append(conflicts, model.PredictedConflict{
						AgentA: a.AgentID, AgentB: b.AgentID, Type: rule.typ, Probability: rule.probability,
					})
				}
			}
		}
	}
	return conflicts
}

// staticRuleFor is the fallback rule table used when no learned edge
// exists: tool_overlap is inferred when patternmatch.Overlap reports the
// two whole task-description strings as overlapping (the teacher's
// file-glob overlap check applied to free-text task descriptions).
func staticRuleFor(a, b model.AgentSpec, typ model.ConflictType) (staticRule, bool) {
	switch typ {
	case model.ConflictToolOverlap:
		if a.TaskDescription != "" && b.TaskDescription != "" && patternmatch.Overlap(a.TaskDescription, b.TaskDescription) {
			return staticRule{typ: typ, probability: 0.4}, true
		}
	case model.ConflictOrdering:
		for _, dep := range b.Dependencies {
			if dep == a.AgentID {
				return staticRule{typ: typ, probability: 0}, false // declared dependency, not a conflict
			}
		}
	}
	return staticRule{}, false
}

func scoreConflicts(conflicts []model.PredictedConflict) PredictResult {
	risk := 0.0
	for _, c := range conflicts {
		if c.Probability > risk {
			risk = c.Probability
		}
	}
	return PredictResult{
		RiskScore:               risk,
		ConflictFreeProbability: 1 - risk,
		PredictedConflicts:      conflicts,
		SafeToExecute:           risk <= safeExecutionThreshold,
	}
}

// recommendReordering produces a topological sort over ordering-type
// conflict edges only, following the teacher's pkg/dag.Scheduler idiom of
// wrapping github.com/gammazero/toposort and re-threading disconnected
// roots back into the result. On a cycle, the lowest-priority agent of
// the whole agent list is proposed for removal instead (the first such
// agent on a priority tie); the cycle's own members are not singled out,
// so the proposed agent need not be part of the cycle.
func (d *Detector) recommendReordering(agents []model.AgentSpec, conflicts []model.PredictedConflict) ([]model.AgentId, []model.AgentId, error) {
	var edges []toposort.Edge
	for _, c := range conflicts {
		if c.Type != model.ConflictOrdering {
			continue
		}
		edges = append(edges, toposort.Edge{string(c.AgentA), string(c.AgentB)})
	}

	if len(edges) == 0 {
		order := make([]model.AgentId, 0, len(agents))
		for _, a := range agents {
			order = append(order, a.AgentID)
		}
		return order, nil, nil
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, []model.AgentId{lowestPriority(agents)}, err
	}

	inSorted := make(map[model.AgentId]bool, len(sorted))
	order := make([]model.AgentId, 0, len(agents))
	for _, node := range sorted {
		id := model.AgentId(node.(string))
		inSorted[id] = true
		order = append(order, id)
	}
	for _, a := range agents {
		if !inSorted[a.AgentID] {
			order = append([]model.AgentId{a.AgentID}, order...)
		}
	}
	return order, nil, nil
}

func lowestPriority(agents []model.AgentSpec) model.AgentId {
	rank := map[model.Priority]int{
		model.PriorityCritical: 0,
		model.PriorityHigh:     1,
		model.PriorityMedium:   2,
		model.PriorityLow:      3,
	}
	worst := model.AgentId("")
	worstRank := -1
	for _, a := range agents {
		if r := rank[a.Priority]; r > worstRank {
			worstRank = r
			worst = a.AgentID
		}
	}
	return worst
}
