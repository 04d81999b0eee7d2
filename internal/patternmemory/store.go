// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patternmemory

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-swarm/orchestrator-core/internal/diagnosis"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

const (
	// similarityThreshold filters findSimilar results below this score.
	similarityThreshold = 0.3

	// rollingWindow is the eviction eligibility age.
	rollingWindow = 7 * 24 * time.Hour

	// softCap triggers lazy eviction once memory size crosses it.
	softCap = 10_000

	// failureChainLookback bounds how many recent same-project patterns
	// are inspected for a failure chain.
	failureChainLookback = 5

	// failureChainMinShared is the minimum number of shared
	// failed-agent/error-category patterns required to tag a chain.
	failureChainMinShared = 3

	// failureChainWindow bounds the time window for chain membership.
	failureChainWindow = 60 * time.Minute
)

// Match is one kNN result: the matched pattern and its similarity score.
type Match struct {
	Pattern    model.ExecutionPattern
	Similarity float64
}

// analyzer is the minimal SemanticAnalyzer seam PatternMemory needs to
// featurize an incoming objective for similarity search.
type analyzer interface {
	Analyze(objective string) model.ObjectiveAnalysis
}

// Store is the PatternMemory. Safe for concurrent use: writes happen only
// from FeedbackLoop/bootstrap per §5, reads take a consistent snapshot.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]model.ExecutionPattern
	analyses map[string]model.ObjectiveAnalysis // cached per-pattern analysis used to featurize
	tree     *kdTree

	analyzer analyzer

	lastEvictionCheck time.Time
}

// New constructs an empty PatternMemory.
func New(a analyzer) *Store {
	return &Store{
		byID:     make(map[string]model.ExecutionPattern),
		analyses: make(map[string]model.ObjectiveAnalysis),
		tree:     buildKDTree(nil),
		analyzer: a,
	}
}

// Record stores a completed ExecutionPattern, assigning an id if absent,
// running failure-chain detection, and rebuilding the KD-tree entry for
// it. Idempotent: recording the same pattern id twice overwrites in
// place without duplicating the tree entry (the tree is rebuilt fresh
// from byID on every Record).
func (s *Store) Record(p model.ExecutionPattern) model.ExecutionPattern {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	analysis := s.analyzer.Analyze(p.Objective)

	s.mu.Lock()
	if !p.Success {
		p.FailureChainID = s.detectFailureChainLocked(p)
	}
	s.byID[p.ID] = p
	s.analyses[p.ID] = analysis
	s.rebuildTreeLocked()
	size := len(s.byID)
	s.mu.Unlock()

	if size > softCap {
		s.evictIfDue()
	}

	return p
}

func (s *Store) rebuildTreeLocked() {
	entries := make([]kdEntry, 0, len(s.byID))
	for id, p := range s.byID {
		entries = append(entries, kdEntry{id: id, vector: Featurize(p, s.analyses[id])})
	}
	s.tree = buildKDTree(entries)
}

// detectFailureChainLocked looks back up to failureChainLookback patterns
// in the same project_context; if at least failureChainMinShared
// (counting the new pattern) share the failed agent (the last agent of
// ExecutionOrder, else AgentsUsed) or the error category
// (diagnosis.Classify of FailureReason) within failureChainWindow, they
// are tagged with a common chain id (including the new pattern).
func (s *Store) detectFailureChainLocked(p model.ExecutionPattern) string {
	type candidate struct {
		id string
		pt model.ExecutionPattern
	}
	var recent []candidate
	for id, existing := range s.byID {
		if existing.ProjectContext != p.ProjectContext || existing.Success {
			continue
		}
		if p.Timestamp.Sub(existing.Timestamp) > failureChainWindow || p.Timestamp.Before(existing.Timestamp) {
			continue
		}
		recent = append(recent, candidate{id: id, pt: existing})
	}

	sort.Slice(recent, func(i, j int) bool { return recent[i].pt.Timestamp.After(recent[j].pt.Timestamp) })
	if len(recent) > failureChainLookback {
		recent = recent[:failureChainLookback]
	}

	related := func(a, b model.ExecutionPattern) bool {
		if a.FailureReason != "" && b.FailureReason != "" &&
			diagnosis.Classify(a.FailureReason) == diagnosis.Classify(b.FailureReason) {
			return true
		}
		fa, fb := diagnosis.Diagnose(a, "").FailedAgent, diagnosis.Diagnose(b, "").FailedAgent
		return fa != "" && fa == fb
	}

	shared := 0
	var chainID string
	for _, c := range recent {
		if related(c.pt, p) {
			shared++
			if chainID == "" && c.pt.FailureChainID != "" {
				chainID = c.pt.FailureChainID
			}
		}
	}

	if shared+1 < failureChainMinShared {
		return ""
	}
	if chainID == "" {
		chainID = uuid.NewString()
	}

	for _, c := range recent {
		if related(c.pt, p) {
			updated := c.pt
			updated.FailureChainID = chainID
			s.byID[c.id] = updated
		}
	}

	return chainID
}

// FindSimilar runs kNN search over the feature space, filtering results
// below the similarity threshold. similarity_score = cosine(vectors) *
// (0.5 + 0.5*success_indicator).
func (s *Store) FindSimilar(objective string, context string, k int) []Match {
	analysis := s.analyzer.Analyze(objective)

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := Featurize(model.ExecutionPattern{Objective: objective, ProjectContext: context}, analysis)
	candidates := s.tree.kNearest(query, k*3+k) // overfetch to survive threshold filtering

	matches := make([]Match, 0, k)
	for _, c := range candidates {
		p, ok := s.byID[c.id]
		if !ok {
			continue
		}
		successIndicator := 0.0
		if p.Success {
			successIndicator = 1.0
		}
		score := c.vector.CosineSimilarity(query) * (0.5 + 0.5*successIndicator)
		if score < similarityThreshold {
			continue
		}
		matches = append(matches, Match{Pattern: p, Similarity: score})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// GetAggregateStats derives aggregate statistics from patterns within the
// rolling 7-day window.
func (s *Store) GetAggregateStats() model.AggregateStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-rollingWindow)
	stats := model.AggregateStats{
		AgentUsage:     map[model.AgentId]int{},
		ErrorFrequency: map[string]int{},
	}

	var totalDuration, totalTokens float64
	var successes int
	var hourlyTotal, hourlySuccess [24]int

	for _, p := range s.byID {
		if p.Synthetic || p.Timestamp.Before(cutoff) {
			continue
		}
		stats.TotalExecutions++
		if p.Success {
			successes++
		}
		totalDuration += float64(p.TotalDurationMS)
		totalTokens += float64(p.TotalTokens)
		for _, a := range p.AgentsUsed {
			stats.AgentUsage[a]++
		}
		if p.FailureReason != "" {
			stats.ErrorFrequency[p.FailureReason]++
		}
		hour := p.Timestamp.Hour()
		hourlyTotal[hour]++
		if p.Success {
			hourlySuccess[hour]++
		}
	}

	if stats.TotalExecutions > 0 {
		stats.SuccessRate = float64(successes) / float64(stats.TotalExecutions)
		stats.AvgDurationMS = totalDuration / float64(stats.TotalExecutions)
		stats.AvgTokens = totalTokens / float64(stats.TotalExecutions)
	}
	for h := 0; h < 24; h++ {
		if hourlyTotal[h] > 0 {
			stats.HourlySuccessRate[h] = float64(hourlySuccess[h]) / float64(hourlyTotal[h])
		}
	}

	return stats
}

// GetRecentFailures returns up to k of the most recent failed patterns as
// fully diagnosed FailureContext records (category/severity/recovery
// strategy/avoidance rule), most recent first.
func (s *Store) GetRecentFailures(k int) []model.FailureContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var failed []model.ExecutionPattern
	for _, p := range s.byID {
		if !p.Success {
			failed = append(failed, p)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Timestamp.After(failed[j].Timestamp) })
	if len(failed) > k {
		failed = failed[:k]
	}

	out := make([]model.FailureContext, 0, len(failed))
	for _, p := range failed {
		out = append(out, diagnosis.Diagnose(p, s.analyses[p.ID].Domain))
	}
	return out
}

// RecentWithDomains returns up to limit of the most recent patterns
// (synthetic included) paired with their cached analysis domain, for
// TemporalDecayEngine health scoring.
func (s *Store) RecentWithDomains(limit int) ([]model.ExecutionPattern, []model.Domain) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := make([]model.ExecutionPattern, 0, len(s.byID))
	for _, p := range s.byID {
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Timestamp.After(patterns[j].Timestamp) })
	if len(patterns) > limit {
		patterns = patterns[:limit]
	}

	domains := make([]model.Domain, len(patterns))
	for i, p := range patterns {
		domains[i] = s.analyses[p.ID].Domain
	}
	return patterns, domains
}

// Size returns the number of patterns currently held, used by tests and
// by the kNN/id-map invariant check.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// TreeSize returns the KD-tree's node count, expected to always equal
// Size() per §8 property 7.
func (s *Store) TreeSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.size
}

// evictIfDue runs lazy eviction of patterns older than the rolling window
// once the soft cap is crossed. Any eviction that removes at least one
// entry rebuilds the KD-tree immediately: the tree has no notion of a
// deleted id, so leaving it stale even below a "small" eviction fraction
// would break the id_map/tree size parity property (§8 property 7).
func (s *Store) evictIfDue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-rollingWindow)
	evicted := 0
	for id, p := range s.byID {
		if p.Timestamp.Before(cutoff) {
			delete(s.byID, id)
			delete(s.analyses, id)
			evicted++
		}
	}
	if evicted == 0 {
		return
	}

	slog.Info("pattern memory eviction", "evicted", evicted, "remaining", len(s.byID))
	s.rebuildTreeLocked()
}

// BootstrapSynthetic seeds the store with synthetic patterns flagged
// synthetic:true, giving kNN search and the Bayesian engine a non-empty
// prior without a cold start. Synthetic patterns never participate in
// persistence or real aggregate counts.
func (s *Store) BootstrapSynthetic(patterns []model.ExecutionPattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patterns {
		p.Synthetic = true
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		analysis := s.analyzer.Analyze(p.Objective)
		s.byID[p.ID] = p
		s.analyses[p.ID] = analysis
	}
	s.rebuildTreeLocked()
}
