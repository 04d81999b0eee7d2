// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package feedback

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/internal/bayesian"
	"github.com/open-swarm/orchestrator-core/internal/conflict"
	"github.com/open-swarm/orchestrator-core/internal/external"
	"github.com/open-swarm/orchestrator-core/internal/pareto"
	"github.com/open-swarm/orchestrator-core/internal/patternmemory"
	"github.com/open-swarm/orchestrator-core/internal/registry"
	"github.com/open-swarm/orchestrator-core/internal/semantic"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// recordingKnowledgeStore captures every entity/relation batch handed to
// it so tests can assert on the memory bridge's persistence decisions.
type recordingKnowledgeStore struct {
	mu        sync.Mutex
	entities  [][]external.KnowledgeStoreEntity
	relations [][]external.KnowledgeStoreRelation
}

func (r *recordingKnowledgeStore) CreateEntities(_ context.Context, batch []external.KnowledgeStoreEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = append(r.entities, batch)
	return nil
}

func (r *recordingKnowledgeStore) CreateRelations(_ context.Context, batch []external.KnowledgeStoreRelation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations = append(r.relations, batch)
	return nil
}

func (r *recordingKnowledgeStore) Search(context.Context, string) ([]external.KnowledgeStoreResult, error) {
	return nil, nil
}

func (r *recordingKnowledgeStore) entityCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities)
}

func newTestLoop(t *testing.T, knowledge external.KnowledgeStore) *Loop {
	t.Helper()
	sem := semantic.New()
	loop := New(
		registry.New(nil),
		patternmemory.New(sem),
		bayesian.New(),
		conflict.New(nil),
		sem,
		pareto.New(),
		knowledge,
		nil,
		model.Scope{Level: model.ScopeProject, CanShare: true, Sensitivity: model.SensitivityInternal},
		nil,
	)
	t.Cleanup(loop.Close)
	return loop
}

func samplePattern() model.ExecutionPattern {
	return model.ExecutionPattern{
		ID:                  "pattern-1",
		Timestamp:           time.Now(),
		Objective:           "fix the failing login test",
		ObjectiveType:       model.IntentFixIssue,
		ProjectContext:      "auth-service",
		AgentsUsed:          []model.AgentId{"coder", "tester"},
		ExecutionOrder:      []model.AgentId{"coder", "tester"},
		AgentResults: []model.AgentResult{
			{AgentID: "coder", Success: true, DurationMS: 1200, TokensUsed: 400},
			{AgentID: "tester", Success: true, DurationMS: 800, TokensUsed: 150},
		},
		Success:             true,
		TotalDurationMS:     2000,
		TotalTokens:         550,
		PredictedConfidence: 0.7,
		PredictedTokens:     500,
	}
}

func TestRecord_UpdatesRegistryAndBayesSynchronously(t *testing.T) {
	ks := &recordingKnowledgeStore{}
	loop := newTestLoop(t, ks)

	loop.Record(context.Background(), samplePattern())

	cap, ok := loop.registry.Get("coder")
	require.True(t, ok)
	assert.Equal(t, 1, cap.Total)
	assert.Equal(t, 1, cap.Successes)
}

func TestRecord_PersistsValuablePatternAsync(t *testing.T) {
	ks := &recordingKnowledgeStore{}
	loop := newTestLoop(t, ks)

	loop.Record(context.Background(), samplePattern())

	require.Eventually(t, func() bool {
		return ks.entityCount() > 0
	}, time.Second, 10*time.Millisecond)
}

func TestRecord_SkipsSyntheticPatterns(t *testing.T) {
	ks := &recordingKnowledgeStore{}
	loop := newTestLoop(t, ks)

	p := samplePattern()
	p.Synthetic = true
	loop.Record(context.Background(), p)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, ks.entityCount())
}

func TestValueScore_LowForManyAgentsAndFailure(t *testing.T) {
	p := samplePattern()
	p.Success = false
	p.AgentsUsed = []model.AgentId{"a", "b", "c", "d", "e"}
	p.Conflicts = []string{"tool_overlap:a-b"}

	assert.Less(t, valueScore(p), 0.6)
}

func TestAnonymize_ConfidentialScopeDropsObjectiveText(t *testing.T) {
	p := samplePattern()
	entity := anonymize(p, model.Scope{Level: model.ScopeProject, Sensitivity: model.SensitivityConfidential})

	for _, obs := range entity.Observations {
		assert.NotContains(t, obs, "login test")
	}
}

func TestAnonymize_InternalScopeKeepsObjectiveText(t *testing.T) {
	p := samplePattern()
	entity := anonymize(p, model.Scope{Level: model.ScopeProject, Sensitivity: model.SensitivityInternal})

	found := false
	for _, obs := range entity.Observations {
		if strings.Contains(obs, "login test") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLearnConflicts_ParsesCoordinatorLabels(t *testing.T) {
	ks := &recordingKnowledgeStore{}
	loop := newTestLoop(t, ks)

	p := samplePattern()
	p.Conflicts = []string{"tool_overlap:coder-tester"}
	loop.learnConflicts(p)

	prob, ok := loop.conflicts.Graph().Probability("coder", "tester", model.ConflictToolOverlap)
	require.True(t, ok)
	assert.Greater(t, prob, 0.0)
}
