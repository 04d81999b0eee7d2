// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

func TestDiscover_NewAndReDiscover(t *testing.T) {
	r := New(nil)
	r.Discover(BuiltinAgents())

	ac, ok := r.Get("the_scribe")
	require.True(t, ok)
	assert.Equal(t, 0.5, ac.SuccessRate)

	r.RecordFeedback("the_scribe", true, 100, 50)
	r.Discover([]model.AgentCapability{{ID: "the_scribe", Specialization: "creative writer"}})

	updated, ok := r.Get("the_scribe")
	require.True(t, ok)
	assert.Equal(t, 1, updated.Total, "re-discovery must preserve running stats")
}

func TestRecordFeedback_WilsonSmoothing(t *testing.T) {
	r := New(nil)
	r.Discover(BuiltinAgents())

	for i := 0; i < 8; i++ {
		r.RecordFeedback("the_builder", true, 100, 50)
	}
	for i := 0; i < 2; i++ {
		r.RecordFeedback("the_builder", false, 100, 50)
	}

	ac, ok := r.Get("the_builder")
	require.True(t, ok)
	assert.Equal(t, 10, ac.Total)
	assert.Equal(t, 8, ac.Successes)
	// (8+1)/(10+2) = 0.75
	assert.InDelta(t, 0.75, ac.SuccessRate, 0.001)
}

func TestRecordFeedback_RepeatedCallsDoubleCount(t *testing.T) {
	r1 := New(nil)
	r1.Discover(BuiltinAgents())
	r1.RecordFeedback("the_builder", true, 100, 50)

	r2 := New(nil)
	r2.Discover(BuiltinAgents())
	r2.RecordFeedback("the_builder", true, 100, 50)
	r2.RecordFeedback("the_builder", true, 100, 50)

	a1, _ := r1.Get("the_builder")
	a2, _ := r2.Get("the_builder")
	assert.NotEqual(t, a1.Total, a2.Total, "sanity: two calls really do double-count total")
}

func TestSelectByCapabilities_RankedByCoverageThenSuccessRate(t *testing.T) {
	r := New(nil)
	r.Discover(BuiltinAgents())
	r.RecordFeedback("the_sentinel", true, 100, 50)

	ids := r.SelectByCapabilities([]string{"devops"})
	require.NotEmpty(t, ids)
	assert.Equal(t, model.AgentId("the_sentinel"), ids[0])
}

func TestRankedBySuccessRate(t *testing.T) {
	r := New(nil)
	r.Discover(BuiltinAgents())
	for i := 0; i < 5; i++ {
		r.RecordFeedback("the_builder", true, 100, 50)
	}

	ranked := r.RankedBySuccessRate()
	require.NotEmpty(t, ranked)
	assert.Equal(t, model.AgentId("the_builder"), ranked[0].ID)
}

func TestFileCache_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := FileCache{Path: filepath.Join(dir, "registry_cache.json")}

	agents := map[model.AgentId]model.AgentCapability{
		"the_builder": {
			ID:             "the_builder",
			Specialization: "implementation engineer",
			Capabilities:   map[string]struct{}{"implementation": {}},
			Tools:          map[string]struct{}{},
			UseCases:       map[string]struct{}{},
			MandatoryFor:   map[string]struct{}{},
			Total:          10,
			Successes:      8,
			SuccessRate:    0.75,
			AvgTokens:      123,
			AvgDurationMS:  456,
		},
	}

	require.NoError(t, cache.Save(agents))

	loaded, err := cache.Load()
	require.NoError(t, err)
	require.Contains(t, loaded, model.AgentId("the_builder"))
	assert.Equal(t, 10, loaded["the_builder"].Total)
	assert.Equal(t, 0.75, loaded["the_builder"].SuccessRate)
	assert.Contains(t, loaded["the_builder"].Capabilities, "implementation")
}

func TestFileCache_Load_MissingFileIsNotError(t *testing.T) {
	cache := FileCache{Path: "/nonexistent/path/registry_cache.json"}
	loaded, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRegistry_DebouncedFlush(t *testing.T) {
	dir := t.TempDir()
	cache := FileCache{Path: filepath.Join(dir, "registry_cache.json")}
	r := New(cache)

	r.Discover(BuiltinAgents())
	r.RecordFeedback("the_builder", true, 100, 50)
	r.RecordFeedback("the_builder", true, 100, 50)

	assert.True(t, r.HasPendingFlush(), "second write within the debounce window should be pending, not flushed")

	r.Flush()
	assert.False(t, r.HasPendingFlush())

	loaded, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, loaded["the_builder"].Total)
}
