// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// cacheVersion is bumped whenever the on-disk schema changes shape.
const cacheVersion = 1

// cacheFile is the versioned JSON schema for the AgentRegistry cache
// (§6's persisted-state schema). Raw is not serialized and neither Load
// nor Save fills it: unknown top-level or per-agent fields in a cache
// file are ignored on Load and absent from the file the next Save
// writes.
type cacheFile struct {
	Version int                        `json:"version"`
	Agents  map[string]cacheAgentEntry `json:"agents"`
	Raw     json.RawMessage            `json:"-"`
}

type cacheAgentEntry struct {
	Specialization string              `json:"specialization,omitempty"`
	Capabilities   []string            `json:"capabilities,omitempty"`
	Tools          []string            `json:"tools,omitempty"`
	UseCases       []string            `json:"use_cases,omitempty"`
	MandatoryFor   []string            `json:"mandatory_for,omitempty"`
	Stats          cacheAgentStatsJSON `json:"stats"`
}

type cacheAgentStatsJSON struct {
	Total         int       `json:"total"`
	Success       int       `json:"success"`
	AvgTokens     float64   `json:"avg_tokens"`
	AvgDuration   float64   `json:"avg_duration"`
	SuccessRate   float64   `json:"success_rate"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FileCache persists the registry to a JSON file on disk, implementing
// the persister seam Registry debounces writes through.
type FileCache struct {
	Path string
}

// Save writes the full agent map to disk atomically (write-temp-then-
// rename), matching the "never observe a partial cache" expectation of a
// versioned persistence format.
func (c FileCache) Save(agents map[model.AgentId]model.AgentCapability) error {
	file := cacheFile{
		Version: cacheVersion,
		Agents:  make(map[string]cacheAgentEntry, len(agents)),
	}

	for id, ac := range agents {
		file.Agents[string(id)] = cacheAgentEntry{
			Specialization: ac.Specialization,
			Capabilities:   setToSlice(ac.Capabilities),
			Tools:          setToSlice(ac.Tools),
			UseCases:       setToSlice(ac.UseCases),
			MandatoryFor:   setToSlice(ac.MandatoryFor),
			Stats: cacheAgentStatsJSON{
				Total:       ac.Total,
				Success:     ac.Successes,
				AvgTokens:   ac.AvgTokens,
				AvgDuration: ac.AvgDurationMS,
				SuccessRate: ac.SuccessRate,
				UpdatedAt:   ac.UpdatedAt,
			},
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry cache directory: %w", err)
	}

	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry cache: %w", err)
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		return fmt.Errorf("failed to finalize registry cache: %w", err)
	}
	return nil
}

// Load reads the on-disk cache. A missing file is not an error: callers
// should seed built-in defaults instead (§4.2 failure mode).
func (c FileCache) Load() (map[model.AgentId]model.AgentCapability, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read registry cache: %w", err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry cache: %w", err)
	}

	out := make(map[model.AgentId]model.AgentCapability, len(file.Agents))
	for id, entry := range file.Agents {
		out[model.AgentId(id)] = model.AgentCapability{
			ID:             model.AgentId(id),
			Specialization: entry.Specialization,
			Capabilities:   sliceToSet(entry.Capabilities),
			Tools:          sliceToSet(entry.Tools),
			UseCases:       sliceToSet(entry.UseCases),
			MandatoryFor:   sliceToSet(entry.MandatoryFor),
			Total:          entry.Stats.Total,
			Successes:      entry.Stats.Success,
			AvgTokens:      entry.Stats.AvgTokens,
			AvgDurationMS:  entry.Stats.AvgDuration,
			SuccessRate:    entry.Stats.SuccessRate,
			UpdatedAt:      entry.Stats.UpdatedAt,
		}
	}
	return out, nil
}

func setToSlice(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sliceToSet(s []string) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for _, v := range s {
		out[v] = struct{}{}
	}
	return out
}
