// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package registry holds the set of known agents and their running
// performance statistics, debouncing writes to an on-disk JSON cache.
// Grounded on the teacher's pkg/agent.Manager: a sync.RWMutex-guarded map
// with log/slog structured logging at every state transition.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

const (
	// emaAlpha is the exponential-moving-average smoothing factor for
	// avg_tokens and avg_duration (§4.2).
	emaAlpha = 0.1

	// debounceInterval bounds disk writes to one per process per
	// interval (§5).
	debounceInterval = 2 * time.Second
)

// persister is the minimal disk-write seam the Registry debounces calls
// through; FileCache (cache.go) implements it and internal/core wires one
// in.
type persister interface {
	Save(agents map[model.AgentId]model.AgentCapability) error
}

// Registry is the AgentRegistry. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[model.AgentId]model.AgentCapability

	persist      persister
	lastFlush    time.Time
	pendingFlush bool
	flushMu      sync.Mutex
}

// New constructs an empty Registry. Use Discover to populate it with
// builtin or cached defaults before planning begins.
func New(p persister) *Registry {
	return &Registry{
		agents:  make(map[model.AgentId]model.AgentCapability),
		persist: p,
	}
}

// Get retrieves an agent's capability record.
func (r *Registry) Get(id model.AgentId) (model.AgentCapability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ac, ok := r.agents[id]
	return ac, ok
}

// List returns a snapshot of every registered agent.
func (r *Registry) List() []model.AgentCapability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AgentCapability, 0, len(r.agents))
	for _, ac := range r.agents {
		out = append(out, ac)
	}
	return out
}

// SelectByCapabilities ranks agents by how many of the required tags they
// declare (coverage), breaking ties by success_rate descending.
func (r *Registry) SelectByCapabilities(required []string) []model.AgentId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		id       model.AgentId
		coverage int
		rate     float64
	}

	var candidates []scored
	for id, ac := range r.agents {
		coverage := 0
		for _, tag := range required {
			if _, ok := ac.Capabilities[tag]; ok {
				coverage++
			}
		}
		if coverage == 0 && len(required) > 0 {
			continue
		}
		candidates = append(candidates, scored{id: id, coverage: coverage, rate: ac.SuccessRate})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].coverage != candidates[j].coverage {
			return candidates[i].coverage > candidates[j].coverage
		}
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		return candidates[i].id < candidates[j].id
	})

	out := make([]model.AgentId, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.id)
	}
	return out
}

// RankedBySuccessRate returns every agent ordered by success_rate
// descending.
func (r *Registry) RankedBySuccessRate() []model.AgentCapability {
	agents := r.List()
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].SuccessRate > agents[j].SuccessRate
	})
	return agents
}

// Discover registers agents the host declares available, preserving any
// running statistics for agents already known. This is a write path per
// §5 and triggers a debounced flush.
func (r *Registry) Discover(caps []model.AgentCapability) {
	r.mu.Lock()
	now := time.Now()
	for _, ac := range caps {
		if ac.ID == "" {
			continue
		}
		if existing, ok := r.agents[ac.ID]; ok {
			slog.Info("agent re-discovered", "agent", ac.ID, "specialization", ac.Specialization)
			ac.Successes = existing.Successes
			ac.Total = existing.Total
			ac.SuccessRate = existing.SuccessRate
			ac.AvgTokens = existing.AvgTokens
			ac.AvgDurationMS = existing.AvgDurationMS
		} else {
			slog.Info("new agent discovered", "agent", ac.ID, "specialization", ac.Specialization)
			ac.SuccessRate = 0.5 // uninformative prior, Wilson(0,0)
		}
		ac.UpdatedAt = now
		r.agents[ac.ID] = ac
	}
	r.mu.Unlock()

	r.scheduleFlush()
}

// RecordFeedback updates one agent's running statistics after an
// execution. success_rate uses a Wilson-smoothed mean with prior
// (alpha=1, beta=1); avg_tokens/avg_duration use EMA(alpha=0.1). This is a
// write path and triggers a debounced flush.
func (r *Registry) RecordFeedback(id model.AgentId, success bool, tokens int, durationMS int64) {
	r.mu.Lock()
	ac, ok := r.agents[id]
	if !ok {
		ac = model.AgentCapability{
			ID:           id,
			Capabilities: map[string]struct{}{},
			Tools:        map[string]struct{}{},
			UseCases:     map[string]struct{}{},
			MandatoryFor: map[string]struct{}{},
		}
	}

	ac.Total++
	if success {
		ac.Successes++
	}
	ac.SuccessRate = wilsonSmoothed(ac.Successes, ac.Total)

	if ac.Total == 1 {
		ac.AvgTokens = float64(tokens)
		ac.AvgDurationMS = float64(durationMS)
	} else {
		ac.AvgTokens = ema(ac.AvgTokens, float64(tokens))
		ac.AvgDurationMS = ema(ac.AvgDurationMS, float64(durationMS))
	}
	ac.UpdatedAt = time.Now()

	r.agents[id] = ac
	r.mu.Unlock()

	slog.Info("agent feedback recorded", "agent", id, "success", success, "total", ac.Total, "success_rate", ac.SuccessRate)

	r.scheduleFlush()
}

// wilsonSmoothed returns a Beta(1,1)-smoothed running mean: (successes+1)
// / (total+2), the conjugate-prior mean that the Bayesian engine also uses
// directly as alpha/(alpha+beta).
func wilsonSmoothed(successes, total int) float64 {
	return (float64(successes) + 1) / (float64(total) + 2)
}

func ema(prev, sample float64) float64 {
	return emaAlpha*sample + (1-emaAlpha)*prev
}

// scheduleFlush debounces disk writes to one per debounceInterval. Disk
// errors are logged and do not block the caller (§4.2 failure mode).
func (r *Registry) scheduleFlush() {
	if r.persist == nil {
		return
	}

	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	if time.Since(r.lastFlush) < debounceInterval {
		r.pendingFlush = true
		return
	}

	r.lastFlush = time.Now()
	r.pendingFlush = false
	r.flushNow()
}

func (r *Registry) flushNow() {
	r.mu.RLock()
	snapshot := make(map[model.AgentId]model.AgentCapability, len(r.agents))
	for id, ac := range r.agents {
		snapshot[id] = ac
	}
	r.mu.RUnlock()

	if err := r.persist.Save(snapshot); err != nil {
		slog.Error("agent registry flush failed", "error", err)
	}
}

// Flush forces an immediate write regardless of the debounce window. Used
// on process shutdown per §5's "final flush on shutdown" rule.
func (r *Registry) Flush() {
	if r.persist == nil {
		return
	}
	r.flushMu.Lock()
	defer r.flushMu.Unlock()
	r.lastFlush = time.Now()
	r.pendingFlush = false
	r.flushNow()
}

// HasPendingFlush reports whether a write has been debounced and not yet
// persisted. Exposed for tests and for the shutdown path.
func (r *Registry) HasPendingFlush() bool {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()
	return r.pendingFlush
}
