// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package temporaldecay attaches a temporal relevance in [0,1] to
// patterns based on domain-specific half-lives, and summarizes the
// freshness of a pattern set.
package temporaldecay

import (
	"math"
	"time"

	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// halfLives is the domain-specific half-life table (days).
var halfLives = map[model.Domain]float64{
	model.DomainInfrastructure: 45,
	model.DomainSecurity:       60,
	model.DomainTesting:        90,
	model.DomainCode:           180,
	model.DomainArchitecture:   365,
	model.DomainDocumentation:  365,
	model.DomainData:           180,
	model.DomainUIUX:           120,
	model.DomainResearch:       180,
	model.DomainCreative:       730,
}

const defaultHalfLifeDays = 180

// Enriched pairs a pattern with its computed temporal relevance.
type Enriched struct {
	Pattern   model.ExecutionPattern
	Domain    model.Domain
	Relevance float64
}

// Health summarizes the freshness of an enriched pattern set.
type Health struct {
	HealthScore float64
	Fresh       int
	Stale       int
}

// Engine is the TemporalDecayEngine. Stateless.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Relevance computes 0.5^((now-timestamp)/half_life) for the given
// domain, defaulting to a 180-day half-life for unrecognized domains.
func (e *Engine) Relevance(domain model.Domain, timestamp time.Time) float64 {
	if timestamp.IsZero() {
		return 0
	}
	halfLife, ok := halfLives[domain]
	if !ok {
		halfLife = defaultHalfLifeDays
	}
	ageDays := time.Since(timestamp).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Pow(0.5, ageDays/halfLife)
}

// Enrich attaches temporal relevance to every pattern, given each
// pattern's resolved domain (callers typically resolve domain once via
// SemanticAnalyzer and pass it alongside the pattern).
func (e *Engine) Enrich(patterns []model.ExecutionPattern, domains []model.Domain) []Enriched {
	out := make([]Enriched, 0, len(patterns))
	for i, p := range patterns {
		d := model.DomainCode
		if i < len(domains) {
			d = domains[i]
		}
		out = append(out, Enriched{Pattern: p, Domain: d, Relevance: e.Relevance(d, p.Timestamp)})
	}
	return out
}

// CalculateHealth summarizes fresh (relevance >=0.5) vs stale (<0.2)
// counts and the mean relevance.
func (e *Engine) CalculateHealth(enriched []Enriched) Health {
	if len(enriched) == 0 {
		return Health{}
	}
	var total float64
	var fresh, stale int
	for _, item := range enriched {
		total += item.Relevance
		switch {
		case item.Relevance >= 0.5:
			fresh++
		case item.Relevance < 0.2:
			stale++
		}
	}
	return Health{
		HealthScore: total / float64(len(enriched)),
		Fresh:       fresh,
		Stale:       stale,
	}
}
