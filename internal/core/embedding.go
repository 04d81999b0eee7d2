// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package core

import (
	"context"
	"math"

	"github.com/open-swarm/orchestrator-core/internal/external"
	"github.com/open-swarm/orchestrator-core/internal/semantic"
	"github.com/open-swarm/orchestrator-core/pkg/model"
)

// hybridAnalyzer wraps the keyword-cascade Analyzer with an optional
// EmbeddingProvider. The provider never labels intent/domain directly —
// it returns a dense vector with no fixed anchor to the closed label
// sets — so labels always come from the keyword cascade; when the
// provider is available its embedding's vector norm contributes an
// additional confidence signal, blended with the cascade's margin-based
// confidence by Config.Learning.SemanticMatchingWeight. This is the
// "caller merges it" seam internal/semantic.Analyzer.Embed documents.
type hybridAnalyzer struct {
	base     *semantic.Analyzer
	provider external.EmbeddingProvider
	weight   float64
}

func newHybridAnalyzer(base *semantic.Analyzer, provider external.EmbeddingProvider, semanticMatchingWeight float64) *hybridAnalyzer {
	if provider == nil {
		provider = noopEmbeddingProvider{}
	}
	return &hybridAnalyzer{base: base, provider: provider, weight: semanticMatchingWeight}
}

// Analyze implements the semanticAnalyzer seam Planner/PatternMemory
// depend on.
func (h *hybridAnalyzer) Analyze(objective string) model.ObjectiveAnalysis {
	analysis := h.base.Analyze(objective)
	if !h.provider.Available() {
		return analysis
	}

	ctx, cancel := context.WithTimeout(context.Background(), external.EmbeddingTimeout)
	defer cancel()
	vec, err := h.provider.Embed(ctx, objective)
	if err != nil || len(vec) == 0 {
		return analysis
	}

	embeddingConfidence := vectorConfidence(vec)
	analysis.Confidence = h.weight*embeddingConfidence + (1-h.weight)*analysis.Confidence
	return analysis
}

// UpdateCalibration delegates to the underlying keyword analyzer, the
// only collaborator with mutable calibration state.
func (h *hybridAnalyzer) UpdateCalibration(predicted, observed model.Intent) {
	h.base.UpdateCalibration(predicted, observed)
}

// vectorConfidence turns an embedding's L2 norm into a [0,1] confidence
// proxy: a well-formed unit-ish embedding contributes high confidence, a
// degenerate near-zero vector (a provider's failure-to-embed signal)
// contributes low confidence.
func vectorConfidence(vec []float64) float64 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	norm := math.Sqrt(sumSquares)
	switch {
	case norm <= 0:
		return 0
	case norm >= 1:
		return 1
	default:
		return norm
	}
}

// noopEmbeddingProvider is used when the host supplies no embedding
// provider; Available() reports false so hybridAnalyzer never calls
// Embed.
type noopEmbeddingProvider struct{}

func (noopEmbeddingProvider) Embed(context.Context, string) ([]float64, error) { return nil, nil }
func (noopEmbeddingProvider) Dimensions() int                                  { return 0 }
func (noopEmbeddingProvider) Available() bool                                  { return false }
