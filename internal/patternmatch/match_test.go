// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package patternmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlap_IdenticalTaskDescriptionsOverlap(t *testing.T) {
	assert.True(t, Overlap("internal/planner/*.go", "internal/planner/*.go"))
}

func TestOverlap_GlobMatchesConcreteScope(t *testing.T) {
	assert.True(t, Overlap("internal/planner/*.go", "internal/planner/planner.go"))
}

func TestOverlap_UnrelatedScopesDoNotOverlap(t *testing.T) {
	assert.False(t, Overlap("internal/planner/*.go", "internal/registry/*.go"))
}

func TestOverlap_IsSymmetric(t *testing.T) {
	a, b := "internal/planner/*.go", "internal/planner/planner.go"
	assert.Equal(t, Overlap(a, b), Overlap(b, a))
}
