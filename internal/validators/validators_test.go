// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-swarm/orchestrator-core/internal/errors"
)

func TestChain_StopsAtFirstFailure(t *testing.T) {
	chain := NewChain(NewSafetyValidator(), NewVagueRequestDetector())

	err := chain.Execute(&Input{Objective: "drop table users"})
	require.Error(t, err)

	var pe *errors.PlanError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.KindSafetyViolation, pe.Kind)
}

func TestChain_AllPass(t *testing.T) {
	chain := NewChain(NewSafetyValidator(), NewVagueRequestDetector())
	err := chain.Execute(&Input{Objective: "add unit tests for the billing module"})
	assert.NoError(t, err)
}

func TestChain_Names(t *testing.T) {
	chain := NewChain(NewSafetyValidator(), NewVagueRequestDetector(), NewConstraintEnforcer(), NewConfidenceValidator())
	assert.Equal(t, []string{
		"safety_validator", "vague_request_detector", "constraint_enforcer", "confidence_validator",
	}, chain.Names())
}
