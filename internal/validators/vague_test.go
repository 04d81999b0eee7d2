// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVagueRequestDetector_Analyze(t *testing.T) {
	v := NewVagueRequestDetector()

	cases := []struct {
		name      string
		objective string
		wantVague bool
	}{
		{"empty", "", true},
		{"too short no signal", "fix stuff", true},
		{"filler only", "make it better somehow", true},
		{"specific", "fix the failing TestUserLogin unit test in auth service", false},
		{"specific deploy", "deploy the billing service to the staging Kubernetes cluster", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := v.Analyze(tc.objective)
			assert.Equal(t, tc.wantVague, result.IsVague, "score=%v missing=%v", result.Score, result.MissingElements)
		})
	}
}

func TestVagueRequestDetector_Check_OnlyBlocksEmpty(t *testing.T) {
	v := NewVagueRequestDetector()

	err := v.Check(&Input{Objective: "fix stuff"})
	assert.NoError(t, err)

	err = v.Check(&Input{Objective: "   "})
	require.Error(t, err)
}
