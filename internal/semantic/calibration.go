// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package semantic

import "github.com/open-swarm/orchestrator-core/pkg/model"

// UpdateCalibration records one observation of predicted top-intent vs.
// the intent actually observed on the completed ExecutionPattern (§4.11
// step 6). Accuracy is exposed for diagnostics; nothing currently feeds
// it back into Analyze, matching the spec's "update calibration
// counters" (not "retrain") wording.
func (a *Analyzer) UpdateCalibration(predicted, observed model.Intent) {
	a.calMu.Lock()
	defer a.calMu.Unlock()
	a.calTotal++
	if predicted == observed {
		a.calCorrect++
	}
}

// CalibrationAccuracy returns predicted-intent accuracy over every
// UpdateCalibration call so far, or 0 with no observations yet.
func (a *Analyzer) CalibrationAccuracy() float64 {
	a.calMu.Lock()
	defer a.calMu.Unlock()
	if a.calTotal == 0 {
		return 0
	}
	return float64(a.calCorrect) / float64(a.calTotal)
}
