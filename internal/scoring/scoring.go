// Package scoring computes point totals from requirement and
// sub-requirement validation states. All functions are pure.
package scoring

import (
	"math"

	"transparency-monitor/internal/models"
)

// EffectiveStatus returns the authoritative validation status for the
// given phase: the post-appeal verdict when one exists, otherwise the
// first-pass verdict. For the first-pass phase only the first-pass
// verdict counts.
func EffectiveStatus(firstPass models.ValidationStatus, postAppeal *models.ValidationStatus, phase models.Phase) models.ValidationStatus {
	if phase == models.PhaseFirstPass {
		return firstPass
	}
	if postAppeal != nil {
		return *postAppeal
	}
	return firstPass
}

// ScoreResponse computes the points earned by one response in the given
// phase.
//
// Composite responses (one or more sub-responses) earn
// round(pointValue x approvedSubs / totalSubs), rounded half-up once per
// requirement. Responses without sub-responses are binary: the full
// point value iff the phase-appropriate status is approved, else zero.
// The self phase ignores analyst verdicts entirely and scores the
// original self-assessment answer.
func ScoreResponse(resp models.ResponseWithDetails, phase models.Phase) int {
	if phase == models.PhaseSelf {
		if resp.MeetsOriginal {
			return resp.PointValue
		}
		return 0
	}

	if len(resp.SubResponses) > 0 {
		approved := 0
		for _, sub := range resp.SubResponses {
			if EffectiveStatus(sub.FirstPassStatus, sub.PostAppealStatus, phase) == models.ValidationApproved {
				approved++
			}
		}
		return int(math.Round(float64(resp.PointValue) * float64(approved) / float64(len(resp.SubResponses))))
	}

	if EffectiveStatus(resp.FirstPassStatus, resp.PostAppealStatus, phase) == models.ValidationApproved {
		return resp.PointValue
	}
	return 0
}

// ScoreAssessment sums ScoreResponse over all responses for one phase.
func ScoreAssessment(responses []models.ResponseWithDetails, phase models.Phase) int {
	total := 0
	for _, resp := range responses {
		total += ScoreResponse(resp, phase)
	}
	return total
}

// TotalPossible returns the maximum attainable score, the sum of all
// requirement point values.
func TotalPossible(responses []models.ResponseWithDetails) int {
	total := 0
	for _, resp := range responses {
		total += resp.PointValue
	}
	return total
}
