package scoring

import (
	"testing"

	"transparency-monitor/internal/models"
)

func statusPtr(s models.ValidationStatus) *models.ValidationStatus {
	return &s
}

func leafResponse(points int, meetsOriginal bool, firstPass models.ValidationStatus, postAppeal *models.ValidationStatus) models.ResponseWithDetails {
	return models.ResponseWithDetails{
		Response: models.Response{
			MeetsOriginal:    meetsOriginal,
			FirstPassStatus:  firstPass,
			PostAppealStatus: postAppeal,
		},
		PointValue: points,
	}
}

func TestScoreResponseLeaf(t *testing.T) {
	tests := []struct {
		name     string
		resp     models.ResponseWithDetails
		phase    models.Phase
		expected int
	}{
		{
			name:     "self phase uses original answer",
			resp:     leafResponse(4, true, models.ValidationRejected, nil),
			phase:    models.PhaseSelf,
			expected: 4,
		},
		{
			name:     "self phase original answer false",
			resp:     leafResponse(4, false, models.ValidationApproved, nil),
			phase:    models.PhaseSelf,
			expected: 0,
		},
		{
			name:     "first pass approved earns full points",
			resp:     leafResponse(4, true, models.ValidationApproved, nil),
			phase:    models.PhaseFirstPass,
			expected: 4,
		},
		{
			name:     "first pass rejected earns zero",
			resp:     leafResponse(4, true, models.ValidationRejected, nil),
			phase:    models.PhaseFirstPass,
			expected: 0,
		},
		{
			name:     "partial on a leaf earns zero",
			resp:     leafResponse(4, true, models.ValidationPartial, nil),
			phase:    models.PhaseFirstPass,
			expected: 0,
		},
		{
			name:     "first pass ignores post-appeal verdict",
			resp:     leafResponse(4, true, models.ValidationRejected, statusPtr(models.ValidationApproved)),
			phase:    models.PhaseFirstPass,
			expected: 0,
		},
		{
			name:     "post-appeal verdict overrides first pass",
			resp:     leafResponse(4, true, models.ValidationRejected, statusPtr(models.ValidationApproved)),
			phase:    models.PhasePostAppeal,
			expected: 4,
		},
		{
			name:     "final falls back to first pass without appeal verdict",
			resp:     leafResponse(4, true, models.ValidationApproved, nil),
			phase:    models.PhaseFinal,
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreResponse(tt.resp, tt.phase)
			if got != tt.expected {
				t.Errorf("ScoreResponse() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestScoreResponseComposite(t *testing.T) {
	sub := func(firstPass models.ValidationStatus, postAppeal *models.ValidationStatus) models.SubResponseWithDetails {
		return models.SubResponseWithDetails{
			SubResponse: models.SubResponse{
				FirstPassStatus:  firstPass,
				PostAppealStatus: postAppeal,
			},
		}
	}

	tests := []struct {
		name     string
		points   int
		subs     []models.SubResponseWithDetails
		phase    models.Phase
		expected int
	}{
		{
			name:   "six points with two of three approved post-appeal",
			points: 6,
			subs: []models.SubResponseWithDetails{
				sub(models.ValidationRejected, statusPtr(models.ValidationApproved)),
				sub(models.ValidationApproved, nil),
				sub(models.ValidationRejected, nil),
			},
			phase:    models.PhasePostAppeal,
			expected: 4,
		},
		{
			name:   "all approved earns full points",
			points: 6,
			subs: []models.SubResponseWithDetails{
				sub(models.ValidationApproved, nil),
				sub(models.ValidationApproved, nil),
				sub(models.ValidationApproved, nil),
			},
			phase:    models.PhaseFirstPass,
			expected: 6,
		},
		{
			name:   "none approved earns zero",
			points: 6,
			subs: []models.SubResponseWithDetails{
				sub(models.ValidationRejected, nil),
				sub(models.ValidationPartial, nil),
			},
			phase:    models.PhaseFirstPass,
			expected: 0,
		},
		{
			name:   "rounding is half-up",
			points: 5,
			subs: []models.SubResponseWithDetails{
				sub(models.ValidationApproved, nil),
				sub(models.ValidationRejected, nil),
			},
			phase:    models.PhaseFirstPass,
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := models.ResponseWithDetails{
				Response:     models.Response{FirstPassStatus: models.ValidationPending},
				PointValue:   tt.points,
				SubResponses: tt.subs,
			}
			got := ScoreResponse(resp, tt.phase)
			if got != tt.expected {
				t.Errorf("ScoreResponse() = %d, expected %d", got, tt.expected)
			}
			if got < 0 || got > tt.points {
				t.Errorf("ScoreResponse() = %d out of range [0, %d]", got, tt.points)
			}
		})
	}
}

func TestScoreAssessment(t *testing.T) {
	responses := []models.ResponseWithDetails{
		leafResponse(4, true, models.ValidationApproved, nil),
		leafResponse(10, true, models.ValidationRejected, nil),
		leafResponse(6, false, models.ValidationApproved, nil),
	}

	if got := ScoreAssessment(responses, models.PhaseFirstPass); got != 10 {
		t.Errorf("ScoreAssessment(first_pass) = %d, expected 10", got)
	}
	if got := ScoreAssessment(responses, models.PhaseSelf); got != 14 {
		t.Errorf("ScoreAssessment(self) = %d, expected 14", got)
	}
	if got := TotalPossible(responses); got != 20 {
		t.Errorf("TotalPossible() = %d, expected 20", got)
	}
}
