package biometric

import (
	"context"
	"errors"
	"testing"
	"time"

	"veriface.io/application/utils"
	"veriface.io/infrastructure/biometric/types"
)

type stubHistory struct {
	highRiskCount int
	err           error
	recorded      []float64
}

func (sh *stubHistory) Record(ctx context.Context, userID string, riskScore float64, at time.Time) error {
	sh.recorded = append(sh.recorded, riskScore)
	return nil
}

func (sh *stubHistory) HighRiskCount(ctx context.Context, userID string, window time.Duration, minRisk float64) (int, error) {
	return sh.highRiskCount, sh.err
}

func hasIndicator(indicators []types.FraudIndicator, target types.FraudIndicator) bool {
	for _, indicator := range indicators {
		if indicator == target {
			return true
		}
	}
	return false
}

func TestAssessCleanAttempt(t *testing.T) {
	assessor := NewFraudRiskAssessor(&stubHistory{}, 0)
	risk, indicators := assessor.Assess(context.Background(), "user-1",
		&types.EnsembleScore{Confidence: 0.9},
		&types.QualityMetrics{Overall: 0.8},
		&types.SpoofVerdict{SpoofDetected: false},
	)
	if risk != 0 {
		t.Errorf("risk = %v, want 0", risk)
	}
	if len(indicators) != 0 {
		t.Errorf("indicators = %v, want none", indicators)
	}
}

func TestAssessIndividualContributions(t *testing.T) {
	tests := []struct {
		name          string
		ensemble      *types.EnsembleScore
		quality       *types.QualityMetrics
		spoof         *types.SpoofVerdict
		history       *stubHistory
		wantRisk      float64
		wantIndicator types.FraudIndicator
	}{
		{
			name:          "low confidence",
			ensemble:      &types.EnsembleScore{Confidence: 0.4},
			wantRisk:      0.3,
			wantIndicator: types.IndicatorLowConfidence,
		},
		{
			name:          "poor quality",
			quality:       &types.QualityMetrics{Overall: 0.3},
			wantRisk:      0.2,
			wantIndicator: types.IndicatorPoorImageQuality,
		},
		{
			name:          "spoof detected",
			spoof:         &types.SpoofVerdict{SpoofDetected: true},
			wantRisk:      0.5,
			wantIndicator: types.IndicatorSpoofDetected,
		},
		{
			name: "model inconsistency",
			ensemble: &types.EnsembleScore{
				Confidence: 0.9,
				ModelResults: map[string]types.ModelResult{
					"facenet": {Similarity: 0.9},
					"arcface": {Similarity: 0.4},
				},
			},
			wantRisk:      0.2,
			wantIndicator: types.IndicatorModelInconsistency,
		},
		{
			name:          "recent fraud history",
			history:       &stubHistory{highRiskCount: 3},
			wantRisk:      0.3,
			wantIndicator: types.IndicatorRecentFraudHistory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := tt.history
			if history == nil {
				history = &stubHistory{}
			}
			assessor := NewFraudRiskAssessor(history, 0)
			risk, indicators := assessor.Assess(context.Background(), "user-1", tt.ensemble, tt.quality, tt.spoof)
			if !almostEqual(risk, tt.wantRisk, scoreTolerance) {
				t.Errorf("risk = %v, want %v", risk, tt.wantRisk)
			}
			if !hasIndicator(indicators, tt.wantIndicator) {
				t.Errorf("indicators = %v, want %v present", indicators, tt.wantIndicator)
			}
		})
	}
}

func TestAssessAccumulatesAndClamps(t *testing.T) {
	assessor := NewFraudRiskAssessor(&stubHistory{highRiskCount: 5}, 0)
	risk, indicators := assessor.Assess(context.Background(), "user-1",
		&types.EnsembleScore{
			Confidence: 0.1,
			ModelResults: map[string]types.ModelResult{
				"facenet": {Similarity: 0.9},
				"arcface": {Similarity: 0.3},
			},
		},
		&types.QualityMetrics{Overall: 0.1},
		&types.SpoofVerdict{SpoofDetected: true, Error: utils.GetStringPointer("")},
	)
	// 0.3 + 0.2 + 0.5 + 0.2 + 0.3 exceeds the bound and must clamp.
	if risk != 1.0 {
		t.Errorf("risk = %v, want 1.0", risk)
	}
	if len(indicators) != 5 {
		t.Errorf("indicator count = %d, want 5", len(indicators))
	}
}

func TestAssessMonotoneInIndicators(t *testing.T) {
	assessor := NewFraudRiskAssessor(&stubHistory{}, 0)
	base, _ := assessor.Assess(context.Background(), "user-1",
		&types.EnsembleScore{Confidence: 0.4}, nil, nil)
	more, _ := assessor.Assess(context.Background(), "user-1",
		&types.EnsembleScore{Confidence: 0.4}, &types.QualityMetrics{Overall: 0.1}, nil)
	if more < base {
		t.Errorf("risk decreased from %v to %v when an indicator was added", base, more)
	}
}

func TestAssessHistoryFailureFailsOpen(t *testing.T) {
	assessor := NewFraudRiskAssessor(&stubHistory{err: errors.New("redis down")}, 0)
	risk, indicators := assessor.Assess(context.Background(), "user-1",
		&types.EnsembleScore{Confidence: 0.9},
		&types.QualityMetrics{Overall: 0.8},
		nil,
	)
	if risk != 0 {
		t.Errorf("risk = %v, want 0 when history is unavailable", risk)
	}
	if hasIndicator(indicators, types.IndicatorRecentFraudHistory) {
		t.Error("history indicator raised despite lookup failure")
	}
}

func TestAssessNilComponents(t *testing.T) {
	assessor := NewFraudRiskAssessor(nil, 0)
	risk, indicators := assessor.Assess(context.Background(), "user-1", nil, nil, nil)
	if risk != 0 || len(indicators) != 0 {
		t.Errorf("risk = %v indicators = %v, want zero risk and no indicators", risk, indicators)
	}
}
