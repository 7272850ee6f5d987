package biometric

import (
	"context"
	"time"

	"veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
)

// Fraud-risk contributions. Each indicator adds a bounded, non-negative
// amount; the final score is clamped to [0,1], so accumulating indicators can
// never lower the score.
const (
	riskLowConfidence      = 0.3
	riskPoorQuality        = 0.2
	riskSpoofDetected      = 0.5
	riskModelInconsistency = 0.2
	riskRecentHistory      = 0.3

	lowConfidenceCutoff     = 0.5
	poorQualityCutoff       = 0.4
	inconsistencySpread     = 0.2
	historyRiskCutoff       = 0.6
	historyAttemptThreshold = 2
)

// FraudRiskAssessor derives a bounded risk score from the weak signals of a
// verification attempt plus the user's recent history.
type FraudRiskAssessor struct {
	history       types.VerificationHistory
	historyWindow time.Duration
}

func NewFraudRiskAssessor(history types.VerificationHistory, window time.Duration) *FraudRiskAssessor {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &FraudRiskAssessor{history: history, historyWindow: window}
}

// Assess combines the stage outputs available so far. Any of ensemble, quality
// or spoof may be nil when an earlier stage terminated the pipeline; absent
// components simply contribute nothing.
func (fa *FraudRiskAssessor) Assess(
	ctx context.Context,
	userID string,
	ensemble *types.EnsembleScore,
	quality *types.QualityMetrics,
	spoof *types.SpoofVerdict,
) (float64, []types.FraudIndicator) {
	risk := 0.0
	indicators := []types.FraudIndicator{}

	if ensemble != nil && ensemble.Confidence < lowConfidenceCutoff {
		risk += riskLowConfidence
		indicators = append(indicators, types.IndicatorLowConfidence)
	}

	if quality != nil && quality.Overall < poorQualityCutoff {
		risk += riskPoorQuality
		indicators = append(indicators, types.IndicatorPoorImageQuality)
	}

	if spoof != nil && spoof.SpoofDetected {
		risk += riskSpoofDetected
		indicators = append(indicators, types.IndicatorSpoofDetected)
	}

	if ensemble != nil && len(ensemble.ModelResults) >= 2 {
		if SimilaritySpread(ensemble.ModelResults) > inconsistencySpread {
			risk += riskModelInconsistency
			indicators = append(indicators, types.IndicatorModelInconsistency)
		}
	}

	if fa.history != nil {
		count, err := fa.history.HighRiskCount(ctx, userID, fa.historyWindow, historyRiskCutoff)
		if err != nil {
			// Fail open: treat a broken history store as empty history.
			logger.Warning("fraud history lookup failed, assuming no history", logger.LoggerOptions{
				Key:  "user_id",
				Data: userID,
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
		} else if count > historyAttemptThreshold {
			risk += riskRecentHistory
			indicators = append(indicators, types.IndicatorRecentFraudHistory)
		}
	}

	return clamp01(risk), indicators
}
