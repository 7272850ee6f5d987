package biometric

import (
	"image"

	"veriface.io/application/utils"
	"veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
)

// SpoofDetector aggregates the registered liveness strategies into one
// verdict. The aggregate spoof score is the arithmetic mean of the scores of
// the strategies that completed; a failed strategy contributes nothing.
//
// Failure policy: when every strategy fails the detector defaults to "not
// spoofed" with the error recorded. Failing open trades a weaker check for
// availability; a broken detector must not lock every user out. Deployments
// that prefer lockout can set failClosed.
type SpoofDetector struct {
	strategies        []types.LivenessStrategy
	livenessThreshold float64
	failClosed        bool
}

func NewSpoofDetector(strategies []types.LivenessStrategy, livenessThreshold float64, failClosed bool) *SpoofDetector {
	if livenessThreshold <= 0 {
		livenessThreshold = 0.5
	}
	return &SpoofDetector{
		strategies:        strategies,
		livenessThreshold: livenessThreshold,
		failClosed:        failClosed,
	}
}

// Detect runs every strategy independently and merges their scores.
func (sd *SpoofDetector) Detect(img image.Image, face image.Rectangle) *types.SpoofVerdict {
	contributions := map[string]float64{}
	sum := 0.0
	var lastErr error

	for _, strategy := range sd.strategies {
		verdict, err := strategy.Analyze(img, face)
		if err != nil {
			lastErr = err
			logger.Warning("liveness strategy failed, skipping", logger.LoggerOptions{
				Key:  "strategy",
				Data: strategy.Name(),
			}, logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			continue
		}
		contributions[strategy.Name()] = verdict.SpoofScore
		sum += verdict.SpoofScore
	}

	if len(contributions) == 0 {
		verdict := &types.SpoofVerdict{
			SpoofDetected:          sd.failClosed,
			SpoofScore:             0,
			LivenessScore:          1,
			ContributingStrategies: contributions,
			Error:                  utils.GetStringPointer("all liveness strategies failed"),
		}
		if sd.failClosed {
			verdict.SpoofScore = 1
			verdict.LivenessScore = 0
		}
		if lastErr != nil {
			verdict.Error = utils.GetStringPointer("all liveness strategies failed: " + lastErr.Error())
		}
		logger.Error("spoof detection degraded: no strategy completed", logger.LoggerOptions{
			Key:  "fail_closed",
			Data: sd.failClosed,
		})
		return verdict
	}

	spoofScore := sum / float64(len(contributions))
	return &types.SpoofVerdict{
		SpoofDetected:          spoofScore > sd.livenessThreshold,
		SpoofScore:             spoofScore,
		LivenessScore:          1.0 - spoofScore,
		ContributingStrategies: contributions,
	}
}
