package biometric

import (
	"context"
	"image"
	"time"

	"veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
)

// ExtractorRegistry holds the registered feature-extraction models and runs
// them concurrently over the same face crop. Extraction per model is a pure
// function of the image, so no coordination beyond the join is needed.
type ExtractorRegistry struct {
	extractors map[string]types.FeatureExtractor
	timeout    time.Duration
}

func NewExtractorRegistry(timeout time.Duration, extractors ...types.FeatureExtractor) *ExtractorRegistry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	registry := &ExtractorRegistry{
		extractors: map[string]types.FeatureExtractor{},
		timeout:    timeout,
	}
	for _, extractor := range extractors {
		registry.extractors[extractor.ModelType()] = extractor
	}
	return registry
}

func (er *ExtractorRegistry) Register(extractor types.FeatureExtractor) {
	er.extractors[extractor.ModelType()] = extractor
}

func (er *ExtractorRegistry) ModelTypes() []string {
	names := make([]string, 0, len(er.extractors))
	for name := range er.extractors {
		names = append(names, name)
	}
	return names
}

type extractionResult struct {
	modelType string
	vector    []float64
	err       error
}

// ExtractAll runs every registered extractor against the face crop and
// returns the vectors of the models that completed in time. A model that
// errors or exceeds the per-model timeout simply does not contribute; it is
// not an error for the request.
func (er *ExtractorRegistry) ExtractAll(ctx context.Context, face image.Image) map[string][]float64 {
	results := make(chan extractionResult, len(er.extractors))

	for _, extractor := range er.extractors {
		go func(ex types.FeatureExtractor) {
			vector, err := ex.Extract(face)
			results <- extractionResult{modelType: ex.ModelType(), vector: vector, err: err}
		}(extractor)
	}

	features := map[string][]float64{}
	timer := time.NewTimer(er.timeout)
	defer timer.Stop()

	// Join barrier: wait for every extractor, the per-model timeout or the
	// caller's context, whichever comes first.
	for pending := len(er.extractors); pending > 0; {
		select {
		case result := <-results:
			pending--
			if result.err != nil {
				logger.Warning("feature extraction failed for model", logger.LoggerOptions{
					Key:  "model_type",
					Data: result.modelType,
				}, logger.LoggerOptions{
					Key:  "error",
					Data: result.err,
				})
				continue
			}
			features[result.modelType] = result.vector
		case <-timer.C:
			logger.Warning("feature extraction timed out, proceeding with partial results", logger.LoggerOptions{
				Key:  "models_completed",
				Data: len(features),
			}, logger.LoggerOptions{
				Key:  "models_pending",
				Data: pending,
			})
			return features
		case <-ctx.Done():
			logger.Warning("feature extraction cancelled", logger.LoggerOptions{
				Key:  "error",
				Data: ctx.Err(),
			})
			return features
		}
	}
	return features
}
