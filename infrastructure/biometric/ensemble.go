package biometric

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
)

// ErrNoModelResults is returned when no model could be scored, typically
// because the probe features and enrolled embeddings share no model type.
// The scorer must never silently report a match in that case.
var ErrNoModelResults = errors.New("no models produced valid results")

const cosineEpsilon = 1e-8

/// Confidence blend weights: agreement rate, inter-model consistency, raw
// ensemble similarity.
const (
	confidenceAgreementWeight   = 0.4
	confidenceConsistencyWeight = 0.3
	confidenceSimilarityWeight  = 0.3
)

// EnsembleScorer fuses per-model similarities into a single score using the
// configured model weights.
type EnsembleScorer struct {
	models map[string]types.ModelConfig
}

func NewEnsembleScorer(models []types.ModelConfig) *EnsembleScorer {
	configured := map[string]types.ModelConfig{}
	for _, model := range models {
		configured[model.ModelType] = model
	}
	return &EnsembleScorer{models: configured}
}

// CosineSimilarity computes the cosine similarity of two vectors, clamped to
// [0,1]. Negative cosine similarity is treated as zero: face embeddings are
// not expected to be meaningfully anti-correlated. An epsilon on each norm
// guards degenerate all-zero vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	dot := floats.Dot(a, b)
	normA := floats.Norm(a, 2) + cosineEpsilon
	normB := floats.Norm(b, 2) + cosineEpsilon
	return clamp01(dot / (normA * normB))
}

// Score matches the probe features against the enrolled embeddings per model
// type and fuses the per-model best similarities into an ensemble score with
// a confidence estimate.
func (es *EnsembleScorer) Score(features map[string][]float64, enrolled map[string][]types.Embedding) (*types.EnsembleScore, error) {
	modelResults := map[string]types.ModelResult{}
	similarities := []float64{}

	weightSum := 0.0
	weightedSimilarity := 0.0
	agreeingWeight := 0.0
	weightedConfidenceThreshold := 0.0

	for modelType, probe := range features {
		embeddings, hasEnrollment := enrolled[modelType]
		if !hasEnrollment || len(embeddings) == 0 {
			continue
		}
		config, configured := es.models[modelType]
		if !configured {
			logger.Warning("model produced features but has no configuration, skipping", logger.LoggerOptions{
				Key:  "model_type",
				Data: modelType,
			})
			continue
		}

		// Best match across the user's enrolled embeddings of this type.
		best := 0.0
		bestID := ""
		for _, embedding := range embeddings {
			similarity := CosineSimilarity(probe, embedding.Vector)
			if similarity >= best {
				best = similarity
				bestID = embedding.ID
			}
		}

		result := types.ModelResult{
			ModelType:          modelType,
			Similarity:         best,
			Distance:           1.0 - best,
			MatchedEmbeddingID: bestID,
			ThresholdMet:       (1.0 - best) <= config.SimilarityThreshold,
		}
		modelResults[modelType] = result
		similarities = append(similarities, best)

		weightSum += config.Weight
		weightedSimilarity += config.Weight * best
		weightedConfidenceThreshold += config.Weight * config.ConfidenceThreshold
		if result.ThresholdMet {
			agreeingWeight += config.Weight
		}
	}

	if len(modelResults) == 0 || weightSum == 0 {
		return &types.EnsembleScore{
			ModelResults: modelResults,
			Similarity:   0,
			Distance:     1,
			Confidence:   0,
		}, ErrNoModelResults
	}

	ensembleSimilarity := weightedSimilarity / weightSum

	agreement := float64(countThresholdMet(modelResults)) / float64(len(modelResults))
	consistency := 1.0
	if len(similarities) >= 2 {
		consistency = clamp01(1.0 - stat.PopStdDev(similarities, nil))
	}

	confidence := clamp01(confidenceAgreementWeight*agreement +
		confidenceConsistencyWeight*consistency +
		confidenceSimilarityWeight*ensembleSimilarity)

	return &types.EnsembleScore{
		ModelResults:       modelResults,
		Similarity:         ensembleSimilarity,
		Distance:           1.0 - ensembleSimilarity,
		Confidence:         confidence,
		ThresholdMet:       agreeingWeight/weightSum >= 0.5,
		RequiredConfidence: weightedConfidenceThreshold / weightSum,
	}, nil
}

// SimilaritySpread returns the population standard deviation of the
// contributing models' similarities, 0 with fewer than two models.
func SimilaritySpread(modelResults map[string]types.ModelResult) float64 {
	if len(modelResults) < 2 {
		return 0
	}
	similarities := make([]float64, 0, len(modelResults))
	for _, result := range modelResults {
		similarities = append(similarities, result.Similarity)
	}
	return stat.PopStdDev(similarities, nil)
}

func countThresholdMet(modelResults map[string]types.ModelResult) int {
	met := 0
	for _, result := range modelResults {
		if result.ThresholdMet {
			met++
		}
	}
	return met
}
