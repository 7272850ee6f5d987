package biometric

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"veriface.io/application/utils"
	"veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
)

// Config holds the tunables of the verification engine, assembled once at
// process start.
type Config struct {
	Models            []types.ModelConfig
	LivenessThreshold float64
	SpoofFailClosed   bool
	PerModelTimeout   time.Duration
	OverallBudget     time.Duration
	QualityCacheTTL   time.Duration
	EmbeddingCacheTTL time.Duration
	HistoryWindow     time.Duration
}

// Dependencies are the engine's external collaborators. Persistence, history
// and audit are injected so tests can substitute in-memory stubs.
type Dependencies struct {
	Extractors []types.FeatureExtractor
	Strategies []types.LivenessStrategy
	Embeddings types.EmbeddingSource
	Writer     types.EmbeddingWriter
	History    types.VerificationHistory
	Audit      types.AuditSink
}

// ProcessingStats tracks aggregate engine throughput.
type ProcessingStats struct {
	TotalRequests      int64   `json:"total_requests"`
	VerifiedRequests   int64   `json:"verified_requests"`
	TotalTimeMs        int64   `json:"total_time_ms"`
	AverageTimeMs      float64 `json:"average_time_ms"`
	RegisteredModels   int     `json:"registered_models"`
	LivenessStrategies int     `json:"liveness_strategies"`
}

// VerificationEngine sequences the verification pipeline:
// quality check, spoof check, embedding lookup, feature extraction, ensemble
// scoring, fraud assessment, decision. Any stage before the decision may
// terminate early with a rejection; every call, including rejections and
// internal errors, produces exactly one audit entry.
type VerificationEngine struct {
	config     Config
	quality    *QualityAssessor
	spoof      *SpoofDetector
	extractors *ExtractorRegistry
	scorer     *EnsembleScorer
	fraud      *FraudRiskAssessor
	embeddings types.EmbeddingSource
	writer     types.EmbeddingWriter
	history    types.VerificationHistory
	audit      types.AuditSink

	mutex           sync.RWMutex
	processingStats ProcessingStats
}

func NewVerificationEngine(config Config, deps Dependencies) *VerificationEngine {
	if config.OverallBudget <= 0 {
		config.OverallBudget = 10 * time.Second
	}
	engine := &VerificationEngine{
		config:     config,
		quality:    NewQualityAssessor(config.QualityCacheTTL),
		spoof:      NewSpoofDetector(deps.Strategies, config.LivenessThreshold, config.SpoofFailClosed),
		extractors: NewExtractorRegistry(config.PerModelTimeout, deps.Extractors...),
		scorer:     NewEnsembleScorer(config.Models),
		fraud:      NewFraudRiskAssessor(deps.History, config.HistoryWindow),
		embeddings: deps.Embeddings,
		writer:     deps.Writer,
		history:    deps.History,
		audit:      deps.Audit,
	}

	logger.Info("verification engine initialised", logger.LoggerOptions{
		Key: "engine_config",
		Data: map[string]interface{}{
			"models":             len(config.Models),
			"liveness_threshold": config.LivenessThreshold,
			"spoof_fail_closed":  config.SpoofFailClosed,
			"overall_budget_ms":  config.OverallBudget.Milliseconds(),
		},
	})
	return engine
}

// Verify runs the full pipeline for one captured image against a claimed
// identity. It never panics past this boundary; unexpected failures are
// absorbed into the result.
func (ve *VerificationEngine) Verify(ctx context.Context, userID string, imageData []byte, meta types.AuditMeta) *types.VerificationResult {
	start := time.Now()
	correlationID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, ve.config.OverallBudget)
	defer cancel()

	result := newEmptyResult()

	defer func() {
		if recovered := recover(); recovered != nil {
			result.Verified = false
			result.Error = utils.GetStringPointer(fmt.Sprintf("internal verification error: %v", recovered))
			logger.Error("verification pipeline panicked", logger.LoggerOptions{
				Key:  "panic",
				Data: recovered,
			}, logger.LoggerOptions{
				Key:  "correlation_id",
				Data: correlationID,
			})
		}
		result.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
		ve.finalize(userID, correlationID, meta, result)
	}()

	img, err := DecodeImage(imageData)
	if err != nil {
		result.Error = utils.GetStringPointer(err.Error())
		result.FraudIndicators = append(result.FraudIndicators, types.IndicatorUnreadableImage)
		return result
	}

	// QUALITY_CHECK
	metrics, detection := ve.quality.Assess(img, HashImage(imageData))
	result.Quality = metrics
	result.QualityIssues = metrics.IssueStrings()
	result.ImprovementSuggestions = metrics.Suggestions()
	if metrics.Overall < minAcceptedQuality {
		result.FraudIndicators = append(result.FraudIndicators, types.IndicatorLowImageQuality)
		ve.assessFraud(ctx, userID, result, nil, metrics, nil)
		return result
	}

	// SPOOF_CHECK
	verdict := ve.spoof.Detect(img, detection.Box)
	result.Spoof = verdict
	result.SpoofDetected = verdict.SpoofDetected
	if verdict.SpoofDetected {
		ve.assessFraud(ctx, userID, result, nil, metrics, verdict)
		return result
	}

	// EMBEDDING_LOOKUP
	enrolled, err := ve.lookupEmbeddings(ctx, userID)
	if err != nil {
		result.Error = utils.GetStringPointer(err.Error())
		result.FraudIndicators = append(result.FraudIndicators, types.IndicatorNoRegisteredEmbeddings)
		ve.assessFraud(ctx, userID, result, nil, metrics, verdict)
		return result
	}
	if len(enrolled) == 0 {
		result.FraudIndicators = append(result.FraudIndicators, types.IndicatorNoRegisteredEmbeddings)
		ve.assessFraud(ctx, userID, result, nil, metrics, verdict)
		return result
	}

	// FEATURE_EXTRACTION
	faceCrop := cropImage(img, detection.Box)
	features := ve.extractors.ExtractAll(ctx, faceCrop)
	if len(features) == 0 {
		result.FraudIndicators = append(result.FraudIndicators, types.IndicatorFeatureExtractionFailed)
		if ctx.Err() != nil {
			result.Error = utils.GetStringPointer("verification budget exceeded during feature extraction")
			result.FraudIndicators = append(result.FraudIndicators, types.IndicatorProcessingTimeout)
		}
		ve.assessFraud(ctx, userID, result, nil, metrics, verdict)
		return result
	}

	// ENSEMBLE_SCORING
	score, err := ve.scorer.Score(features, enrolled)
	result.ModelResults = score.ModelResults
	result.SimilarityScore = score.Similarity
	result.Distance = score.Distance
	result.Confidence = score.Confidence
	if err != nil {
		result.Error = utils.GetStringPointer(err.Error())
		result.FraudIndicators = append(result.FraudIndicators, types.IndicatorNoRegisteredEmbeddings)
		ve.assessFraud(ctx, userID, result, nil, metrics, verdict)
		return result
	}

	// FRAUD_ASSESSMENT
	ve.assessFraud(ctx, userID, result, score, metrics, verdict)

	// DECISION
	confidenceMet := score.Confidence >= score.RequiredConfidence
	result.Verified = Decide(score.ThresholdMet, confidenceMet, result.FraudRiskScore, verdict.SpoofDetected, metrics.Overall)
	if !result.Verified {
		if !score.ThresholdMet {
			result.FraudIndicators = append(result.FraudIndicators, types.IndicatorSimilarityBelowThreshold)
		}
		if !confidenceMet {
			result.FraudIndicators = append(result.FraudIndicators, types.IndicatorConfidenceBelowThreshold)
		}
	}
	return result
}

// Enroll extracts reference embeddings from a quality-gated image for every
// registered model, persists them and invalidates the user's enrollment
// cache.
func (ve *VerificationEngine) Enroll(ctx context.Context, userID string, imageData []byte) ([]types.Embedding, *types.QualityMetrics, error) {
	img, err := DecodeImage(imageData)
	if err != nil {
		return nil, nil, err
	}

	metrics, detection := ve.quality.Assess(img, HashImage(imageData))
	if !detection.Found {
		return nil, metrics, fmt.Errorf("no face detected in reference image")
	}
	if metrics.Overall < minAcceptedQuality {
		return nil, metrics, fmt.Errorf("reference image quality %.2f below accepted floor", metrics.Overall)
	}

	faceCrop := cropImage(img, detection.Box)
	features := ve.extractors.ExtractAll(ctx, faceCrop)
	if len(features) == 0 {
		return nil, metrics, fmt.Errorf("no model could extract features from reference image")
	}

	embeddings := make([]types.Embedding, 0, len(features))
	for modelType, vector := range features {
		embeddings = append(embeddings, types.Embedding{
			ID:        utils.GenerateULIDString(),
			ModelType: modelType,
			Vector:    vector,
			Validated: true,
		})
	}

	if ve.writer != nil {
		if err := ve.writer.SaveEmbeddings(ctx, userID, embeddings); err != nil {
			return nil, metrics, err
		}
	}
	if ve.embeddings != nil {
		ve.embeddings.Invalidate(userID)
	}

	logger.Info("user enrolled", logger.LoggerOptions{
		Key:  "user_id",
		Data: userID,
	}, logger.LoggerOptions{
		Key:  "models",
		Data: len(embeddings),
	})
	return embeddings, metrics, nil
}

// InvalidateEnrollment exposes enrollment-cache invalidation to callers that
// mutate embeddings outside Enroll.
func (ve *VerificationEngine) InvalidateEnrollment(userID string) {
	if ve.embeddings != nil {
		ve.embeddings.Invalidate(userID)
	}
}

// Stats returns a copy of the aggregate processing statistics.
func (ve *VerificationEngine) Stats() ProcessingStats {
	ve.mutex.RLock()
	defer ve.mutex.RUnlock()
	stats := ve.processingStats
	stats.RegisteredModels = len(ve.extractors.ModelTypes())
	stats.LivenessStrategies = len(ve.spoof.strategies)
	return stats
}

// IsHealthy reports whether the engine can serve verifications.
func (ve *VerificationEngine) IsHealthy() bool {
	return len(ve.extractors.ModelTypes()) > 0 && ve.embeddings != nil
}

func newEmptyResult() *types.VerificationResult {
	return &types.VerificationResult{
		Verified:               false,
		SimilarityScore:        0,
		Distance:               1,
		Confidence:             0,
		ModelResults:           map[string]types.ModelResult{},
		FraudIndicators:        []types.FraudIndicator{},
		QualityIssues:          []string{},
		ImprovementSuggestions: []string{},
	}
}

func (ve *VerificationEngine) assessFraud(
	ctx context.Context,
	userID string,
	result *types.VerificationResult,
	ensemble *types.EnsembleScore,
	quality *types.QualityMetrics,
	spoof *types.SpoofVerdict,
) {
	risk, indicators := ve.fraud.Assess(ctx, userID, ensemble, quality, spoof)
	result.FraudRiskScore = risk
	result.FraudIndicators = append(result.FraudIndicators, indicators...)
}

// lookupEmbeddings fetches the user's enrollment and groups validated
// embeddings by model type.
func (ve *VerificationEngine) lookupEmbeddings(ctx context.Context, userID string) (map[string][]types.Embedding, error) {
	embeddings, err := ve.embeddings.GetEmbeddings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("embedding lookup failed: %w", err)
	}
	grouped := map[string][]types.Embedding{}
	for _, embedding := range embeddings {
		if !embedding.Validated {
			continue
		}
		grouped[embedding.ModelType] = append(grouped[embedding.ModelType], embedding)
	}
	return grouped, nil
}

// finalize records history, writes the audit entry and updates statistics.
// It runs on every path out of Verify, so each call yields exactly one audit
// row. Audit and history use a fresh context: the request budget may already
// be exhausted.
func (ve *VerificationEngine) finalize(userID string, correlationID string, meta types.AuditMeta, result *types.VerificationResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if ve.history != nil {
		if err := ve.history.Record(ctx, userID, result.FraudRiskScore, time.Now()); err != nil {
			logger.Warning("could not record fraud history", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
		}
	}

	if ve.audit != nil {
		if _, err := ve.audit.Append(ctx, userID, correlationID, meta, result); err != nil {
			logger.Error("could not append verification audit entry", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			}, logger.LoggerOptions{
				Key:  "correlation_id",
				Data: correlationID,
			})
		}
	}

	ve.updateStats(int64(result.ProcessingTimeMs), result.Verified)

	logger.Info("verification completed", logger.LoggerOptions{
		Key: "verification",
		Data: map[string]interface{}{
			"user_id":            userID,
			"correlation_id":     correlationID,
			"verified":           result.Verified,
			"similarity":         result.SimilarityScore,
			"confidence":         result.Confidence,
			"fraud_risk":         result.FraudRiskScore,
			"spoof_detected":     result.SpoofDetected,
			"indicators":         len(result.FraudIndicators),
			"processing_time_ms": result.ProcessingTimeMs,
		},
	})
}

func (ve *VerificationEngine) updateStats(processingTimeMs int64, verified bool) {
	ve.mutex.Lock()
	defer ve.mutex.Unlock()

	ve.processingStats.TotalRequests++
	if verified {
		ve.processingStats.VerifiedRequests++
	}
	ve.processingStats.TotalTimeMs += processingTimeMs
	ve.processingStats.AverageTimeMs = float64(ve.processingStats.TotalTimeMs) / float64(ve.processingStats.TotalRequests)
}
