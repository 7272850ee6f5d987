package biometric

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"veriface.io/application/repository"
	"veriface.io/application/utils"
	"veriface.io/entities"
	"veriface.io/infrastructure/biometric/types"
	rediscache "veriface.io/infrastructure/database/repository/cache"
	"veriface.io/infrastructure/logger"
	messagequeue "veriface.io/infrastructure/message_queue"
	queue_tasks "veriface.io/infrastructure/message_queue/tasks"
	mq_types "veriface.io/infrastructure/message_queue/types"
)

// Service is the process-wide verification engine, assembled once during
// start up.
var Service *VerificationEngine

// InitialiseBiometricService wires the engine to its mongo, redis and task
// queue collaborators. Thresholds and weights come from the environment with
// conservative defaults.
func InitialiseBiometricService() {
	config := Config{
		Models: []types.ModelConfig{
			{
				ModelType:           "facenet",
				Weight:              envFloat("FACENET_WEIGHT", 0.5),
				SimilarityThreshold: envFloat("FACENET_DISTANCE_THRESHOLD", 0.4),
				ConfidenceThreshold: envFloat("FACENET_CONFIDENCE_THRESHOLD", 0.5),
			},
			{
				ModelType:           "arcface",
				Weight:              envFloat("ARCFACE_WEIGHT", 0.5),
				SimilarityThreshold: envFloat("ARCFACE_DISTANCE_THRESHOLD", 0.35),
				ConfidenceThreshold: envFloat("ARCFACE_CONFIDENCE_THRESHOLD", 0.5),
			},
		},
		LivenessThreshold: envFloat("LIVENESS_THRESHOLD", 0.5),
		SpoofFailClosed:   os.Getenv("SPOOF_FAIL_CLOSED") == "true",
		PerModelTimeout:   envDuration("MODEL_TIMEOUT_MS", 2000),
		OverallBudget:     envDuration("VERIFICATION_BUDGET_MS", 10000),
		QualityCacheTTL:   envDuration("QUALITY_CACHE_TTL_MS", 600000),
		EmbeddingCacheTTL: envDuration("EMBEDDING_CACHE_TTL_MS", 300000),
		HistoryWindow:     envDuration("FRAUD_HISTORY_WINDOW_MS", 7*24*3600*1000),
	}

	history := &redisHistory{}
	Service = NewVerificationEngine(config, Dependencies{
		Extractors: []types.FeatureExtractor{NewFaceNetExtractor(), NewArcFaceExtractor()},
		Strategies: []types.LivenessStrategy{NewTextureLivenessStrategy(), NewReflectionLivenessStrategy()},
		Embeddings: NewCachedEmbeddingSource(fetchEnrolledEmbeddings, config.EmbeddingCacheTTL),
		Writer:     &mongoEmbeddingWriter{},
		History:    history,
		Audit:      &queueAuditSink{},
	})
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Warning("invalid float environment variable, using fallback", logger.LoggerOptions{
			Key:  "name",
			Data: name,
		})
		return fallback
	}
	return value
}

func envDuration(name string, fallbackMs int64) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return time.Duration(fallbackMs) * time.Millisecond
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warning("invalid duration environment variable, using fallback", logger.LoggerOptions{
			Key:  "name",
			Data: name,
		})
		return time.Duration(fallbackMs) * time.Millisecond
	}
	return time.Duration(value) * time.Millisecond
}

// fetchEnrolledEmbeddings loads a user's validated embeddings from mongo.
func fetchEnrolledEmbeddings(ctx context.Context, userID string) ([]types.Embedding, error) {
	records, err := repository.FaceEmbeddingRepo().FindMany(ctx, map[string]interface{}{
		"userID":    userID,
		"validated": true,
	})
	if err != nil {
		return nil, err
	}
	embeddings := make([]types.Embedding, 0, len(records))
	for _, record := range records {
		embeddings = append(embeddings, types.Embedding{
			ID:        record.ID,
			ModelType: record.ModelType,
			Vector:    record.Vector,
			Validated: record.Validated,
		})
	}
	return embeddings, nil
}

type mongoEmbeddingWriter struct{}

func (mw *mongoEmbeddingWriter) SaveEmbeddings(ctx context.Context, userID string, embeddings []types.Embedding) error {
	records := make([]entities.FaceEmbedding, 0, len(embeddings))
	for _, embedding := range embeddings {
		records = append(records, entities.FaceEmbedding{
			UserID:    userID,
			ModelType: embedding.ModelType,
			Vector:    embedding.Vector,
			Validated: embedding.Validated,
		})
	}
	return repository.FaceEmbeddingRepo().CreateBulk(ctx, records)
}

// redisHistory keeps per-user risk scores in a sorted set keyed by unix
// timestamp so windowed queries stay a single range scan.
type redisHistory struct{}

func historyKey(userID string) string {
	return "fraud-history:" + userID
}

func (rh *redisHistory) Record(ctx context.Context, userID string, riskScore float64, at time.Time) error {
	member := fmt.Sprintf("%d|%.4f", at.UnixNano(), riskScore)
	return rediscache.Cache.CreateInSortedSet(historyKey(userID), float64(at.Unix()), member, 8*24*time.Hour)
}

func (rh *redisHistory) HighRiskCount(ctx context.Context, userID string, window time.Duration, minRisk float64) (int, error) {
	now := time.Now()
	min := strconv.FormatInt(now.Add(-window).Unix(), 10)
	max := strconv.FormatInt(now.Unix(), 10)

	// Drop entries older than the window while we are here.
	rediscache.Cache.TrimSortedSetByScore(historyKey(userID), "-inf", "("+min)

	members, err := rediscache.Cache.FindSortedSetByScore(historyKey(userID), min, max)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, member := range *members {
		var ts int64
		var risk float64
		if _, err := fmt.Sscanf(member, "%d|%f", &ts, &risk); err != nil {
			continue
		}
		if risk > minRisk {
			count++
		}
	}
	return count, nil
}

// queueAuditSink hands audit persistence to the task queue so a slow mongo
// write never extends the verification response path.
type queueAuditSink struct{}

func (qs *queueAuditSink) Append(ctx context.Context, userID string, correlationID string, meta types.AuditMeta, result *types.VerificationResult) (string, error) {
	logID := utils.GenerateULIDString()
	payload, err := json.Marshal(queue_tasks.VerificationAuditPayload{
		LogID:          logID,
		UserID:         userID,
		CorrelationID:  correlationID,
		RecordID:       meta.RecordID,
		ClientPlatform: meta.ClientPlatform,
		Result:         *result,
	})
	if err != nil {
		return "", err
	}
	messagequeue.TaskQueue.Enqueue(mq_types.QueueTask{
		Name:     queue_tasks.HandleVerificationAuditTaskName,
		Payload:  payload,
		Priority: mq_types.High,
	})
	return logID, nil
}
