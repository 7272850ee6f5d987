package queue_tasks

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"veriface.io/application/repository"
	"veriface.io/entities"
	"veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
	mq_types "veriface.io/infrastructure/message_queue/types"
)

var HandleVerificationAuditTaskName mq_types.Queues = "persist_verification_audit"

type VerificationAuditPayload struct {
	LogID          string
	UserID         string
	CorrelationID  string
	RecordID       *string
	ClientPlatform *string
	Result         types.VerificationResult
}

// HandleVerificationAuditTask persists one verification attempt to the audit
// log. The log id is generated by the enqueuer so callers can reference the
// entry before the write lands.
func HandleVerificationAuditTask(ctx context.Context, t *asynq.Task) error {
	var payload VerificationAuditPayload
	err := json.Unmarshal(t.Payload(), &payload)
	if err != nil {
		logger.Error("an error occured while unmarshalling verification audit payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}

	log := entities.VerificationLog{
		ID:               payload.LogID,
		UserID:           payload.UserID,
		CorrelationID:    payload.CorrelationID,
		RecordID:         payload.RecordID,
		ClientPlatform:   payload.ClientPlatform,
		Verified:         payload.Result.Verified,
		SimilarityScore:  payload.Result.SimilarityScore,
		Confidence:       payload.Result.Confidence,
		Distance:         payload.Result.Distance,
		FraudRiskScore:   payload.Result.FraudRiskScore,
		SpoofDetected:    payload.Result.SpoofDetected,
		FraudIndicators:  payload.Result.IndicatorStrings(),
		QualityIssues:    payload.Result.QualityIssues,
		ProcessingTimeMs: payload.Result.ProcessingTimeMs,
		Error:            payload.Result.Error,
		Result:           payload.Result,
	}

	_, err = repository.VerificationLogRepo().CreateOne(ctx, log)
	if err != nil {
		logger.Error("an error occured while persisting verification audit entry", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "correlationID",
			Data: payload.CorrelationID,
		})
		return err
	}
	return nil
}
