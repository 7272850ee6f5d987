package entities

import (
	"time"

	"veriface.io/application/utils"
	"veriface.io/infrastructure/biometric/types"
)

// VerificationLog is the append-only audit row written once per verification
// attempt, whether it succeeded, was rejected or errored.
type VerificationLog struct {
	UserID        string  `bson:"userID" json:"userID"`
	CorrelationID string  `bson:"correlationID" json:"correlationID"`
	RecordID      *string `bson:"recordID" json:"recordID"`

	Verified         bool     `bson:"verified" json:"verified"`
	SimilarityScore  float64  `bson:"similarityScore" json:"similarityScore"`
	Confidence       float64  `bson:"confidence" json:"confidence"`
	Distance         float64  `bson:"distance" json:"distance"`
	FraudRiskScore   float64  `bson:"fraudRiskScore" json:"fraudRiskScore"`
	SpoofDetected    bool     `bson:"spoofDetected" json:"spoofDetected"`
	FraudIndicators  []string `bson:"fraudIndicators" json:"fraudIndicators"`
	QualityIssues    []string `bson:"qualityIssues" json:"qualityIssues"`
	ProcessingTimeMs float64  `bson:"processingTimeMs" json:"processingTimeMs"`
	Error            *string  `bson:"error" json:"error"`

	// Result keeps the complete engine output for audit and replay.
	Result types.VerificationResult `bson:"result" json:"result"`

	ClientPlatform *string `bson:"clientPlatform" json:"clientPlatform"`

	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (model VerificationLog) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateULIDString()
		}
	}
	model.UpdatedAt = now
	return &model
}
