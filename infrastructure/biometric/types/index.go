package types

import (
	"context"
	"image"
	"time"
)

// Embedding is a fixed-length face feature vector produced by one model.
type Embedding struct {
	ID        string    `bson:"id" json:"id"`
	ModelType string    `bson:"modelType" json:"model_type"`
	Vector    []float64 `bson:"vector" json:"-"`
	Validated bool      `bson:"validated" json:"validated"`
}

// ModelConfig is a registry entry for one feature-extraction model. Weights
// across active models need not sum to 1; fusion normalises by the weights of
// the models that actually contributed.
type ModelConfig struct {
	ModelType           string  `json:"model_type"`
	Weight              float64 `json:"weight"`
	SimilarityThreshold float64 `json:"similarity_threshold"` // max accepted distance (1 - similarity)
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

type IssueCode string

const (
	IssueNoFaceDetected     IssueCode = "NO_FACE_DETECTED"
	IssueLowSharpness       IssueCode = "LOW_SHARPNESS"
	IssuePoorLighting       IssueCode = "POOR_LIGHTING"
	IssueLowContrast        IssueCode = "LOW_CONTRAST"
	IssueSuboptimalFaceSize IssueCode = "SUBOPTIMAL_FACE_SIZE"
	IssueOffAxisPose        IssueCode = "OFF_AXIS_POSE"
	IssueEyesNotVisible     IssueCode = "EYES_NOT_VISIBLE"
)

// improvementSuggestions maps each issue to one actionable hint for the
// person capturing the image.
var improvementSuggestions = map[IssueCode]string{
	IssueNoFaceDetected:     "ensure your face is fully visible in the frame",
	IssueLowSharpness:       "hold the camera steady and make sure the image is in focus",
	IssuePoorLighting:       "move to a location with even, natural lighting",
	IssueLowContrast:        "avoid flat lighting; add a light source in front of you",
	IssueSuboptimalFaceSize: "position your face to fill roughly a quarter of the frame",
	IssueOffAxisPose:        "look straight at the camera",
	IssueEyesNotVisible:     "remove sunglasses and keep both eyes open",
}

func (code IssueCode) Suggestion() string {
	return improvementSuggestions[code]
}

// QualityMetrics scores an image's suitability for verification. All scores
// lie in [0,1].
type QualityMetrics struct {
	Overall       float64     `bson:"overall" json:"overall"`
	Sharpness     float64     `bson:"sharpness" json:"sharpness"`
	Brightness    float64     `bson:"brightness" json:"brightness"`
	Contrast      float64     `bson:"contrast" json:"contrast"`
	FaceSize      float64     `bson:"faceSize" json:"face_size"`
	Pose          float64     `bson:"pose" json:"pose"`
	EyeVisibility float64     `bson:"eyeVisibility" json:"eye_visibility"`
	Issues        []IssueCode `bson:"issues" json:"issues"`
}

func (qm *QualityMetrics) HasIssue(code IssueCode) bool {
	for _, issue := range qm.Issues {
		if issue == code {
			return true
		}
	}
	return false
}

func (qm *QualityMetrics) IssueStrings() []string {
	issues := make([]string, 0, len(qm.Issues))
	for _, issue := range qm.Issues {
		issues = append(issues, string(issue))
	}
	return issues
}

func (qm *QualityMetrics) Suggestions() []string {
	suggestions := make([]string, 0, len(qm.Issues))
	for _, issue := range qm.Issues {
		suggestions = append(suggestions, issue.Suggestion())
	}
	return suggestions
}

// FaceDetection is the dominant face region found in an image.
type FaceDetection struct {
	Found      bool
	Box        image.Rectangle
	Confidence float64
	EyeCount   int
}

// StrategyVerdict is the output of a single liveness strategy.
type StrategyVerdict struct {
	SpoofDetected bool    `json:"spoof_detected"`
	SpoofScore    float64 `json:"spoof_score"`
}

// SpoofVerdict aggregates all liveness strategies into one decision.
type SpoofVerdict struct {
	SpoofDetected          bool               `bson:"spoofDetected" json:"spoof_detected"`
	SpoofScore             float64            `bson:"spoofScore" json:"spoof_score"`
	LivenessScore          float64            `bson:"livenessScore" json:"liveness_score"`
	ContributingStrategies map[string]float64 `bson:"contributingStrategies" json:"contributing_strategies"`
	Error                  *string            `bson:"error" json:"error"`
}

// ModelResult is one model's best match against the user's enrolled
// embeddings of that type.
type ModelResult struct {
	ModelType          string  `bson:"modelType" json:"model_type"`
	Similarity         float64 `bson:"similarity" json:"similarity"`
	Distance           float64 `bson:"distance" json:"distance"`
	MatchedEmbeddingID string  `bson:"matchedEmbeddingID" json:"matched_embedding_id"`
	ThresholdMet       bool    `bson:"thresholdMet" json:"threshold_met"`
}

// EnsembleScore is the fused outcome across all contributing models.
type EnsembleScore struct {
	ModelResults map[string]ModelResult `bson:"modelResults" json:"model_results"`
	Similarity   float64                `bson:"similarity" json:"similarity"`
	Distance     float64                `bson:"distance" json:"distance"`
	Confidence   float64                `bson:"confidence" json:"confidence"`

	// ThresholdMet is true when the weighted majority of contributing
	// models met their own distance threshold.
	ThresholdMet bool `bson:"thresholdMet" json:"threshold_met"`

	// RequiredConfidence is the weighted mean of the contributing models'
	// confidence thresholds.
	RequiredConfidence float64 `bson:"requiredConfidence" json:"required_confidence"`
}

type FraudIndicator string

const (
	IndicatorLowConfidence           FraudIndicator = "LOW_VERIFICATION_CONFIDENCE"
	IndicatorPoorImageQuality        FraudIndicator = "POOR_IMAGE_QUALITY"
	IndicatorLowImageQuality         FraudIndicator = "LOW_IMAGE_QUALITY"
	IndicatorUnreadableImage         FraudIndicator = "UNREADABLE_IMAGE"
	IndicatorSpoofDetected           FraudIndicator = "SPOOF_DETECTED"
	IndicatorModelInconsistency      FraudIndicator = "MODEL_INCONSISTENCY"
	IndicatorRecentFraudHistory      FraudIndicator = "RECENT_FRAUD_HISTORY"
	IndicatorNoRegisteredEmbeddings  FraudIndicator = "NO_REGISTERED_EMBEDDINGS"
	IndicatorFeatureExtractionFailed FraudIndicator = "FEATURE_EXTRACTION_FAILED"
	IndicatorProcessingTimeout       FraudIndicator = "PROCESSING_TIMEOUT"

	IndicatorSimilarityBelowThreshold FraudIndicator = "SIMILARITY_BELOW_THRESHOLD"
	IndicatorConfidenceBelowThreshold FraudIndicator = "CONFIDENCE_BELOW_THRESHOLD"
)

// VerificationResult is the caller-facing outcome of one verification
// attempt. It is fully populated on every path and never mutated once
// returned.
type VerificationResult struct {
	Verified               bool                   `bson:"verified" json:"verified"`
	SimilarityScore        float64                `bson:"similarityScore" json:"similarity_score"`
	Distance               float64                `bson:"distance" json:"distance"`
	Confidence             float64                `bson:"confidence" json:"confidence"`
	FraudRiskScore         float64                `bson:"fraudRiskScore" json:"fraud_risk_score"`
	SpoofDetected          bool                   `bson:"spoofDetected" json:"spoof_detected"`
	Quality                *QualityMetrics        `bson:"quality" json:"quality"`
	Spoof                  *SpoofVerdict          `bson:"spoof" json:"spoof"`
	ModelResults           map[string]ModelResult `bson:"modelResults" json:"model_results"`
	FraudIndicators        []FraudIndicator       `bson:"fraudIndicators" json:"fraud_indicators"`
	QualityIssues          []string               `bson:"qualityIssues" json:"quality_issues"`
	ImprovementSuggestions []string               `bson:"improvementSuggestions" json:"improvement_suggestions"`
	ProcessingTimeMs       float64                `bson:"processingTimeMs" json:"processing_time_ms"`
	Error                  *string                `bson:"error" json:"error"`
}

func (vr *VerificationResult) IndicatorStrings() []string {
	indicators := make([]string, 0, len(vr.FraudIndicators))
	for _, indicator := range vr.FraudIndicators {
		indicators = append(indicators, string(indicator))
	}
	return indicators
}

// FeatureExtractor maps a cropped face image to a fixed-length vector. One
// implementation exists per model family; a deterministic test double can
// satisfy it for reproducible tests.
type FeatureExtractor interface {
	ModelType() string
	Dimensions() int
	Extract(face image.Image) ([]float64, error)
}

// LivenessStrategy is one anti-spoofing analyser. Strategies are run
// independently and their scores averaged.
type LivenessStrategy interface {
	Name() string
	Analyze(img image.Image, face image.Rectangle) (*StrategyVerdict, error)
}

// EmbeddingSource provides a user's enrolled embeddings. Implementations may
// cache; Invalidate must be called whenever enrollment changes.
type EmbeddingSource interface {
	GetEmbeddings(ctx context.Context, userID string) ([]Embedding, error)
	Invalidate(userID string)
}

// EmbeddingWriter persists freshly extracted enrollment embeddings.
type EmbeddingWriter interface {
	SaveEmbeddings(ctx context.Context, userID string, embeddings []Embedding) error
}

// VerificationHistory records and queries per-user fraud-risk history used by
// the fraud assessor.
type VerificationHistory interface {
	Record(ctx context.Context, userID string, riskScore float64, at time.Time) error
	HighRiskCount(ctx context.Context, userID string, window time.Duration, minRisk float64) (int, error)
}

// AuditMeta is optional request metadata propagated into the audit log.
type AuditMeta struct {
	// RecordID links the attempt to an external workflow record.
	RecordID *string

	// ClientPlatform is the OS reported by the caller's user agent.
	ClientPlatform *string
}

// AuditSink receives exactly one entry per verification attempt.
type AuditSink interface {
	Append(ctx context.Context, userID string, correlationID string, meta AuditMeta, result *VerificationResult) (string, error)
}
