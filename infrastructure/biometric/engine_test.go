package biometric

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"veriface.io/infrastructure/biometric/types"
)

type stubSource struct {
	embeddings  []types.Embedding
	err         error
	invalidated []string
}

func (ss *stubSource) GetEmbeddings(ctx context.Context, userID string) ([]types.Embedding, error) {
	return ss.embeddings, ss.err
}

func (ss *stubSource) Invalidate(userID string) {
	ss.invalidated = append(ss.invalidated, userID)
}

type stubWriter struct {
	saved map[string][]types.Embedding
	err   error
}

func (sw *stubWriter) SaveEmbeddings(ctx context.Context, userID string, embeddings []types.Embedding) error {
	if sw.err != nil {
		return sw.err
	}
	if sw.saved == nil {
		sw.saved = map[string][]types.Embedding{}
	}
	sw.saved[userID] = embeddings
	return nil
}

type stubAudit struct {
	appends int
	results []*types.VerificationResult
}

func (sa *stubAudit) Append(ctx context.Context, userID string, correlationID string, meta types.AuditMeta, result *types.VerificationResult) (string, error) {
	sa.appends++
	sa.results = append(sa.results, result)
	return "log-1", nil
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("could not encode test image: %v", err)
	}
	return buf.Bytes()
}

type engineFixture struct {
	engine  *VerificationEngine
	source  *stubSource
	writer  *stubWriter
	audit   *stubAudit
	history *stubHistory
}

func newEngineFixture(source *stubSource, strategies []types.LivenessStrategy, extractors []types.FeatureExtractor) *engineFixture {
	writer := &stubWriter{}
	audit := &stubAudit{}
	history := &stubHistory{}

	engine := NewVerificationEngine(Config{
		Models: []types.ModelConfig{
			{ModelType: "facenet", Weight: 0.5, SimilarityThreshold: 0.4, ConfidenceThreshold: 0.5},
			{ModelType: "arcface", Weight: 0.5, SimilarityThreshold: 0.4, ConfidenceThreshold: 0.5},
		},
		LivenessThreshold: 0.5,
		PerModelTimeout:   time.Second,
		OverallBudget:     5 * time.Second,
	}, Dependencies{
		Extractors: extractors,
		Strategies: strategies,
		Embeddings: source,
		Writer:     writer,
		History:    history,
		Audit:      audit,
	})
	return &engineFixture{engine: engine, source: source, writer: writer, audit: audit, history: history}
}

func matchingFixture() *engineFixture {
	facenetVector := []float64{1, 0, 0}
	arcfaceVector := []float64{0, 1, 0}
	source := &stubSource{embeddings: []types.Embedding{
		{ID: "f-1", ModelType: "facenet", Vector: facenetVector, Validated: true},
		{ID: "a-1", ModelType: "arcface", Vector: arcfaceVector, Validated: true},
	}}
	strategies := []types.LivenessStrategy{&stubStrategy{name: "texture", score: 0.1}}
	extractors := []types.FeatureExtractor{
		&stubExtractor{modelType: "facenet", dimensions: 3, vector: facenetVector},
		&stubExtractor{modelType: "arcface", dimensions: 3, vector: arcfaceVector},
	}
	return newEngineFixture(source, strategies, extractors)
}

func TestVerifyGenuineMatch(t *testing.T) {
	fixture := matchingFixture()
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	result := fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	if !result.Verified {
		t.Fatalf("Verified = false for a genuine match: %+v", result)
	}
	if !almostEqual(result.SimilarityScore, 1.0, 1e-6) {
		t.Errorf("SimilarityScore = %v, want 1.0", result.SimilarityScore)
	}
	if result.SpoofDetected {
		t.Error("SpoofDetected = true, want false")
	}
	if result.FraudRiskScore != 0 {
		t.Errorf("FraudRiskScore = %v, want 0", result.FraudRiskScore)
	}
	if len(result.FraudIndicators) != 0 {
		t.Errorf("FraudIndicators = %v, want none", result.FraudIndicators)
	}
	if result.ProcessingTimeMs <= 0 {
		t.Error("ProcessingTimeMs not populated")
	}
	if fixture.audit.appends != 1 {
		t.Errorf("audit appends = %d, want exactly 1", fixture.audit.appends)
	}
	if len(fixture.history.recorded) != 1 {
		t.Errorf("history records = %d, want 1", len(fixture.history.recorded))
	}
}

func TestVerifyUnreadableImage(t *testing.T) {
	fixture := matchingFixture()

	result := fixture.engine.Verify(context.Background(), "user-1", []byte("definitely not an image"), types.AuditMeta{})
	if result.Verified {
		t.Fatal("Verified = true for an unreadable payload")
	}
	if result.Error == nil {
		t.Error("Error = nil, want decode failure recorded")
	}
	if !hasIndicator(result.FraudIndicators, types.IndicatorUnreadableImage) {
		t.Errorf("FraudIndicators = %v, want UNREADABLE_IMAGE", result.FraudIndicators)
	}
	if fixture.audit.appends != 1 {
		t.Errorf("audit appends = %d, want exactly 1 on the error path", fixture.audit.appends)
	}
}

func TestVerifyRejectsLowQualityCapture(t *testing.T) {
	fixture := matchingFixture()
	// A black frame has no detectable face and bottoms out the quality floor.
	imageData := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 100, 100)))

	result := fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	if result.Verified {
		t.Fatal("Verified = true for an unusable capture")
	}
	if !hasIndicator(result.FraudIndicators, types.IndicatorLowImageQuality) {
		t.Errorf("FraudIndicators = %v, want LOW_IMAGE_QUALITY", result.FraudIndicators)
	}
	if !hasIndicator(result.FraudIndicators, types.IndicatorPoorImageQuality) {
		t.Errorf("FraudIndicators = %v, want POOR_IMAGE_QUALITY from fraud assessment", result.FraudIndicators)
	}
	if len(result.QualityIssues) == 0 {
		t.Error("QualityIssues empty, want the capture problems listed")
	}
	if len(result.ImprovementSuggestions) == 0 {
		t.Error("ImprovementSuggestions empty, want actionable hints")
	}
	if fixture.audit.appends != 1 {
		t.Errorf("audit appends = %d, want exactly 1", fixture.audit.appends)
	}
}

func TestVerifyRejectsSpoof(t *testing.T) {
	facenetVector := []float64{1, 0, 0}
	source := &stubSource{embeddings: []types.Embedding{
		{ID: "f-1", ModelType: "facenet", Vector: facenetVector, Validated: true},
	}}
	fixture := newEngineFixture(source,
		[]types.LivenessStrategy{&stubStrategy{name: "texture", score: 0.9}},
		[]types.FeatureExtractor{&stubExtractor{modelType: "facenet", dimensions: 3, vector: facenetVector}},
	)
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	result := fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	if result.Verified {
		t.Fatal("Verified = true for a spoofed capture")
	}
	if !result.SpoofDetected {
		t.Error("SpoofDetected = false, want true")
	}
	if !hasIndicator(result.FraudIndicators, types.IndicatorSpoofDetected) {
		t.Errorf("FraudIndicators = %v, want SPOOF_DETECTED", result.FraudIndicators)
	}
	if result.FraudRiskScore < 0.5 {
		t.Errorf("FraudRiskScore = %v, want at least the spoof contribution", result.FraudRiskScore)
	}
	// Similarity stages never ran.
	if result.SimilarityScore != 0 || result.Distance != 1 {
		t.Errorf("similarity/distance = %v/%v, want defaults on early rejection", result.SimilarityScore, result.Distance)
	}
	if fixture.audit.appends != 1 {
		t.Errorf("audit appends = %d, want exactly 1", fixture.audit.appends)
	}
}

func TestVerifyNoEnrolledEmbeddings(t *testing.T) {
	fixture := newEngineFixture(&stubSource{},
		[]types.LivenessStrategy{&stubStrategy{name: "texture", score: 0.1}},
		[]types.FeatureExtractor{&stubExtractor{modelType: "facenet", dimensions: 3, vector: []float64{1, 0, 0}}},
	)
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	result := fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	if result.Verified {
		t.Fatal("Verified = true without enrollment")
	}
	if !hasIndicator(result.FraudIndicators, types.IndicatorNoRegisteredEmbeddings) {
		t.Errorf("FraudIndicators = %v, want NO_REGISTERED_EMBEDDINGS", result.FraudIndicators)
	}
	if fixture.audit.appends != 1 {
		t.Errorf("audit appends = %d, want exactly 1", fixture.audit.appends)
	}
}

func TestVerifyEmbeddingLookupFailure(t *testing.T) {
	fixture := newEngineFixture(&stubSource{err: errors.New("mongo down")},
		[]types.LivenessStrategy{&stubStrategy{name: "texture", score: 0.1}},
		[]types.FeatureExtractor{&stubExtractor{modelType: "facenet", dimensions: 3, vector: []float64{1, 0, 0}}},
	)
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	result := fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	if result.Verified {
		t.Fatal("Verified = true when the embedding store is down")
	}
	if result.Error == nil {
		t.Error("Error = nil, want lookup failure recorded")
	}
	if fixture.audit.appends != 1 {
		t.Errorf("audit appends = %d, want exactly 1", fixture.audit.appends)
	}
}

func TestVerifyFeatureExtractionFailure(t *testing.T) {
	facenetVector := []float64{1, 0, 0}
	source := &stubSource{embeddings: []types.Embedding{
		{ID: "f-1", ModelType: "facenet", Vector: facenetVector, Validated: true},
	}}
	fixture := newEngineFixture(source,
		[]types.LivenessStrategy{&stubStrategy{name: "texture", score: 0.1}},
		[]types.FeatureExtractor{&stubExtractor{modelType: "facenet", err: errors.New("model crashed")}},
	)
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	result := fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	if result.Verified {
		t.Fatal("Verified = true when no model extracted features")
	}
	if !hasIndicator(result.FraudIndicators, types.IndicatorFeatureExtractionFailed) {
		t.Errorf("FraudIndicators = %v, want FEATURE_EXTRACTION_FAILED", result.FraudIndicators)
	}
}

func TestVerifyIgnoresUnvalidatedEmbeddings(t *testing.T) {
	facenetVector := []float64{1, 0, 0}
	source := &stubSource{embeddings: []types.Embedding{
		{ID: "f-1", ModelType: "facenet", Vector: facenetVector, Validated: false},
	}}
	fixture := newEngineFixture(source,
		[]types.LivenessStrategy{&stubStrategy{name: "texture", score: 0.1}},
		[]types.FeatureExtractor{&stubExtractor{modelType: "facenet", dimensions: 3, vector: facenetVector}},
	)
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	result := fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	if result.Verified {
		t.Fatal("Verified = true against unvalidated embeddings")
	}
	if !hasIndicator(result.FraudIndicators, types.IndicatorNoRegisteredEmbeddings) {
		t.Errorf("FraudIndicators = %v, want NO_REGISTERED_EMBEDDINGS", result.FraudIndicators)
	}
}

func TestVerifyRejectionCarriesDecisionIndicators(t *testing.T) {
	// Enrolled face is nearly orthogonal to the probe, so similarity fails.
	source := &stubSource{embeddings: []types.Embedding{
		{ID: "f-1", ModelType: "facenet", Vector: []float64{0, 1, 0}, Validated: true},
	}}
	fixture := newEngineFixture(source,
		[]types.LivenessStrategy{&stubStrategy{name: "texture", score: 0.1}},
		[]types.FeatureExtractor{&stubExtractor{modelType: "facenet", dimensions: 3, vector: []float64{1, 0, 0}}},
	)
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	result := fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	if result.Verified {
		t.Fatal("Verified = true for a non-matching face")
	}
	if !hasIndicator(result.FraudIndicators, types.IndicatorSimilarityBelowThreshold) {
		t.Errorf("FraudIndicators = %v, want SIMILARITY_BELOW_THRESHOLD", result.FraudIndicators)
	}
	if len(result.FraudIndicators) == 0 {
		t.Error("rejection carries no fraud indicators")
	}
}

func TestVerifyUpdatesStats(t *testing.T) {
	fixture := matchingFixture()
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	fixture.engine.Verify(context.Background(), "user-1", imageData, types.AuditMeta{})
	fixture.engine.Verify(context.Background(), "user-1", []byte("junk"), types.AuditMeta{})

	stats := fixture.engine.Stats()
	if stats.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", stats.TotalRequests)
	}
	if stats.VerifiedRequests != 1 {
		t.Errorf("VerifiedRequests = %d, want 1", stats.VerifiedRequests)
	}
}

func TestEnrollHappyPath(t *testing.T) {
	fixture := matchingFixture()
	imageData := encodePNG(t, syntheticFaceImage(200, 200))

	embeddings, quality, err := fixture.engine.Enroll(context.Background(), "user-2", imageData)
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("embeddings = %d, want one per model", len(embeddings))
	}
	for _, embedding := range embeddings {
		if !embedding.Validated {
			t.Errorf("embedding %s not validated on enrollment", embedding.ModelType)
		}
		if embedding.ID == "" {
			t.Errorf("embedding %s has no id", embedding.ModelType)
		}
	}
	if quality == nil || quality.Overall < minAcceptedQuality {
		t.Errorf("quality = %+v, want at least the acceptance floor", quality)
	}
	if len(fixture.writer.saved["user-2"]) != 2 {
		t.Errorf("persisted embeddings = %d, want 2", len(fixture.writer.saved["user-2"]))
	}
	if len(fixture.source.invalidated) != 1 || fixture.source.invalidated[0] != "user-2" {
		t.Errorf("invalidated = %v, want [user-2]", fixture.source.invalidated)
	}
}

func TestEnrollRejectsFacelessImage(t *testing.T) {
	fixture := matchingFixture()
	imageData := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 100, 100)))

	_, _, err := fixture.engine.Enroll(context.Background(), "user-2", imageData)
	if err == nil {
		t.Fatal("Enroll() accepted a faceless reference image")
	}
	if len(fixture.writer.saved) != 0 {
		t.Error("embeddings persisted despite rejection")
	}
}
