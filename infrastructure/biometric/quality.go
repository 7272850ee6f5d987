package biometric

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"veriface.io/infrastructure/biometric/types"
	"veriface.io/infrastructure/logger"
)

// Sub-scores below this cutoff raise the matching quality issue.
const qualityIssueCutoff = 0.5

// Laplacian variance at or above this value counts as fully sharp. Empirical
// scale for webcam-grade captures.
const sharpnessScale = 300.0

// Face-to-image area band that scores 1.0. Outside the band the score decays
// linearly in both directions.
const (
	optimalFaceRatioLow  = 0.10
	optimalFaceRatioHigh = 0.40
)

type qualityCacheEntry struct {
	metrics   *types.QualityMetrics
	detection *types.FaceDetection
}

// QualityAssessor scores an image's suitability for verification. Assessment
// is a pure function of the image bytes, so results may be cached by content
// hash.
type QualityAssessor struct {
	detector *FaceDetector
	cache    *gocache.Cache
}

func NewQualityAssessor(cacheTTL time.Duration) *QualityAssessor {
	return &QualityAssessor{
		detector: NewFaceDetector(),
		cache:    gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// HashImage derives the cache key for an image payload.
func HashImage(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Assess computes quality metrics for an image. contentHash may be empty to
// bypass the cache.
func (qa *QualityAssessor) Assess(img image.Image, contentHash string) (*types.QualityMetrics, *types.FaceDetection) {
	if contentHash != "" {
		if cached, found := qa.cache.Get(contentHash); found {
			entry := cached.(qualityCacheEntry)
			return entry.metrics, entry.detection
		}
	}

	metrics, detection := qa.assess(img)
	if contentHash != "" {
		qa.cache.Set(contentHash, qualityCacheEntry{metrics: metrics, detection: detection}, gocache.DefaultExpiration)
	}
	return metrics, detection
}

func (qa *QualityAssessor) assess(img image.Image) (*types.QualityMetrics, *types.FaceDetection) {
	detection := qa.detector.Detect(img)
	if !detection.Found {
		// Non-zero floor keeps no-face results orderable against other
		// low-quality captures.
		return &types.QualityMetrics{
			Overall: 0.1,
			Issues:  []types.IssueCode{types.IssueNoFaceDetected},
		}, detection
	}

	gray := toGray(img)
	faceCrop := cropGray(gray, detection.Box)

	metrics := &types.QualityMetrics{
		Sharpness:     clamp01(laplacianVariance(faceCrop) / sharpnessScale),
		Brightness:    brightnessScore(faceCrop),
		Contrast:      contrastScore(faceCrop),
		FaceSize:      faceSizeScore(detection.Box, img.Bounds()),
		Pose:          poseScore(faceCrop),
		EyeVisibility: eyeVisibilityScore(detection.EyeCount),
	}
	metrics.Overall = (metrics.Sharpness + metrics.Brightness + metrics.Contrast +
		metrics.FaceSize + metrics.Pose + metrics.EyeVisibility) / 6.0

	metrics.Issues = collectIssues(metrics)

	logger.Info("image quality assessed", logger.LoggerOptions{
		Key: "quality",
		Data: map[string]interface{}{
			"overall":    metrics.Overall,
			"sharpness":  metrics.Sharpness,
			"brightness": metrics.Brightness,
			"contrast":   metrics.Contrast,
			"face_size":  metrics.FaceSize,
			"pose":       metrics.Pose,
			"eyes":       detection.EyeCount,
			"issues":     len(metrics.Issues),
		},
	})
	return metrics, detection
}

// brightnessScore penalises both under- and over-exposure symmetrically
// around mid gray.
func brightnessScore(faceCrop *image.Gray) float64 {
	mean, _ := meanStdDev(faceCrop)
	const midGray = 127.5
	return clamp01(1.0 - math.Abs(mean-midGray)/midGray)
}

func contrastScore(faceCrop *image.Gray) float64 {
	_, stddev := meanStdDev(faceCrop)
	// A stddev of 64 on an 8-bit image is already strong contrast.
	return clamp01(stddev / 64.0)
}

func faceSizeScore(faceBox, imageBounds image.Rectangle) float64 {
	ratio := float64(faceBox.Dx()*faceBox.Dy()) / float64(imageBounds.Dx()*imageBounds.Dy())
	switch {
	case ratio >= optimalFaceRatioLow && ratio <= optimalFaceRatioHigh:
		return 1.0
	case ratio < optimalFaceRatioLow:
		return clamp01(ratio / optimalFaceRatioLow)
	default:
		return clamp01(1.0 - (ratio-optimalFaceRatioHigh)/(1.0-optimalFaceRatioHigh))
	}
}

// poseScore correlates the left half of the face with the mirrored right
// half. A frontal face is near-symmetric; the Pearson coefficient is mapped
// from [-1,1] to [0,1].
func poseScore(faceCrop *image.Gray) float64 {
	bounds := faceCrop.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	half := width / 2
	if half < 2 || height < 2 {
		return 0.5
	}

	left := make([]float64, 0, half*height)
	right := make([]float64, 0, half*height)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := 0; x < half; x++ {
			left = append(left, float64(faceCrop.GrayAt(bounds.Min.X+x, y).Y))
			right = append(right, float64(faceCrop.GrayAt(bounds.Max.X-1-x, y).Y))
		}
	}

	correlation := pearson(left, right)
	return clamp01((correlation + 1.0) / 2.0)
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	if n == 0 {
		return 0
	}
	meanA, meanB := 0.0, 0.0
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	cov, varA, varB := 0.0, 0.0, 0.0
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func eyeVisibilityScore(eyeCount int) float64 {
	switch {
	case eyeCount >= 2:
		return 1.0
	case eyeCount == 1:
		return 0.7
	default:
		return 0.2
	}
}

func collectIssues(metrics *types.QualityMetrics) []types.IssueCode {
	issues := []types.IssueCode{}
	if metrics.Sharpness < qualityIssueCutoff {
		issues = append(issues, types.IssueLowSharpness)
	}
	if metrics.Brightness < qualityIssueCutoff {
		issues = append(issues, types.IssuePoorLighting)
	}
	if metrics.Contrast < qualityIssueCutoff {
		issues = append(issues, types.IssueLowContrast)
	}
	if metrics.FaceSize < qualityIssueCutoff {
		issues = append(issues, types.IssueSuboptimalFaceSize)
	}
	if metrics.Pose < qualityIssueCutoff {
		issues = append(issues, types.IssueOffAxisPose)
	}
	if metrics.EyeVisibility < qualityIssueCutoff {
		issues = append(issues, types.IssueEyesNotVisible)
	}
	return issues
}
