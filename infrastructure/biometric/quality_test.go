package biometric

import (
	"image"
	"image/color"
	"testing"
	"time"

	"veriface.io/infrastructure/biometric/types"
)

// syntheticFaceImage draws a skin-toned rectangle with two symmetric dark eye
// patches on a dark background. It is crude, but it reliably trips the
// skin-segmentation detector and keeps tests free of binary fixtures.
func syntheticFaceImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	background := color.RGBA{10, 10, 10, 255}
	skin := color.RGBA{200, 150, 120, 255}
	eye := color.RGBA{30, 30, 30, 255}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, background)
		}
	}

	// Face occupies the central 60% of the frame.
	faceMinX, faceMaxX := width*2/10, width*8/10
	faceMinY, faceMaxY := height*2/10, height*8/10
	for y := faceMinY; y < faceMaxY; y++ {
		for x := faceMinX; x < faceMaxX; x++ {
			img.Set(x, y, skin)
		}
	}

	// Two eyes, mirrored about the vertical centre line, in the upper part
	// of the face.
	faceW := faceMaxX - faceMinX
	faceH := faceMaxY - faceMinY
	eyeY := faceMinY + faceH*3/10
	eyeSize := faceW / 10
	leftEyeX := faceMinX + faceW/4 - eyeSize/2
	rightEyeX := faceMaxX - faceW/4 - eyeSize/2
	for y := eyeY; y < eyeY+eyeSize; y++ {
		for x := leftEyeX; x < leftEyeX+eyeSize; x++ {
			img.Set(x, y, eye)
		}
		for x := rightEyeX; x < rightEyeX+eyeSize; x++ {
			img.Set(x, y, eye)
		}
	}
	return img
}

func TestAssessNoFaceDetected(t *testing.T) {
	assessor := NewQualityAssessor(time.Minute)
	black := image.NewRGBA(image.Rect(0, 0, 100, 100))

	metrics, detection := assessor.Assess(black, "")
	if detection.Found {
		t.Fatal("Found = true on a black image")
	}
	if !almostEqual(metrics.Overall, 0.1, scoreTolerance) {
		t.Errorf("Overall = %v, want 0.1 floor", metrics.Overall)
	}
	if !metrics.HasIssue(types.IssueNoFaceDetected) {
		t.Error("missing NO_FACE_DETECTED issue")
	}
}

func TestAssessSyntheticFace(t *testing.T) {
	assessor := NewQualityAssessor(time.Minute)

	metrics, detection := assessor.Assess(syntheticFaceImage(200, 200), "")
	if !detection.Found {
		t.Fatal("Found = false on a synthetic face image")
	}
	if detection.EyeCount != 2 {
		t.Errorf("EyeCount = %d, want 2", detection.EyeCount)
	}

	scores := map[string]float64{
		"overall":        metrics.Overall,
		"sharpness":      metrics.Sharpness,
		"brightness":     metrics.Brightness,
		"contrast":       metrics.Contrast,
		"face_size":      metrics.FaceSize,
		"pose":           metrics.Pose,
		"eye_visibility": metrics.EyeVisibility,
	}
	for name, score := range scores {
		if score < 0 || score > 1 {
			t.Errorf("%s = %v, outside [0,1]", name, score)
		}
	}

	// Frontal symmetric synthetic face: both eyes found, near-perfect pose.
	if metrics.EyeVisibility != 1.0 {
		t.Errorf("EyeVisibility = %v, want 1.0", metrics.EyeVisibility)
	}
	if metrics.Pose < 0.9 {
		t.Errorf("Pose = %v, want near 1.0 for a symmetric face", metrics.Pose)
	}
	if metrics.Overall < minAcceptedQuality {
		t.Errorf("Overall = %v, below the acceptance floor for a clean capture", metrics.Overall)
	}
}

func TestAssessCachesByContentHash(t *testing.T) {
	assessor := NewQualityAssessor(time.Minute)
	img := syntheticFaceImage(200, 200)
	hash := HashImage([]byte("stable-payload"))

	first, _ := assessor.Assess(img, hash)
	second, _ := assessor.Assess(img, hash)
	if first != second {
		t.Error("second assessment with the same content hash did not hit the cache")
	}
}

func TestIssuesCarrySuggestions(t *testing.T) {
	assessor := NewQualityAssessor(time.Minute)
	black := image.NewRGBA(image.Rect(0, 0, 100, 100))

	metrics, _ := assessor.Assess(black, "")
	suggestions := metrics.Suggestions()
	if len(suggestions) != len(metrics.Issues) {
		t.Fatalf("suggestions = %d, want one per issue (%d)", len(suggestions), len(metrics.Issues))
	}
	for i, suggestion := range suggestions {
		if suggestion == "" {
			t.Errorf("issue %v has no improvement suggestion", metrics.Issues[i])
		}
	}
}

func TestHashImageStable(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	if HashImage(payload) != HashImage(payload) {
		t.Error("HashImage is not stable for identical payloads")
	}
	if HashImage(payload) == HashImage([]byte{4, 3, 2, 1}) {
		t.Error("HashImage collided for different payloads")
	}
}
