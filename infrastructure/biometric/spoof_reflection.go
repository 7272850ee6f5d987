package biometric

import (
	"fmt"
	"image"

	"veriface.io/infrastructure/biometric/types"
)

// ReflectionLivenessStrategy looks for the specular signature of screens and
// glossy prints: large saturated highlight patches and an unnaturally even
// illumination gradient across the face.
type ReflectionLivenessStrategy struct{}

func NewReflectionLivenessStrategy() *ReflectionLivenessStrategy {
	return &ReflectionLivenessStrategy{}
}

func (rs *ReflectionLivenessStrategy) Name() string {
	return "reflection"
}

func (rs *ReflectionLivenessStrategy) Analyze(img image.Image, face image.Rectangle) (*types.StrategyVerdict, error) {
	if face.Empty() {
		return nil, fmt.Errorf("reflection analysis requires a face region")
	}

	gray := cropGray(toGray(img), face)
	mean, stddev := meanStdDev(gray)

	// Fraction of pixels far above the local mean. Live faces show small
	// specular points (eyes, nose tip); screens show broad bright patches.
	bounds := gray.Bounds()
	highlightCutoff := mean + 2.0*stddev
	if highlightCutoff > 250 {
		highlightCutoff = 250
	}
	bright := 0
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			total++
			if float64(gray.GrayAt(x, y).Y) > highlightCutoff {
				bright++
			}
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("empty face region")
	}
	highlightFraction := float64(bright) / float64(total)

	// Vertical illumination gradient. Real lighting produces a measurable
	// top-to-bottom falloff; backlit screens are nearly flat.
	topHalf := cropGray(gray, image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+bounds.Dy()/2))
	bottomHalf := cropGray(gray, image.Rect(bounds.Min.X, bounds.Min.Y+bounds.Dy()/2, bounds.Max.X, bounds.Max.Y))
	topMean, _ := meanStdDev(topHalf)
	bottomMean, _ := meanStdDev(bottomHalf)
	gradient := topMean - bottomMean
	if gradient < 0 {
		gradient = -gradient
	}
	flatness := clamp01(1.0 - gradient/24.0)

	spoofScore := clamp01(0.55*clamp01(highlightFraction/0.08) + 0.45*flatness)

	return &types.StrategyVerdict{
		SpoofDetected: spoofScore > 0.5,
		SpoofScore:    spoofScore,
	}, nil
}
