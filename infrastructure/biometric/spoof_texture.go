package biometric

import (
	"fmt"
	"image"

	"veriface.io/infrastructure/biometric/types"
)

// TextureLivenessStrategy flags replay attacks from texture statistics of the
// face region. Printed photos and screens flatten the micro-texture of live
// skin: the local binary pattern histogram becomes more uniform and the
// intensity variance collapses.
type TextureLivenessStrategy struct {
	analysisSize int
}

func NewTextureLivenessStrategy() *TextureLivenessStrategy {
	return &TextureLivenessStrategy{analysisSize: 96}
}

func (ts *TextureLivenessStrategy) Name() string {
	return "texture"
}

func (ts *TextureLivenessStrategy) Analyze(img image.Image, face image.Rectangle) (*types.StrategyVerdict, error) {
	if face.Empty() {
		return nil, fmt.Errorf("texture analysis requires a face region")
	}

	gray := cropGray(toGray(img), face)
	gray = resizeGray(gray, ts.analysisSize, ts.analysisSize)

	uniformity := lbpUniformity(gray)
	_, stddev := meanStdDev(gray)
	varianceScore := clamp01(stddev / 48.0)

	// High uniformity and low variance both point at a flat reproduction.
	spoofScore := clamp01(0.6*uniformity + 0.4*(1.0-varianceScore))

	return &types.StrategyVerdict{
		SpoofDetected: spoofScore > 0.5,
		SpoofScore:    spoofScore,
	}, nil
}

// lbpUniformity computes an 8-neighbour local binary pattern histogram and
// returns its normalised peak concentration. Live skin spreads mass across
// many patterns; flat reproductions concentrate it.
func lbpUniformity(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return 1.0
	}

	var histogram [256]int
	total := 0
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := gray.GrayAt(x, y).Y
			pattern := 0
			neighbours := [8][2]int{
				{x - 1, y - 1}, {x, y - 1}, {x + 1, y - 1},
				{x + 1, y}, {x + 1, y + 1}, {x, y + 1},
				{x - 1, y + 1}, {x - 1, y},
			}
			for bit, n := range neighbours {
				if gray.GrayAt(n[0], n[1]).Y >= center {
					pattern |= 1 << uint(bit)
				}
			}
			histogram[pattern]++
			total++
		}
	}
	if total == 0 {
		return 1.0
	}

	// Mass held by the four most frequent patterns.
	top := [4]int{}
	for _, count := range histogram {
		for i := 0; i < len(top); i++ {
			if count > top[i] {
				copy(top[i+1:], top[i:len(top)-1])
				top[i] = count
				break
			}
		}
	}
	peak := 0
	for _, count := range top {
		peak += count
	}
	return clamp01(float64(peak) / float64(total))
}
