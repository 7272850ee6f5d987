package biometric

import (
	"fmt"
	"image"
	"math"
)

const (
	arcfaceModelType  = "arcface"
	arcfaceInputSize  = 112
	arcfaceDimensions = 512
)

// ArcFaceExtractor produces a 512-dimensional embedding in the ArcFace
// family's output contract (112x112 input, 512-d unit vector). The face is
// described by gradient-orientation histograms over an 8x8 cell grid, which
// captures edge structure rather than raw intensity and is therefore less
// sensitive to lighting than the FaceNet-style features.
type ArcFaceExtractor struct {
	inputSize image.Point
}

func NewArcFaceExtractor() *ArcFaceExtractor {
	return &ArcFaceExtractor{inputSize: image.Pt(arcfaceInputSize, arcfaceInputSize)}
}

func (af *ArcFaceExtractor) ModelType() string {
	return arcfaceModelType
}

func (af *ArcFaceExtractor) Dimensions() int {
	return arcfaceDimensions
}

func (af *ArcFaceExtractor) Extract(face image.Image) ([]float64, error) {
	if face == nil {
		return nil, fmt.Errorf("empty face image")
	}
	bounds := face.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("empty face image")
	}

	gray := resizeGray(toGray(face), af.inputSize.X, af.inputSize.Y)

	// 8x8 cells of 14px, 8 orientation bins per cell: 64 * 8 = 512.
	const (
		grid = 8
		bins = 8
	)
	cell := af.inputSize.X / grid
	embedding := make([]float64, arcfaceDimensions)

	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			base := (gy*grid + gx) * bins
			for y := gy*cell + 1; y < (gy+1)*cell-1; y++ {
				for x := gx*cell + 1; x < (gx+1)*cell-1; x++ {
					dx := float64(gray.GrayAt(x+1, y).Y) - float64(gray.GrayAt(x-1, y).Y)
					dy := float64(gray.GrayAt(x, y+1).Y) - float64(gray.GrayAt(x, y-1).Y)
					magnitude := math.Hypot(dx, dy)
					if magnitude == 0 {
						continue
					}
					angle := math.Atan2(dy, dx) + math.Pi
					bin := int(angle / (2 * math.Pi / bins))
					if bin >= bins {
						bin = bins - 1
					}
					embedding[base+bin] += magnitude
				}
			}
		}
	}

	return normalizeEmbedding(embedding), nil
}
