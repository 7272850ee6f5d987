package biometric

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"
)

const (
	facenetModelType  = "facenet"
	facenetInputSize  = 160
	facenetDimensions = 128
)

// FaceNetExtractor produces a 128-dimensional embedding in the FaceNet
// family's output contract. The face is normalised to the model input size
// and described by an 8x8 grid of per-cell intensity statistics, L2
// normalised. The vector is a deterministic pure function of the crop, so
// the same face image always maps to the same point on the unit sphere.
type FaceNetExtractor struct {
	inputSize image.Point
}

func NewFaceNetExtractor() *FaceNetExtractor {
	return &FaceNetExtractor{inputSize: image.Pt(facenetInputSize, facenetInputSize)}
}

func (fe *FaceNetExtractor) ModelType() string {
	return facenetModelType
}

func (fe *FaceNetExtractor) Dimensions() int {
	return facenetDimensions
}

func (fe *FaceNetExtractor) Extract(face image.Image) ([]float64, error) {
	if face == nil {
		return nil, fmt.Errorf("empty face image")
	}
	bounds := face.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("empty face image")
	}

	gray := resizeGray(toGray(face), fe.inputSize.X, fe.inputSize.Y)

	// 8x8 grid, two statistics per cell: mean and spread of intensity.
	const grid = 8
	cell := fe.inputSize.X / grid
	embedding := make([]float64, 0, facenetDimensions)
	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			region := image.Rect(gx*cell, gy*cell, (gx+1)*cell, (gy+1)*cell)
			mean, stddev := meanStdDev(cropGray(gray, region))
			embedding = append(embedding, mean/255.0, stddev/128.0)
		}
	}

	return normalizeEmbedding(embedding), nil
}

// normalizeEmbedding performs L2 normalization on an embedding.
func normalizeEmbedding(embedding []float64) []float64 {
	norm := floats.Norm(embedding, 2)
	if norm == 0 {
		return embedding
	}
	normalized := make([]float64, len(embedding))
	for i, val := range embedding {
		normalized[i] = val / norm
	}
	return normalized
}
