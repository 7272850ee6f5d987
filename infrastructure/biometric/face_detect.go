package biometric

import (
	"image"

	"veriface.io/infrastructure/biometric/types"
)

// FaceDetector locates the dominant face region in an image using a skin-tone
// segmentation pass followed by an eye-candidate search inside the region.
// It is a bounded-latency, dependency-free substitute for cascade detectors:
// detection runs on a downscaled copy so worst-case cost is constant.
type FaceDetector struct {
	maxAnalysisWidth int
	minRegionRatio   float64
	minSkinDensity   float64
}

func NewFaceDetector() *FaceDetector {
	return &FaceDetector{
		maxAnalysisWidth: 160,
		minRegionRatio:   0.01,
		minSkinDensity:   0.35,
	}
}

// Detect returns the dominant face region, a detection confidence and the
// number of visible eyes. Found is false when no plausible face exists.
func (fd *FaceDetector) Detect(img image.Image) *types.FaceDetection {
	bounds := img.Bounds()
	scale := 1
	if bounds.Dx() > fd.maxAnalysisWidth {
		scale = bounds.Dx() / fd.maxAnalysisWidth
	}

	mask, maskW, maskH := fd.skinMask(img, scale)
	box, density := largestSkinRegion(mask, maskW, maskH)
	if box.Empty() {
		return &types.FaceDetection{Found: false}
	}

	// Scale the region back to source coordinates.
	faceBox := image.Rect(
		bounds.Min.X+box.Min.X*scale,
		bounds.Min.Y+box.Min.Y*scale,
		bounds.Min.X+box.Max.X*scale,
		bounds.Min.Y+box.Max.Y*scale,
	).Intersect(bounds)

	regionRatio := float64(faceBox.Dx()*faceBox.Dy()) / float64(bounds.Dx()*bounds.Dy())
	if regionRatio < fd.minRegionRatio || density < fd.minSkinDensity {
		return &types.FaceDetection{Found: false}
	}

	gray := toGray(img)
	eyes := fd.countEyes(gray, faceBox)

	confidence := clamp01(density*0.7 + 0.3*clamp01(regionRatio/0.1))
	return &types.FaceDetection{
		Found:      true,
		Box:        faceBox,
		Confidence: confidence,
		EyeCount:   eyes,
	}
}

// skinMask builds a boolean mask of skin-coloured pixels on a downscaled
// grid. Classification runs in YCbCr space; the Cb/Cr band below covers most
// skin tones under ordinary lighting.
func (fd *FaceDetector) skinMask(img image.Image, scale int) ([]bool, int, int) {
	bounds := img.Bounds()
	maskW := bounds.Dx() / scale
	maskH := bounds.Dy() / scale
	mask := make([]bool, maskW*maskH)

	for my := 0; my < maskH; my++ {
		for mx := 0; mx < maskW; mx++ {
			r, g, b, _ := img.At(bounds.Min.X+mx*scale, bounds.Min.Y+my*scale).RGBA()
			r8, g8, b8 := float64(r>>8), float64(g>>8), float64(b>>8)

			yl := 0.299*r8 + 0.587*g8 + 0.114*b8
			cb := 128 - 0.168736*r8 - 0.331264*g8 + 0.5*b8
			cr := 128 + 0.5*r8 - 0.418688*g8 - 0.081312*b8

			if yl > 40 && cb >= 77 && cb <= 127 && cr >= 133 && cr <= 173 {
				mask[my*maskW+mx] = true
			}
		}
	}
	return mask, maskW, maskH
}

// largestSkinRegion finds the bounding box of the biggest connected skin
// component with a flood fill, and its fill density inside that box.
func largestSkinRegion(mask []bool, width, height int) (image.Rectangle, float64) {
	visited := make([]bool, len(mask))
	best := image.Rectangle{}
	bestCount := 0

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}

		// Iterative BFS; recursion depth is unbounded on large regions.
		queue := []int{start}
		visited[start] = true
		count := 0
		minX, minY := width, height
		maxX, maxY := 0, 0

		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			count++
			x, y := idx%width, idx/width
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}

			for _, next := range [4]int{idx - 1, idx + 1, idx - width, idx + width} {
				if next < 0 || next >= len(mask) {
					continue
				}
				// Skip horizontal wrap-around between rows.
				if (next == idx-1 && x == 0) || (next == idx+1 && x == width-1) {
					continue
				}
				if mask[next] && !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}

		if count > bestCount {
			bestCount = count
			best = image.Rect(minX, minY, maxX+1, maxY+1)
		}
	}

	if bestCount == 0 {
		return image.Rectangle{}, 0
	}
	area := best.Dx() * best.Dy()
	if area == 0 {
		return image.Rectangle{}, 0
	}
	return best, float64(bestCount) / float64(area)
}

// countEyes searches the upper half of the face region for two dark clusters,
// one per lateral half. An eye candidate is a region noticeably darker than
// the face average.
func (fd *FaceDetector) countEyes(gray *image.Gray, faceBox image.Rectangle) int {
	upper := image.Rect(faceBox.Min.X, faceBox.Min.Y+faceBox.Dy()/5, faceBox.Max.X, faceBox.Min.Y+faceBox.Dy()/2)
	upper = upper.Intersect(gray.Bounds())
	if upper.Empty() {
		return 0
	}

	faceCrop := cropGray(gray, faceBox)
	faceMean, _ := meanStdDev(faceCrop)
	darkCutoff := faceMean * 0.6

	eyes := 0
	mid := upper.Min.X + upper.Dx()/2
	halves := [2]image.Rectangle{
		image.Rect(upper.Min.X, upper.Min.Y, mid, upper.Max.Y),
		image.Rect(mid, upper.Min.Y, upper.Max.X, upper.Max.Y),
	}
	for _, half := range halves {
		dark := 0
		total := 0
		for y := half.Min.Y; y < half.Max.Y; y++ {
			for x := half.Min.X; x < half.Max.X; x++ {
				total++
				if float64(gray.GrayAt(x, y).Y) < darkCutoff {
					dark++
				}
			}
		}
		if total > 0 && float64(dark)/float64(total) > 0.02 {
			eyes++
		}
	}
	return eyes
}
