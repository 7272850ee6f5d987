package biometric

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

// DecodeImage decodes raw jpeg or png bytes into an image.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("undecodable image payload: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() < minImageDimension || bounds.Dy() < minImageDimension {
		return nil, fmt.Errorf("image too small for analysis (%dx%d %s)", bounds.Dx(), bounds.Dy(), format)
	}
	return img, nil
}

const minImageDimension = 32

// toGray converts any image to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// resizeGray scales a grayscale image to the given size using bilinear
// interpolation.
func resizeGray(src *image.Gray, width, height int) *image.Gray {
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// cropGray extracts a region from a grayscale image, clamped to its bounds.
func cropGray(src *image.Gray, region image.Rectangle) *image.Gray {
	region = region.Intersect(src.Bounds())
	dst := image.NewGray(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := 0; y < region.Dy(); y++ {
		for x := 0; x < region.Dx(); x++ {
			dst.SetGray(x, y, src.GrayAt(region.Min.X+x, region.Min.Y+y))
		}
	}
	return dst
}

// cropImage extracts a region from any image, clamped to its bounds.
func cropImage(src image.Image, region image.Rectangle) image.Image {
	region = region.Intersect(src.Bounds())
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if sub, ok := src.(subImager); ok {
		return sub.SubImage(region)
	}
	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	xdraw.Copy(dst, image.Point{}, src, region, xdraw.Over, nil)
	return dst
}

// meanStdDev returns the mean and population standard deviation of the pixel
// intensities of a grayscale image.
func meanStdDev(gray *image.Gray) (float64, float64) {
	bounds := gray.Bounds()
	total := float64(bounds.Dx() * bounds.Dy())
	if total == 0 {
		return 0, 0
	}

	sum := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += float64(gray.GrayAt(x, y).Y)
		}
	}
	mean := sum / total

	varSum := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			diff := float64(gray.GrayAt(x, y).Y) - mean
			varSum += diff * diff
		}
	}
	return mean, math.Sqrt(varSum / total)
}

// laplacianVariance measures sharpness as the variance of the 4-neighbour
// Laplacian response. Blurred images score near zero.
func laplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	responses := make([]float64, 0, (width-2)*(height-2))
	sum := 0.0
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			lap := float64(gray.GrayAt(x-1, y).Y) + float64(gray.GrayAt(x+1, y).Y) +
				float64(gray.GrayAt(x, y-1).Y) + float64(gray.GrayAt(x, y+1).Y) - 4*center
			responses = append(responses, lap)
			sum += lap
		}
	}

	mean := sum / float64(len(responses))
	varSum := 0.0
	for _, lap := range responses {
		diff := lap - mean
		varSum += diff * diff
	}
	return varSum / float64(len(responses))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
