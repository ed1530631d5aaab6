package imagesource

import (
	"fmt"
	"math"

	"golang.org/x/image/draw"
)

const (
	// DefaultMaxWidth and DefaultMaxHeight bound the raster a file is drawn onto
	DefaultMaxWidth  = 600
	DefaultMaxHeight = 400
)

// FitScale returns min(maxW/w, maxH/h, 1): the largest factor that fits a
// w x h image into maxW x maxH without upscaling.
func FitScale(w, h, maxW, maxH int) float64 {
	return math.Min(math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h)), 1)
}

// FitDimensions returns the raster size for a w x h image, rounding each side
// and never collapsing a side to zero.
func FitDimensions(w, h, maxW, maxH int) (int, int) {
	scale := FitScale(w, h, maxW, maxH)
	outW := int(math.Round(float64(w) * scale))
	outH := int(math.Round(float64(h) * scale))
	return max(outW, 1), max(outH, 1)
}

// ParseScaler maps a config name to an interpolator
func ParseScaler(name string) (draw.Interpolator, error) {
	switch name {
	case "", "bilinear":
		return draw.ApproxBiLinear, nil
	case "bilinear-exact":
		return draw.BiLinear, nil
	case "nearest":
		return draw.NearestNeighbor, nil
	case "catmullrom":
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("unknown scaler %q (want nearest, bilinear, bilinear-exact or catmullrom)", name)
	}
}
