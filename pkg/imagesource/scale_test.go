package imagesource

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1200, 800, 600, 400},
		{600, 400, 600, 400},
		{300, 200, 300, 200},
		{1920, 1080, 600, 338},
		{800, 1200, 267, 400},
		{1, 1, 1, 1},
		{6000, 10, 600, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d", tt.w, tt.h), func(t *testing.T) {
			w, h := FitDimensions(tt.w, tt.h, DefaultMaxWidth, DefaultMaxHeight)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestFitDimensions_Invariants(t *testing.T) {
	sizes := [][2]int{
		{1200, 800}, {800, 1200}, {601, 401}, {100, 50}, {600, 400},
		{3000, 1000}, {1000, 3000}, {640, 480}, {1920, 1080},
		{4032, 3024}, {599, 399}, {7, 5000}, {5000, 7},
	}

	for _, s := range sizes {
		w, h := s[0], s[1]
		scale := FitScale(w, h, DefaultMaxWidth, DefaultMaxHeight)
		outW, outH := FitDimensions(w, h, DefaultMaxWidth, DefaultMaxHeight)

		assert.LessOrEqual(t, scale, 1.0, "%dx%d upscaled", w, h)
		assert.LessOrEqual(t, outW, DefaultMaxWidth, "%dx%d width", w, h)
		assert.LessOrEqual(t, outH, DefaultMaxHeight, "%dx%d height", w, h)
		assert.LessOrEqual(t, outW, w, "%dx%d width grew", w, h)
		assert.LessOrEqual(t, outH, h, "%dx%d height grew", w, h)

		// each side is off by at most half a pixel (or clamped up to 1)
		assert.LessOrEqual(t, math.Abs(float64(outW)-float64(w)*scale), 1.0, "%dx%d width rounding", w, h)
		assert.LessOrEqual(t, math.Abs(float64(outH)-float64(h)*scale), 1.0, "%dx%d height rounding", w, h)

		if outW > 1 && outH > 1 {
			skew := math.Abs(float64(outW*h) - float64(outH*w))
			assert.LessOrEqual(t, skew, 0.5*float64(w+h), "%dx%d aspect", w, h)
		}
	}
}

func TestParseScaler(t *testing.T) {
	for _, name := range []string{"", "bilinear", "bilinear-exact", "nearest", "catmullrom"} {
		s, err := ParseScaler(name)
		assert.NoError(t, err, name)
		assert.NotNil(t, s, name)
	}

	_, err := ParseScaler("lanczos")
	assert.Error(t, err)
}
