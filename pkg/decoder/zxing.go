package decoder

import (
	"fmt"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode/detector"

	"github.com/qrdecryptor/qrdecryptor/pkg/imagesource"
)

// finderHalf is the distance in modules from a finder centre to the
// symbol's outer edge
const finderHalf = 3.5

// ZXing decodes QR codes with gozxing
type ZXing struct {
	tryHarder bool
}

// NewZXing creates the QR decoder. tryHarder trades speed for accuracy.
func NewZXing(tryHarder bool) *ZXing {
	return &ZXing{tryHarder: tryHarder}
}

func (z *ZXing) Decode(pix []byte, width, height int) (*Symbol, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel buffer has %d bytes, want %d for %dx%d RGBA", len(pix), width*height*4, width, height)
	}

	img := (&imagesource.Buffer{Pix: pix, Width: width, Height: height}).Image()
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binarize: %w", err)
	}

	var hints map[gozxing.DecodeHintType]interface{}
	if z.tryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		// not found, checksum and format failures all mean "no symbol"
		slog.Debug("zxing_no_result", "error", err)
		return nil, nil
	}

	points := make([]Point, 0, 4)
	for _, p := range result.GetResultPoints() {
		points = append(points, Point{X: p.GetX(), Y: p.GetY()})
	}

	return &Symbol{
		Payload: result.GetText(),
		Corners: cornersFromFinders(points, symbolDimension(bmp, hints)),
	}, nil
}

// symbolDimension re-runs detection to learn the symbol's width in modules.
// It returns 0 when the detector disagrees with the reader.
func symbolDimension(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) int {
	matrix, err := bmp.GetBlackMatrix()
	if err != nil {
		return 0
	}
	res, err := detector.NewDetector(matrix).Detect(hints)
	if err != nil {
		slog.Debug("zxing_detect_failed", "error", err)
		return 0
	}
	return res.GetBits().GetWidth()
}

// cornersFromFinders builds the symbol's outline from QR result points,
// which are the finder pattern centres ordered bottom-left, top-left,
// top-right (then an optional alignment pattern). The centres sit 3.5
// modules inside the outer corners, so with a known dimension each corner
// is pushed outward along both edges. The bottom-right corner completes the
// parallelogram.
func cornersFromFinders(points []Point, dimension int) Corners {
	if len(points) < 3 {
		return Corners{}
	}
	bl, tl, tr := points[0], points[1], points[2]
	br := Point{X: tr.X + bl.X - tl.X, Y: tr.Y + bl.Y - tl.Y}

	if dimension <= 7 {
		return Corners{TopLeft: tl, TopRight: tr, BottomRight: br, BottomLeft: bl}
	}

	span := float64(dimension - 7)
	u := Point{X: (tr.X - tl.X) / span, Y: (tr.Y - tl.Y) / span}
	v := Point{X: (bl.X - tl.X) / span, Y: (bl.Y - tl.Y) / span}
	shift := func(p Point, su, sv float64) Point {
		return Point{
			X: p.X + finderHalf*(su*u.X+sv*v.X),
			Y: p.Y + finderHalf*(su*u.Y+sv*v.Y),
		}
	}

	return Corners{
		TopLeft:     shift(tl, -1, -1),
		TopRight:    shift(tr, 1, -1),
		BottomRight: shift(br, 1, 1),
		BottomLeft:  shift(bl, -1, 1),
	}
}
