package decoder

// Point is a position in buffer pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Corners is the (possibly irregular) quadrilateral around a located symbol
type Corners struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomRight Point `json:"bottom_right"`
	BottomLeft  Point `json:"bottom_left"`
}

// Path returns the corners in drawing order, starting at the top left and
// going clockwise.
func (c Corners) Path() [4]Point {
	return [4]Point{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// Symbol is a decoded matrix barcode. Payload is never empty.
type Symbol struct {
	Payload string  `json:"payload"`
	Corners Corners `json:"corners"`
}
