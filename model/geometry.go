package model

// Dimensions is the natural pixel size of an image. Zero means not yet resolved.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resolved reports whether both width and height are known.
func (d Dimensions) Resolved() bool {
	return d.Width > 0 && d.Height > 0
}

// PixelPoint is a position in image pixel space: origin top-left, y grows downward.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DisplayPoint is a position on the overlay surface: origin bottom-left, y grows upward.
type DisplayPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LatLng returns the point in [y, x] order, as map surfaces address positions.
func (p DisplayPoint) LatLng() [2]float64 {
	return [2]float64{p.Y, p.X}
}

// Bounds is a [[south, west], [north, east]] box on the overlay surface.
type Bounds [2][2]float64
