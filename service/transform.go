package service

import (
	"errors"

	"github.com/soumoditt-source/EcoDrone-AI/model"
)

// ErrDimensionsUnresolved means the OP1 image size is not known yet, so nothing
// that depends on the overlay frame can be placed.
var ErrDimensionsUnresolved = errors.New("image dimensions not resolved")

// ToDisplay maps a pixel-space position onto the overlay surface.
// Image rows grow downward from the top-left; the surface grows upward from
// the bottom-left, so only y is flipped: x' = x, y' = H - y.
func ToDisplay(p model.PixelPoint, dims model.Dimensions) (model.DisplayPoint, error) {
	if !dims.Resolved() {
		return model.DisplayPoint{}, ErrDimensionsUnresolved
	}
	return model.DisplayPoint{X: p.X, Y: float64(dims.Height) - p.Y}, nil
}

// ToPixel is the inverse of ToDisplay.
func ToPixel(d model.DisplayPoint, dims model.Dimensions) model.PixelPoint {
	return model.PixelPoint{X: d.X, Y: float64(dims.Height) - d.Y}
}

// LayerBounds is the box both image layers are stretched over: [[0,0],[H,W]].
func LayerBounds(dims model.Dimensions) (model.Bounds, error) {
	if !dims.Resolved() {
		return model.Bounds{}, ErrDimensionsUnresolved
	}
	return model.Bounds{{0, 0}, {float64(dims.Height), float64(dims.Width)}}, nil
}
