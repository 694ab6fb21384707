package service

import (
	"testing"

	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDisplayFlipsVerticalAxis(t *testing.T) {
	dims := model.Dimensions{Width: 2000, Height: 1000}

	got, err := ToDisplay(model.PixelPoint{X: 100, Y: 200}, dims)
	require.NoError(t, err)
	assert.Equal(t, model.DisplayPoint{X: 100, Y: 800}, got)
	assert.Equal(t, [2]float64{800, 100}, got.LatLng())
}

func TestToDisplayRoundTrip(t *testing.T) {
	dims := model.Dimensions{Width: 640, Height: 480}

	for y := 0.0; y <= 480; y += 37.5 {
		for x := 0.0; x <= 640; x += 53.25 {
			p := model.PixelPoint{X: x, Y: y}
			d, err := ToDisplay(p, dims)
			require.NoError(t, err)
			assert.Equal(t, x, d.X)
			assert.Equal(t, y, float64(dims.Height)-d.Y)
			assert.Equal(t, p, ToPixel(d, dims))
		}
	}
}

func TestToDisplayCorners(t *testing.T) {
	dims := model.Dimensions{Width: 300, Height: 200}

	topLeft, err := ToDisplay(model.PixelPoint{X: 0, Y: 0}, dims)
	require.NoError(t, err)
	assert.Equal(t, model.DisplayPoint{X: 0, Y: 200}, topLeft)

	bottomRight, err := ToDisplay(model.PixelPoint{X: 300, Y: 200}, dims)
	require.NoError(t, err)
	assert.Equal(t, model.DisplayPoint{X: 300, Y: 0}, bottomRight)
}

func TestTransformDeferredUntilDimensionsKnown(t *testing.T) {
	for _, dims := range []model.Dimensions{{}, {Width: 10}, {Height: 10}} {
		_, err := ToDisplay(model.PixelPoint{X: 1, Y: 1}, dims)
		assert.ErrorIs(t, err, ErrDimensionsUnresolved)

		_, err = LayerBounds(dims)
		assert.ErrorIs(t, err, ErrDimensionsUnresolved)
	}
}

func TestLayerBounds(t *testing.T) {
	b, err := LayerBounds(model.Dimensions{Width: 2000, Height: 1000})
	require.NoError(t, err)
	assert.Equal(t, model.Bounds{{0, 0}, {1000, 2000}}, b)
}
