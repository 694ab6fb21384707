package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testAsset(t *testing.T, slot model.Slot, w, h int) *model.ImageAsset {
	t.Helper()
	data := pngBytes(t, w, h)
	return model.NewImageAsset(model.AssetParams{
		ID:         string(slot) + "-asset",
		Slot:       slot,
		Filename:   string(slot) + ".png",
		MIMEType:   "image/png",
		Dimensions: model.Dimensions{Width: w, Height: h},
		Preview:    model.PreviewRef(string(slot) + "-preview"),
		Data:       data,
	})
}

func detailsOf(statuses ...model.PitStatus) []model.PitDetail {
	details := make([]model.PitDetail, len(statuses))
	for i, s := range statuses {
		details[i] = model.PitDetail{
			ID:         model.IndexPitID(i + 1),
			X:          float64(10 * (i + 1)),
			Y:          float64(5 * (i + 1)),
			Status:     s,
			Confidence: 0.6,
		}
	}
	return details
}

var testUploadConfig = config.Default().Upload

func newTestRenderer() *OverlayRenderer {
	return NewOverlayRenderer(&config.Default().Overlay)
}

func mustBlend(t *testing.T, v float64) Blend {
	t.Helper()
	b, err := NewBlend(v)
	require.NoError(t, err)
	return b
}
