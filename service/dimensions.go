package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/soumoditt-source/EcoDrone-AI/model"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ProbeDimensions reads the natural size from the image header only.
func ProbeDimensions(data []byte) (model.Dimensions, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.Dimensions{}, "", fmt.Errorf("decode image header: %w", err)
	}
	return model.Dimensions{Width: cfg.Width, Height: cfg.Height}, format, nil
}
