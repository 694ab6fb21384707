package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var ErrCompositorBusy = errors.New("snapshot queue is full, please retry later")

// Compositor draws a Scene into a PNG: OP3 alpha-blended over OP1 at the
// layer opacity, then the markers.
type Compositor struct {
	semaphore    chan struct{}
	queueTimeout time.Duration
	maxDimension int
}

func NewCompositor(cfg *config.SnapshotConfig) *Compositor {
	return &Compositor{
		semaphore:    make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout: cfg.QueueTimeout,
		maxDimension: cfg.MaxDimension,
	}
}

// Snapshot renders scene using the image bytes of op1 and op3.
func (c *Compositor) Snapshot(ctx context.Context, scene *model.Scene, op1, op3 *model.ImageAsset) ([]byte, error) {
	if scene == nil || op1 == nil {
		return nil, ErrDimensionsUnresolved
	}

	qctx, cancel := context.WithTimeout(ctx, c.queueTimeout)
	defer cancel()
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-qctx.Done():
		return nil, ErrCompositorBusy
	}

	start := time.Now()

	base, err := gocv.IMDecode(op1.Bytes(), gocv.IMReadColor)
	if err != nil || base.Empty() {
		return nil, fmt.Errorf("failed to decode op1 image: %v", err)
	}
	defer base.Close()

	if base.Cols() != scene.Dimensions.Width || base.Rows() != scene.Dimensions.Height {
		return nil, fmt.Errorf("op1 is %dx%d, scene expects %dx%d",
			base.Cols(), base.Rows(), scene.Dimensions.Width, scene.Dimensions.Height)
	}

	out := base.Clone()
	defer out.Close()

	if layer, ok := scene.Layer(model.SlotOP3); ok && op3 != nil && layer.Opacity > 0 {
		if err := c.blendLayer(&out, op3, layer.Opacity); err != nil {
			return nil, err
		}
	}

	c.drawMarkers(&out, scene)

	scale := 1.0
	if maxDim := max(out.Cols(), out.Rows()); c.maxDimension > 0 && maxDim > c.maxDimension {
		scale = float64(c.maxDimension) / float64(maxDim)
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(out, &resized, image.Point{
			X: int(float64(out.Cols()) * scale),
			Y: int(float64(out.Rows()) * scale),
		}, 0, 0, gocv.InterpolationArea)
		resized.CopyTo(&out)
	}

	buf, err := gocv.IMEncode(".png", out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	defer buf.Close()
	data := append([]byte(nil), buf.GetBytes()...)

	counts := CountByStatus(scene.Markers)
	utils.Logger.Info("overlay snapshot rendered",
		zap.Int("alive", counts[model.PitAlive]),
		zap.Int("dead", counts[model.PitDead]),
		zap.Float64("blend", scene.Blend),
		zap.Float64("scale", scale),
		zap.Duration("duration", time.Since(start)))

	return data, nil
}

// blendLayer stretches op3 over the OP1 frame, as both layers share one
// bounding box, and mixes it in at opacity.
func (c *Compositor) blendLayer(dst *gocv.Mat, op3 *model.ImageAsset, opacity float64) error {
	top, err := gocv.IMDecode(op3.Bytes(), gocv.IMReadColor)
	if err != nil || top.Empty() {
		return fmt.Errorf("failed to decode op3 image: %v", err)
	}
	defer top.Close()

	aligned := top
	if top.Cols() != dst.Cols() || top.Rows() != dst.Rows() {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(top, &resized, image.Point{X: dst.Cols(), Y: dst.Rows()}, 0, 0, gocv.InterpolationLinear)
		aligned = resized
	}

	mixed := gocv.NewMat()
	defer mixed.Close()
	gocv.AddWeighted(*dst, 1-opacity, aligned, opacity, 0, &mixed)
	mixed.CopyTo(dst)
	return nil
}

// drawMarkers fills every marker at its fill opacity, then strokes the outlines.
func (c *Compositor) drawMarkers(dst *gocv.Mat, scene *model.Scene) {
	if len(scene.Markers) == 0 {
		return
	}

	// Marker radii are in screen pixels; scale them so they stay visible on
	// large orthomosaics.
	k := math.Max(1, float64(max(dst.Cols(), dst.Rows()))/1000)

	fills := dst.Clone()
	defer fills.Close()

	fillOpacity := scene.Markers[0].FillOpacity
	for _, m := range scene.Markers {
		center, radius, col := markerGeometry(m, scene.Dimensions, k)
		gocv.Circle(&fills, center, radius, col, -1)
	}

	mixed := gocv.NewMat()
	defer mixed.Close()
	gocv.AddWeighted(fills, fillOpacity, *dst, 1-fillOpacity, 0, &mixed)
	mixed.CopyTo(dst)

	for _, m := range scene.Markers {
		center, radius, col := markerGeometry(m, scene.Dimensions, k)
		gocv.Circle(dst, center, radius, col, max(1, int(k)))
	}
}

func markerGeometry(m model.Marker, dims model.Dimensions, k float64) (image.Point, int, color.RGBA) {
	p := ToPixel(m.Display, dims)
	center := image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
	radius := max(1, int(math.Round(m.Radius*k)))
	col, err := ParseHexColor(m.Color)
	if err != nil {
		col = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return center, radius, col
}

// ParseHexColor parses "#rrggbb" or "#rgb".
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
