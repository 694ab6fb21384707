package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
)

const crsSimple = "simple"

// MarkerStyle is the visual encoding of one detection status.
type MarkerStyle struct {
	Color       string
	Radius      float64
	FillOpacity float64
}

// OverlayRenderer composes the base layer, the blended OP3 layer and the
// classified markers into a Scene.
type OverlayRenderer struct {
	alive MarkerStyle
	dead  MarkerStyle
}

func NewOverlayRenderer(cfg *config.OverlayConfig) *OverlayRenderer {
	return &OverlayRenderer{
		alive: MarkerStyle{Color: cfg.AliveColor, Radius: cfg.AliveRadius, FillOpacity: cfg.FillOpacity},
		dead:  MarkerStyle{Color: cfg.DeadColor, Radius: cfg.DeadRadius, FillOpacity: cfg.FillOpacity},
	}
}

// OverlayInput is everything a scene is drawn from.
type OverlayInput struct {
	OP1    *model.ImageAsset
	OP3    *model.ImageAsset
	Result *model.AnalysisResult
	Blend  Blend
	// URL resolves the preview address of a slot's image.
	URL func(model.Slot) string
}

// Style returns the marker encoding for a status. Only status matters;
// confidence never changes size or colour.
func (r *OverlayRenderer) Style(status model.PitStatus) MarkerStyle {
	if status == model.PitAlive {
		return r.alive
	}
	return r.dead
}

// Render builds the scene. It returns ErrDimensionsUnresolved, and nothing
// else, while the OP1 size is unknown.
func (r *OverlayRenderer) Render(in OverlayInput) (*model.Scene, error) {
	if in.OP1 == nil {
		return nil, ErrDimensionsUnresolved
	}
	dims := in.OP1.Dimensions
	bounds, err := LayerBounds(dims)
	if err != nil {
		return nil, err
	}

	url := in.URL
	if url == nil {
		url = func(model.Slot) string { return "" }
	}

	scene := &model.Scene{
		CRS:        crsSimple,
		Dimensions: dims,
		Bounds:     bounds,
		Blend:      in.Blend.Value(),
		Layers: []model.SceneLayer{
			{Slot: model.SlotOP1, URL: url(model.SlotOP1), Bounds: bounds, Opacity: 1},
		},
		Markers: []model.Marker{},
	}
	if in.OP3 != nil {
		scene.Layers = append(scene.Layers, model.SceneLayer{
			Slot: model.SlotOP3, URL: url(model.SlotOP3), Bounds: bounds, Opacity: in.Blend.Opacity(),
		})
	}

	if in.Result == nil {
		return scene, nil
	}

	markers := make([]model.Marker, 0, len(in.Result.Details))
	for _, d := range in.Result.Details {
		m, err := r.marker(d, dims)
		if err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}
	scene.Markers = markers
	return scene, nil
}

func (r *OverlayRenderer) marker(d model.PitDetail, dims model.Dimensions) (model.Marker, error) {
	display, err := ToDisplay(d.Pixel(), dims)
	if err != nil {
		return model.Marker{}, err
	}
	style := r.Style(d.Status)

	return model.Marker{
		ID:          d.ID,
		Status:      d.Status,
		Center:      display.LatLng(),
		Display:     display,
		Radius:      style.Radius,
		Color:       style.Color,
		FillColor:   style.Color,
		FillOpacity: style.FillOpacity,
		Popup:       popupFor(d),
	}, nil
}

func popupFor(d model.PitDetail) model.Popup {
	return model.Popup{
		ID:         d.ID,
		Status:     strings.ToUpper(string(d.Status)),
		Confidence: FormatConfidence(d.Confidence),
		Position:   fmt.Sprintf("%s, %s", formatCoord(d.X), formatCoord(d.Y)),
		Pixel:      d.Pixel(),
	}
}

// FormatConfidence renders a [0,1] score as a percentage with one decimal.
func FormatConfidence(c float64) string {
	return strconv.FormatFloat(c*100, 'f', 1, 64) + "%"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CountByStatus tallies markers per status.
func CountByStatus(markers []model.Marker) map[model.PitStatus]int {
	return lo.CountValuesBy(markers, func(m model.Marker) model.PitStatus {
		return m.Status
	})
}
