package model

// Scene is the overlay to draw: two image layers sharing one bounding box,
// plus one marker per detection.
type Scene struct {
	CRS        string       `json:"crs"`
	Dimensions Dimensions   `json:"dimensions"`
	Bounds     Bounds       `json:"bounds"`
	Blend      float64      `json:"blend"`
	Layers     []SceneLayer `json:"layers"`
	Markers    []Marker     `json:"markers"`
}

// SceneLayer is one image layer of the scene.
type SceneLayer struct {
	Slot    Slot    `json:"slot"`
	URL     string  `json:"url"`
	Bounds  Bounds  `json:"bounds"`
	Opacity float64 `json:"opacity"`
}

// Marker is a classified detection placed on the overlay surface.
type Marker struct {
	ID          PitID        `json:"id"`
	Status      PitStatus    `json:"status"`
	Center      [2]float64   `json:"center"` // [y, x]
	Display     DisplayPoint `json:"display"`
	Radius      float64      `json:"radius"`
	Color       string       `json:"color"`
	FillColor   string       `json:"fill_color"`
	FillOpacity float64      `json:"fill_opacity"`
	Popup       Popup        `json:"popup"`
}

// Popup is the on-demand detail of a marker.
type Popup struct {
	ID         PitID      `json:"id"`
	Status     string     `json:"status"`
	Confidence string     `json:"confidence"`
	Position   string     `json:"position"`
	Pixel      PixelPoint `json:"pixel"`
}

// Layer returns the scene layer for a slot.
func (s *Scene) Layer(slot Slot) (SceneLayer, bool) {
	for _, l := range s.Layers {
		if l.Slot == slot {
			return l, true
		}
	}
	return SceneLayer{}, false
}
