package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AnalysisStatus is the overall status reported by the analysis service.
type AnalysisStatus string

const (
	StatusSuccess      AnalysisStatus = "success"
	StatusPartialError AnalysisStatus = "partial_error"
)

// PitStatus is the classification of a single pit.
type PitStatus string

const (
	PitAlive PitStatus = "alive"
	PitDead  PitStatus = "dead"
)

// PitID accepts either a JSON number or a JSON string.
type PitID string

func (id *PitID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = PitID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("pit id must be a number or string, got %s", b)
	}
	*id = PitID(n.String())
	return nil
}

// IndexPitID is the identifier used for details the service sent without one.
func IndexPitID(index int) PitID {
	return PitID(strconv.Itoa(index))
}

// PitDetail is one detection, in OP1 pixel space.
type PitDetail struct {
	ID         PitID     `json:"id"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Status     PitStatus `json:"status"`
	Confidence float64   `json:"confidence"`
}

// Pixel returns the detection position in OP1 pixel space.
func (d PitDetail) Pixel() PixelPoint {
	return PixelPoint{X: d.X, Y: d.Y}
}

// AnalysisResult is a validated response from the analysis service.
// It is replaced wholesale by the next request and never patched.
type AnalysisResult struct {
	Status         AnalysisStatus `json:"status"`
	Message        string         `json:"message,omitempty"`
	Registration   string         `json:"registration,omitempty"`
	SurvivalRate   float64        `json:"survival_rate"`
	TotalPits      int            `json:"total_pits"`
	DeadCount      int            `json:"dead_count"`
	ProcessingTime float64        `json:"processing_time,omitempty"`
	Details        []PitDetail    `json:"details"`
}

// Partial reports whether the service flagged the run as partially failed.
func (r *AnalysisResult) Partial() bool {
	return r.Status == StatusPartialError
}

// Summary is the headline numbers of a result.
type Summary struct {
	SurvivalRate   string  `json:"survival_rate"`
	TotalPits      int     `json:"total_pits"`
	Casualties     int     `json:"casualties"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Registration   string  `json:"registration,omitempty"`
}

func (r *AnalysisResult) Summary() Summary {
	return Summary{
		SurvivalRate:   strconv.FormatFloat(r.SurvivalRate, 'f', 1, 64) + "%",
		TotalPits:      r.TotalPits,
		Casualties:     r.DeadCount,
		ProcessingTime: r.ProcessingTime,
		Registration:   r.Registration,
	}
}
