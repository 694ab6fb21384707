package model

import (
	"fmt"
	"time"
)

// Slot identifies one of the two image inputs.
type Slot string

const (
	SlotOP1 Slot = "op1" // before planting, pits visible
	SlotOP3 Slot = "op3" // later survey
)

// Slots lists the slots in submission order.
var Slots = []Slot{SlotOP1, SlotOP3}

// ParseSlot validates a slot identifier.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotOP1, SlotOP3:
		return Slot(s), nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown image slot %q, expected op1 or op3", s))
}

// FormField is the multipart field name the analysis service expects for the slot.
func (s Slot) FormField() string {
	return string(s) + "_image"
}

// PreviewRef is a session-scoped handle to the stored preview bytes of an asset.
type PreviewRef string

// ImageAsset is one uploaded image. It is never mutated after creation;
// selecting a new file for a slot creates a new asset.
type ImageAsset struct {
	ID         string     `json:"id"`
	Slot       Slot       `json:"slot"`
	Filename   string     `json:"filename"`
	MIMEType   string     `json:"mime_type"`
	Size       int64      `json:"size"`
	Dimensions Dimensions `json:"dimensions"`
	Preview    PreviewRef `json:"-"`
	Digest     string     `json:"digest"`
	LoadedAt   time.Time  `json:"loaded_at"`

	data []byte
}

// AssetParams carries everything needed to build an ImageAsset.
type AssetParams struct {
	ID         string
	Slot       Slot
	Filename   string
	MIMEType   string
	Dimensions Dimensions
	Preview    PreviewRef
	Digest     string
	Data       []byte
}

func NewImageAsset(p AssetParams) *ImageAsset {
	return &ImageAsset{
		ID:         p.ID,
		Slot:       p.Slot,
		Filename:   p.Filename,
		MIMEType:   p.MIMEType,
		Size:       int64(len(p.Data)),
		Dimensions: p.Dimensions,
		Preview:    p.Preview,
		Digest:     p.Digest,
		LoadedAt:   time.Now(),
		data:       p.Data,
	}
}

// Bytes returns the raw image. Callers must not modify the returned slice.
func (a *ImageAsset) Bytes() []byte {
	return a.data
}
