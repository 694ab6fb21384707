package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/soumoditt-source/EcoDrone-AI/model"
)

const (
	BlendMin = 0
	BlendMax = 100
)

// Blend is the temporal slider position: 0 shows only OP1, 100 shows OP3 fully.
type Blend struct {
	value float64
}

// NewBlend returns a blend at v, which must lie in [0,100].
func NewBlend(v float64) (Blend, error) {
	if math.IsNaN(v) || v < BlendMin || v > BlendMax {
		return Blend{}, model.NewValidationError(fmt.Sprintf("blend must be between %d and %d", BlendMin, BlendMax))
	}
	return Blend{value: v}, nil
}

// ParseBlend parses a slider value. An empty string yields def.
func ParseBlend(s string, def float64) (Blend, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NewBlend(def)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Blend{}, model.NewValidationError(fmt.Sprintf("blend %q is not a number", s))
	}
	return NewBlend(v)
}

func (b Blend) Value() float64 {
	return b.value
}

// Opacity is the OP3 layer opacity in [0,1].
func (b Blend) Opacity() float64 {
	return b.value / BlendMax
}
