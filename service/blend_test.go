package service

import (
	"testing"

	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlendOpacityIsSliderOverHundred(t *testing.T) {
	prev := -1.0
	for v := 0; v <= 100; v++ {
		b, err := NewBlend(float64(v))
		require.NoError(t, err)
		assert.InDelta(t, float64(v)/100, b.Opacity(), 1e-12)
		assert.Greater(t, b.Opacity(), prev)
		prev = b.Opacity()
	}
}

func TestParseBlend(t *testing.T) {
	b, err := ParseBlend("", 50)
	require.NoError(t, err)
	assert.Equal(t, 0.5, b.Opacity())

	b, err = ParseBlend(" 75.5 ", 50)
	require.NoError(t, err)
	assert.Equal(t, 75.5, b.Value())

	for _, bad := range []string{"-1", "100.1", "abc", "NaN"} {
		_, err := ParseBlend(bad, 50)
		var wfErr *model.WorkflowError
		require.ErrorAs(t, err, &wfErr, bad)
		assert.Equal(t, model.ErrValidation, wfErr.Kind)
	}
}
