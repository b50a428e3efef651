package dbd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertCoordinate_Canonical(t *testing.T) {
	assert.Equal(t, -83.50945, ConvertCoordinate(-8330.567))
}

func TestConvertCoordinate(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero is no fix", 0, NoFix},
		{"north latitude", 4807.038, 48 + 7.038/60},
		{"east longitude integer minutes", 1131, 11 + 31.0/60},
		{"three digit degrees", 12000, 120},
		{"whole number after formatting", 8330.0, 83.5},
		{"negative below one degree", -30.5, -(30.5 / 60)},
		// The no-fix bound applies to the degree part (|v| >= 18100), not to
		// |v| >= 181: the latter would reject every real coordinate, including
		// -8330.567 above.
		{"small value is five degrees", 500, 5},
		{"degree bound", 18100, NoFix},
		{"degree bound negative", -18130.25, NoFix},
		{"largest valid degree", 18059.9, 180 + 59.9/60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ConvertCoordinate(tt.in), 1e-12)
		})
	}
}

func TestDecimalDegrees_NoFix(t *testing.T) {
	for _, v := range []float64{0, math.NaN(), math.Inf(1), 20000} {
		_, ok := DecimalDegrees(v)
		assert.False(t, ok, "value %v", v)
	}
}

func TestDecimalDegrees_SignAppliedOnce(t *testing.T) {
	pos, ok := DecimalDegrees(2730.5)
	assert.True(t, ok)
	neg, ok := DecimalDegrees(-2730.5)
	assert.True(t, ok)
	assert.Equal(t, -pos, neg)
	assert.InDelta(t, 27.508333333, pos, 1e-9)
}
