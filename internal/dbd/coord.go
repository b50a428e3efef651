package dbd

import (
	"math"
	"strconv"
	"strings"
)

// NoFix is the value stored for position readings that do not hold a fix.
const NoFix = -1.0

// maxDegrees bounds the degree part of a ddmm.mmm value.
const maxDegrees = 181

// DecimalDegrees converts a glider ddmm.mmm coordinate (for example -8330.567,
// meaning 83°30.567' south or west) to signed decimal degrees.
//
// ok is false for 0 (the vehicle reports no fix) and for values whose degree
// part is 181 or more.
func DecimalDegrees(v float64) (float64, bool) {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	neg := v < 0
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)

	// The last two digits before the decimal point start the minutes.
	intPart := s
	if dot := strings.IndexByte(s, '.'); dot != -1 {
		intPart = s[:dot]
	}
	deg := 0.0
	minText := s
	if len(intPart) > 2 {
		d, err := strconv.ParseFloat(intPart[:len(intPart)-2], 64)
		if err != nil {
			return 0, false
		}
		deg = d
		minText = s[len(intPart)-2:]
	}
	if deg >= maxDegrees {
		return 0, false
	}
	mins, err := strconv.ParseFloat(minText, 64)
	if err != nil {
		return 0, false
	}

	dec := deg + mins/60
	if neg {
		dec = -dec
	}
	return dec, true
}

// ConvertCoordinate is DecimalDegrees with NoFix standing in for a missing fix.
func ConvertCoordinate(v float64) float64 {
	dec, ok := DecimalDegrees(v)
	if !ok {
		return NoFix
	}
	return dec
}
