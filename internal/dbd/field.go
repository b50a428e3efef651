package dbd

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Name markers of the two timestamp columns and of the derived merge key.
const (
	FlightTimeField  = "m_present_time"
	ScienceTimeField = "sci_m_present_time"
	TimestampKey     = "timestamp"

	FlightTimeKey  = FlightTimeField + "-timestamp"
	ScienceTimeKey = ScienceTimeField + "-timestamp"
)

// Field describes one column of a converted dump.
type Field struct {
	Name  string
	Units string
	// Position marks latitude/longitude columns stored as ddmm.mmm.
	Position bool
}

// Key is the composite row key for readings of this column.
func (f Field) Key() string {
	return f.Name + "-" + f.Units
}

func isPositionName(name string) bool {
	return strings.Contains(name, "lat") || strings.Contains(name, "lon")
}

// ParseHeader advances src past the three-line header block and returns the
// column descriptors in column order.
//
// Lines before the one naming m_present_time are discarded. The line after
// it carries units, and one more line (the converter's byte count) is dropped.
func ParseHeader(src LineSource) ([]Field, error) {
	fields, _, err := parseHeader(src)
	return fields, err
}

// parseHeader also reports how many lines were consumed.
func parseHeader(src LineSource) ([]Field, int, error) {
	consumed := 0
	var names string
	for {
		line, err := src.ReadLine()
		if err != nil {
			if isEOF(err) {
				return nil, consumed, &ParseError{Kind: ErrNoHeaderFound, Line: consumed}
			}
			return nil, consumed, &ParseError{Kind: ErrNoHeaderFound, Line: consumed, Err: err}
		}
		consumed++
		if strings.Contains(line, FlightTimeField) {
			names = line
			break
		}
	}

	units, err := src.ReadLine()
	if err != nil {
		pe := &ParseError{Kind: ErrNoUnitsFound, Line: consumed}
		if !isEOF(err) {
			pe.Err = err
		}
		return nil, consumed, pe
	}
	consumed++

	nameTokens := strings.Fields(names)
	unitTokens := strings.Fields(units)
	n := min(len(nameTokens), len(unitTokens))

	fields := make([]Field, 0, n)
	for i := 0; i < n; i++ {
		fields = append(fields, Field{
			Name:     nameTokens[i],
			Units:    unitTokens[i],
			Position: isPositionName(nameTokens[i]),
		})
	}

	// Byte-count line. A dump without data rows may end here.
	if _, err := src.ReadLine(); err == nil {
		consumed++
	} else if !isEOF(err) {
		return nil, consumed, err
	}

	return fields, consumed, nil
}

// Fingerprint hashes the ordered column keys. Two dumps with the same
// fingerprint share a column layout.
func Fingerprint(fields []Field) uint64 {
	d := xxhash.New()
	for _, f := range fields {
		_, _ = d.WriteString(f.Key())
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
