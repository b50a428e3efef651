package dbd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flightHeader = `dbd_label: DBD_ASC(dinkum_binary_data_ascii)file
encoding_ver: 2
num_ascii_tags: 14
all_sensors: 0
filename: usf-bass-2014-061-1-0
the8x3_filename: 01230000
sensors_per_cycle: 4
num_label_lines: 3
segment_filename_0: usf-bass-2014-061-1-0
m_present_time m_lat m_lon m_depth
timestamp lat lon m
8 8 8 4
`

func TestParseHeader(t *testing.T) {
	src := NewStringSource(flightHeader + "1 2 3 4\n")
	fields, err := ParseHeader(src)
	require.NoError(t, err)

	want := []Field{
		{Name: "m_present_time", Units: "timestamp"},
		{Name: "m_lat", Units: "lat", Position: true},
		{Name: "m_lon", Units: "lon", Position: true},
		{Name: "m_depth", Units: "m"},
	}
	assert.Equal(t, want, fields)

	// The source is left at the first data line.
	line, err := src.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "1 2 3 4", line)
}

func TestParseHeader_ScienceHeaderMatches(t *testing.T) {
	src := NewStringSource("junk\nsci_m_present_time sci_water_temp\ntimestamp degc\n8 4\n")
	fields, err := ParseHeader(src)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, ScienceTimeKey, fields[0].Key())
	assert.Equal(t, "sci_water_temp-degc", fields[1].Key())
}

func TestParseHeader_NoHeader(t *testing.T) {
	_, err := ParseHeader(NewStringSource("a\nb\nc\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHeaderFound))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestParseHeader_NoUnits(t *testing.T) {
	_, err := ParseHeader(NewStringSource("m_present_time m_depth\n"))
	assert.ErrorIs(t, err, ErrNoUnitsFound)
}

func TestParseHeader_MissingByteLineIsNotAnError(t *testing.T) {
	fields, err := ParseHeader(NewStringSource("m_present_time m_depth\ntimestamp m\n"))
	require.NoError(t, err)
	assert.Len(t, fields, 2)
}

func TestParseHeader_ShorterUnitsLineTruncates(t *testing.T) {
	fields, err := ParseHeader(NewStringSource("m_present_time m_depth m_roll\ntimestamp m\n1 1 1\n"))
	require.NoError(t, err)
	assert.Len(t, fields, 2)
}

func TestFingerprint(t *testing.T) {
	a := []Field{{Name: "m_present_time", Units: "timestamp"}, {Name: "m_depth", Units: "m"}}
	b := []Field{{Name: "m_depth", Units: "m"}, {Name: "m_present_time", Units: "timestamp"}}
	assert.Equal(t, Fingerprint(a), Fingerprint(append([]Field(nil), a...)))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
