package dbd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeFields() []Field {
	return []Field{
		{Name: "m_present_time", Units: "timestamp"},
		{Name: "m_depth", Units: "m"},
		{Name: "m_pitch", Units: "rad"},
	}
}

func TestMapLine_SkipsNaN(t *testing.T) {
	row, err := MapLine("1.0 NaN 2.5", threeFields())
	require.NoError(t, err)

	assert.Len(t, row, 2)
	assert.Equal(t, Reading{Name: "m_present_time", Units: "timestamp", Value: 1}, row["m_present_time-timestamp"])
	assert.Equal(t, Reading{Name: "m_pitch", Units: "rad", Value: 2.5}, row["m_pitch-rad"])
	assert.NotContains(t, row, "m_depth-m")
}

func TestMapLine_TrailingWhitespace(t *testing.T) {
	row, err := MapLine("1 2 3 \r\n", threeFields())
	require.NoError(t, err)
	assert.Len(t, row, 3)
}

func TestMapLine_ExtraColumnsIgnored(t *testing.T) {
	row, err := MapLine("1 2 3 4 5", threeFields())
	require.NoError(t, err)
	assert.Len(t, row, 3)
}

func TestMapLine_AllNaN(t *testing.T) {
	row, err := MapLine("NaN NaN NaN", threeFields())
	require.NoError(t, err)
	assert.NotNil(t, row)
	assert.Empty(t, row)
}

func TestMapLine_Malformed(t *testing.T) {
	_, err := MapLine("1 abc 3", threeFields())
	require.ErrorIs(t, err, ErrMalformedValue)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Column)
	assert.Equal(t, "abc", pe.Token)
}

func TestMapLine_ConvertsPositions(t *testing.T) {
	fields := []Field{
		{Name: "m_present_time", Units: "timestamp"},
		{Name: "m_gps_lat", Units: "lat", Position: true},
		{Name: "m_gps_lon", Units: "lon", Position: true},
	}
	row, err := MapLine("100 2730.5 0", fields)
	require.NoError(t, err)
	assert.InDelta(t, 27.508333333, row["m_gps_lat-lat"].Value, 1e-9)
	assert.Equal(t, NoFix, row["m_gps_lon-lon"].Value)
}

func TestRow_Value(t *testing.T) {
	row := Row{"a-b": {Name: "a", Units: "b", Value: 3}}
	v, ok := row.Value("a-b")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = row.Value("missing")
	assert.False(t, ok)
}
