package dbd

import (
	"strconv"
	"strings"
)

// missingToken marks a column without a value in a data line.
const missingToken = "NaN"

// Reading is one decoded sensor value.
type Reading struct {
	Name  string  `json:"name"`
	Units string  `json:"units"`
	Value float64 `json:"value"`
}

// Row maps Field.Key() to the reading of that column. Columns whose token was
// NaN have no entry.
type Row map[string]Reading

// Value returns the value stored under key.
func (r Row) Value(key string) (float64, bool) {
	rd, ok := r[key]
	return rd.Value, ok
}

// MapLine decodes one data line against fields. Tokens past the last
// descriptor are ignored.
func MapLine(line string, fields []Field) (Row, error) {
	row, _, err := mapLine(line, fields)
	return row, err
}

// mapLine also reports the number of NaN tokens skipped.
func mapLine(line string, fields []Field) (Row, int, error) {
	line = strings.TrimRight(line, " \t\r\n")
	tokens := strings.Split(line, " ")

	row := make(Row, len(fields))
	skipped := 0
	for i, tok := range tokens {
		if tok == missingToken {
			skipped++
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, skipped, &ParseError{Kind: ErrMalformedValue, Column: i, Token: tok, Err: err}
		}
		if i >= len(fields) {
			continue
		}
		f := fields[i]
		if f.Position {
			v = ConvertCoordinate(v)
		}
		row[f.Key()] = Reading{Name: f.Name, Units: f.Units, Value: v}
	}
	return row, skipped, nil
}
