// Package export writes decoded glider rows as CSV or JSON lines.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"glider-ng/internal/dbd"
)

// Missing is written for a selected column the row has no reading for.
const Missing = "NaN"

// Options select what gets written.
type Options struct {
	// TimestampField is the first CSV column. Defaults to dbd.TimestampKey.
	TimestampField string
	// Parameters are row keys (name-units) to export.
	Parameters []string
	// AllRows writes every row; otherwise only rows carrying at least one
	// parameter are written. Without parameters every row is written.
	AllRows bool
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.TimestampField) == "" {
		o.TimestampField = dbd.TimestampKey
	}
	return o
}

// selected reports whether row passes the parameter filter.
func (o Options) selected(row dbd.Row) bool {
	if o.AllRows || len(o.Parameters) == 0 {
		return true
	}
	for _, p := range o.Parameters {
		if _, ok := row[p]; ok {
			return true
		}
	}
	return false
}

// Writer is implemented by every output format.
type Writer interface {
	// Write outputs row if it passes the filter and reports whether it did.
	Write(row dbd.MergedRow) (bool, error)
	Flush() error
}

type Format string

const (
	FormatCSV       Format = "csv"
	FormatJSONLines Format = "jsonl"
)

// New returns a Writer for format.
func New(format Format, w io.Writer, opts Options) (Writer, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVWriter(w, opts), nil
	case FormatJSONLines:
		return NewJSONLinesWriter(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Copy writes every row of src to w and flushes it. It returns the number of
// rows written.
func Copy(w Writer, src func() (dbd.MergedRow, error)) (int, error) {
	n := 0
	for {
		row, err := src()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = w.Flush()
			return n, err
		}
		ok, err := w.Write(row)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, w.Flush()
}
