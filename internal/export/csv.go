package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"glider-ng/internal/dbd"
)

// CSVWriter writes one column for the timestamp field and one per parameter.
type CSVWriter struct {
	w           *csv.Writer
	opts        Options
	columns     []string
	wroteHeader bool
}

func NewCSVWriter(w io.Writer, opts Options) *CSVWriter {
	opts = opts.withDefaults()
	cols := make([]string, 0, len(opts.Parameters)+1)
	cols = append(cols, opts.TimestampField)
	cols = append(cols, opts.Parameters...)
	return &CSVWriter{w: csv.NewWriter(w), opts: opts, columns: cols}
}

func (c *CSVWriter) Write(row dbd.MergedRow) (bool, error) {
	if !c.wroteHeader {
		if err := c.w.Write(c.columns); err != nil {
			return false, err
		}
		c.wroteHeader = true
	}
	if !c.opts.selected(row.Row) {
		return false, nil
	}

	rec := make([]string, len(c.columns))
	for i, key := range c.columns {
		rd, ok := row.Row[key]
		if !ok {
			rec[i] = Missing
			continue
		}
		rec[i] = strconv.FormatFloat(rd.Value, 'f', -1, 64)
	}
	if err := c.w.Write(rec); err != nil {
		return false, err
	}
	return true, nil
}

// Flush writes the header even when no row was written.
func (c *CSVWriter) Flush() error {
	if !c.wroteHeader {
		if err := c.w.Write(c.columns); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	c.w.Flush()
	return c.w.Error()
}
