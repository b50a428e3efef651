package export

import (
	"bufio"
	"encoding/json"
	"io"
	"math"

	"glider-ng/internal/dbd"
)

type jsonRecord struct {
	Timestamp *float64               `json:"timestamp"`
	Origin    dbd.Origin             `json:"origin"`
	Readings  map[string]dbd.Reading `json:"readings"`
}

// JSONLinesWriter writes one JSON object per row. With parameters set only
// those readings are included.
type JSONLinesWriter struct {
	bw   *bufio.Writer
	enc  *json.Encoder
	opts Options
}

func NewJSONLinesWriter(w io.Writer, opts Options) *JSONLinesWriter {
	bw := bufio.NewWriter(w)
	return &JSONLinesWriter{bw: bw, enc: json.NewEncoder(bw), opts: opts.withDefaults()}
}

func (j *JSONLinesWriter) Write(row dbd.MergedRow) (bool, error) {
	if !j.opts.selected(row.Row) {
		return false, nil
	}

	rec := jsonRecord{Origin: row.Origin, Readings: make(map[string]dbd.Reading, len(row.Row))}
	if !math.IsNaN(row.Timestamp) {
		ts := row.Timestamp
		rec.Timestamp = &ts
	}
	for k, v := range row.Row {
		if k == dbd.TimestampKey || !j.keep(k) {
			continue
		}
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			// Not representable in JSON.
			continue
		}
		rec.Readings[k] = v
	}
	if err := j.enc.Encode(rec); err != nil {
		return false, err
	}
	return true, nil
}

func (j *JSONLinesWriter) keep(key string) bool {
	if len(j.opts.Parameters) == 0 {
		return true
	}
	for _, p := range j.opts.Parameters {
		if p == key {
			return true
		}
	}
	return false
}

func (j *JSONLinesWriter) Flush() error {
	return j.bw.Flush()
}
