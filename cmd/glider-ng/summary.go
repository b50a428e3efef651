package main

import (
	"math"

	"glider-ng/internal/dbd"
)

// runSummary accumulates what was exported, for the final log line.
type runSummary struct {
	Rows    int
	Both    int
	Flight  int
	Science int

	First   float64
	Last    float64
	MaxGap  float64
	haveTS  bool
	Reorder int
}

func (s *runSummary) add(row dbd.MergedRow) {
	s.Rows++
	switch row.Origin {
	case dbd.OriginBoth:
		s.Both++
	case dbd.OriginFlight:
		s.Flight++
	case dbd.OriginScience:
		s.Science++
	}

	ts := row.Timestamp
	if math.IsNaN(ts) {
		return
	}
	if !s.haveTS {
		s.First, s.Last, s.haveTS = ts, ts, true
		return
	}
	gap := ts - s.Last
	if gap < 0 {
		// Inputs are not checked for monotonic time; count what slipped through.
		s.Reorder++
	} else if gap > s.MaxGap {
		s.MaxGap = gap
	}
	s.Last = ts
}

func (s runSummary) attrs() []any {
	out := []any{
		"rows", s.Rows,
		"merged", s.Both,
		"flight_only", s.Flight,
		"science_only", s.Science,
	}
	if s.haveTS {
		out = append(out, "first_ts", s.First, "last_ts", s.Last, "max_gap_s", s.MaxGap)
	}
	if s.Reorder > 0 {
		out = append(out, "out_of_order", s.Reorder)
	}
	return out
}
