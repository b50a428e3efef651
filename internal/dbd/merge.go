package dbd

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
)

// DefaultTolerance is the merge window, in seconds, used when none is given.
const DefaultTolerance = 1.0

// Origin tells which source streams contributed to a merged row.
type Origin int

const (
	OriginFlight Origin = iota + 1
	OriginScience
	OriginBoth
)

func (o Origin) String() string {
	switch o {
	case OriginFlight:
		return "flight"
	case OriginScience:
		return "science"
	case OriginBoth:
		return "both"
	default:
		return "unknown"
	}
}

func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// MergedRow is one output row of a Merger.
type MergedRow struct {
	// Row holds the source readings plus a TimestampKey entry copied from the
	// chosen source timestamp.
	Row       Row
	Timestamp float64
	Origin    Origin
}

type mergeState int

const (
	stateInitial mergeState = iota
	stateBothLive
	stateFlightOnly
	stateScienceOnly
	stateDone
	stateFailed
)

func (s mergeState) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateBothLive:
		return "both_live"
	case stateFlightOnly:
		return "flight_only"
	case stateScienceOnly:
		return "science_only"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// stateFor derives the state from which cursors still hold a row.
func stateFor(flightLive, scienceLive bool) mergeState {
	switch {
	case flightLive && scienceLive:
		return stateBothLive
	case flightLive:
		return stateFlightOnly
	case scienceLive:
		return stateScienceOnly
	default:
		return stateDone
	}
}

type action int

const (
	actionMerge action = iota
	actionTakeScience
	actionTakeFlight
)

// decide picks the step for two live rows. Rows within tolerance are merged;
// otherwise the stream that is behind goes first.
func decide(flightTime, scienceTime, tolerance float64) action {
	switch {
	case math.Abs(flightTime-scienceTime) <= tolerance:
		return actionMerge
	case flightTime > scienceTime:
		return actionTakeScience
	default:
		return actionTakeFlight
	}
}

// Merger interleaves a flight and a science row stream by time.
//
// A Merger is not safe for concurrent use.
type Merger struct {
	flight  RowSource
	science RowSource

	tolerance  float64
	flightKey  string
	scienceKey string
	obs        Observer

	state       mergeState
	flightRow   Row
	scienceRow  Row
	needFlight  bool
	needScience bool
	err         error
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithTolerance sets the window, in seconds, under which two rows are merged.
func WithTolerance(seconds float64) MergerOption {
	return func(m *Merger) { m.tolerance = seconds }
}

// WithTimeKeys overrides the row keys holding each stream's timestamp.
func WithTimeKeys(flightKey, scienceKey string) MergerOption {
	return func(m *Merger) {
		if flightKey != "" {
			m.flightKey = flightKey
		}
		if scienceKey != "" {
			m.scienceKey = scienceKey
		}
	}
}

// WithMergeObserver reports the origin of every emitted row to obs.
func WithMergeObserver(obs Observer) MergerOption {
	return func(m *Merger) {
		if obs != nil {
			m.obs = obs
		}
	}
}

// NewMerger returns a Merger over flight and science. Neither source is read
// until the first call to Next.
func NewMerger(flight, science RowSource, opts ...MergerOption) (*Merger, error) {
	if flight == nil || science == nil {
		return nil, errors.New("merger needs both a flight and a science source")
	}
	m := &Merger{
		flight:     flight,
		science:    science,
		tolerance:  DefaultTolerance,
		flightKey:  FlightTimeKey,
		scienceKey: ScienceTimeKey,
		obs:        nopObserver{},
		state:      stateInitial,
	}
	// Both cursors are primed by the first Next.
	m.needFlight, m.needScience = true, true
	for _, opt := range opts {
		opt(m)
	}
	if m.tolerance < 0 || math.IsNaN(m.tolerance) {
		return nil, fmt.Errorf("merge tolerance must be >= 0, got %v", m.tolerance)
	}
	return m, nil
}

// Tolerance returns the merge window in seconds.
func (m *Merger) Tolerance() float64 { return m.tolerance }

// Next returns the next merged row, or io.EOF once both sources are
// exhausted. A cursor consumed by the previous row is refilled here, so a
// source error surfaces on the call after the last good row. After an error
// every later call returns the same error.
func (m *Merger) Next() (MergedRow, error) {
	switch m.state {
	case stateFailed:
		return MergedRow{}, m.err
	case stateDone:
		return MergedRow{}, io.EOF
	}

	if m.needFlight {
		if err := m.pullFlight(); err != nil {
			return MergedRow{}, m.fail(err)
		}
	}
	if m.needScience {
		if err := m.pullScience(); err != nil {
			return MergedRow{}, m.fail(err)
		}
	}
	m.state = stateFor(m.flightRow != nil, m.scienceRow != nil)

	var out MergedRow
	switch m.state {
	case stateDone:
		return MergedRow{}, io.EOF
	case stateFlightOnly:
		out = m.takeFlight()
	case stateScienceOnly:
		out = m.takeScience()
	case stateBothLive:
		flightTime, ok := m.flightRow.Value(m.flightKey)
		if !ok {
			return MergedRow{}, m.missingTimestamp("flight", m.flightKey)
		}
		scienceTime, ok := m.scienceRow.Value(m.scienceKey)
		if !ok {
			return MergedRow{}, m.missingTimestamp("science", m.scienceKey)
		}

		switch decide(flightTime, scienceTime, m.tolerance) {
		case actionMerge:
			out = m.union(flightTime)
		case actionTakeScience:
			out = m.takeScience()
		case actionTakeFlight:
			out = m.takeFlight()
		}
	}

	m.obs.ObserveMerge(out.Origin)
	return out, nil
}

// All ranges over the remaining merged rows. Iteration stops after the first
// error.
func (m *Merger) All() iter.Seq2[MergedRow, error] {
	return func(yield func(MergedRow, error) bool) {
		for {
			row, err := m.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// Fields returns the flight descriptors followed by the science ones, for
// sources that expose them (such as *Reader). Other sources contribute none.
func (m *Merger) Fields() []Field {
	var out []Field
	for _, src := range []RowSource{m.flight, m.science} {
		if fs, ok := src.(interface{ Fields() []Field }); ok {
			out = append(out, fs.Fields()...)
		}
	}
	return out
}

// missingTimestamp fails the merge. Source errors are reported by the
// sources themselves; this one originates here.
func (m *Merger) missingTimestamp(stream, key string) error {
	err := &ParseError{Kind: ErrMissingTimestamp, Stream: stream, Token: key}
	m.obs.ObserveError(stream, err)
	return m.fail(err)
}

func (m *Merger) fail(err error) error {
	m.state = stateFailed
	m.err = err
	m.flightRow = nil
	m.scienceRow = nil
	return err
}

func (m *Merger) pullFlight() error {
	row, err := pull(m.flight)
	m.flightRow = row
	m.needFlight = false
	return err
}

func (m *Merger) pullScience() error {
	row, err := pull(m.science)
	m.scienceRow = row
	m.needScience = false
	return err
}

func (m *Merger) takeFlight() MergedRow {
	out := Timestamped(m.flightRow, m.flightKey, OriginFlight)
	m.flightRow = nil
	m.needFlight = true
	return out
}

func (m *Merger) takeScience() MergedRow {
	out := Timestamped(m.scienceRow, m.scienceKey, OriginScience)
	m.scienceRow = nil
	m.needScience = true
	return out
}

// pull returns a nil row once src is exhausted.
func pull(src RowSource) (Row, error) {
	row, err := src.Next()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = Row{}
	}
	return row, nil
}

// Timestamped wraps a single-source row, copying the reading under key to
// TimestampKey. A row without key gets a NaN Timestamp and no derived entry.
func Timestamped(row Row, key string, origin Origin) MergedRow {
	out := MergedRow{Row: row, Timestamp: math.NaN(), Origin: origin}
	if ts, ok := row[key]; ok {
		row[TimestampKey] = ts
		out.Timestamp = ts.Value
	}
	return out
}

// union combines both current rows; science readings win on key collision.
func (m *Merger) union(flightTime float64) MergedRow {
	row := make(Row, len(m.flightRow)+len(m.scienceRow)+1)
	for k, v := range m.flightRow {
		row[k] = v
	}
	for k, v := range m.scienceRow {
		row[k] = v
	}
	row[TimestampKey] = m.flightRow[m.flightKey]

	m.flightRow, m.scienceRow = nil, nil
	m.needFlight, m.needScience = true, true
	return MergedRow{Row: row, Timestamp: flightTime, Origin: OriginBoth}
}
