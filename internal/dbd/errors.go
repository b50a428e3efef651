package dbd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoHeaderFound means the source ended before a line naming m_present_time.
	ErrNoHeaderFound = errors.New("no header found before end of stream")
	// ErrNoUnitsFound means the source ended right after the header line.
	ErrNoUnitsFound = errors.New("no units found before end of stream")
	// ErrEndOfStream is the normal termination of the row mapper. Reader turns it into io.EOF.
	ErrEndOfStream = errors.New("end of stream")
	// ErrMalformedValue means a data token was neither NaN nor a number.
	ErrMalformedValue = errors.New("malformed value")
	// ErrMissingTimestamp means a row lacked its source timestamp while both streams were live.
	ErrMissingTimestamp = errors.New("missing timestamp")
)

// ParseError carries the position of a parsing failure. Kind is one of the
// sentinel errors above and matches with errors.Is.
type ParseError struct {
	Kind   error
	Stream string
	Line   int
	Column int
	Token  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Stream != "" {
		b.WriteString(e.Stream)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("parse error")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Token != "" {
		fmt.Fprintf(&b, " column %d %q", e.Column, e.Token)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// ErrorKind returns a short label for the sentinel err wraps, suitable for
// metric labels. Unknown errors report "other".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoHeaderFound):
		return "no_header"
	case errors.Is(err, ErrNoUnitsFound):
		return "no_units"
	case errors.Is(err, ErrEndOfStream):
		return "end_of_stream"
	case errors.Is(err, ErrMalformedValue):
		return "malformed_value"
	case errors.Is(err, ErrMissingTimestamp):
		return "missing_timestamp"
	default:
		return "other"
	}
}
