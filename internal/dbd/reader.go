package dbd

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// RowSource is anything that yields rows until io.EOF. *Reader implements it.
type RowSource interface {
	Next() (Row, error)
}

// Reader is a lazy, non-restartable sequence of rows over one converted dump.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	src    LineSource
	name   string
	obs    Observer
	fields []Field
	line   int
	done   bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithName labels the stream in errors and observations.
func WithName(name string) ReaderOption {
	return func(r *Reader) { r.name = name }
}

// WithObserver reports every decoded row and error to obs.
func WithObserver(obs Observer) ReaderOption {
	return func(r *Reader) {
		if obs != nil {
			r.obs = obs
		}
	}
}

// NewReader consumes the header block of src and returns a Reader positioned
// at the first data line.
func NewReader(src LineSource, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{src: src, obs: nopObserver{}}
	for _, opt := range opts {
		opt(r)
	}

	fields, consumed, err := parseHeader(src)
	r.line = consumed
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Stream = r.name
		}
		r.obs.ObserveError(r.name, err)
		return nil, err
	}
	r.fields = fields
	return r, nil
}

// Name returns the stream label given with WithName.
func (r *Reader) Name() string { return r.name }

// Fields returns a copy of the column descriptors.
func (r *Reader) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Next returns the next row. Once the source is exhausted it returns io.EOF,
// and keeps doing so on every later call.
func (r *Reader) Next() (Row, error) {
	if r.done {
		return nil, io.EOF
	}
	row, err := r.readRow()
	if err != nil {
		if errors.Is(err, ErrEndOfStream) {
			r.done = true
			return nil, io.EOF
		}
		r.obs.ObserveError(r.name, err)
		return nil, err
	}
	return row, nil
}

// All ranges over the remaining rows. Iteration stops after the first error.
func (r *Reader) All() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

func (r *Reader) readRow() (Row, error) {
	line, err := r.src.ReadLine()
	if err != nil {
		if !isEOF(err) {
			return nil, fmt.Errorf("%s: read after line %d: %w", r.label(), r.line, err)
		}
		return nil, &ParseError{Kind: ErrEndOfStream, Stream: r.name, Line: r.line}
	}
	r.line++

	row, skipped, err := mapLine(line, r.fields)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Stream = r.name
			pe.Line = r.line
		}
		return nil, err
	}
	r.obs.ObserveRow(r.name, len(row), skipped)
	return row, nil
}

func (r *Reader) label() string {
	if r.name == "" {
		return "stream"
	}
	return r.name
}
