package dbd

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// LineSource yields one line of converted text per call. It returns io.EOF
// once no further line is available.
type LineSource interface {
	ReadLine() (string, error)
}

const maxLineBytes = 1024 * 1024

type lineReader struct {
	s *bufio.Scanner
}

// NewLineReader adapts r to a LineSource. Line terminators are stripped.
func NewLineReader(r io.Reader) LineSource {
	s := bufio.NewScanner(r)
	// Wide science dumps easily exceed the default 64 KiB token size.
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineReader{s: s}
}

func (lr *lineReader) ReadLine() (string, error) {
	if lr.s.Scan() {
		return lr.s.Text(), nil
	}
	if err := lr.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// NewStringSource returns a LineSource over the lines of text.
func NewStringSource(text string) LineSource {
	return NewLineReader(strings.NewReader(text))
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
