// Package archive opens converted glider dumps kept on disk. Dumps are often
// stored compressed; the codec is chosen from the file extension.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Codec string

const (
	CodecNone Codec = "none"
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
	CodecS2   Codec = "s2"
	CodecGzip Codec = "gzip"
)

// CodecFor returns the codec implied by the extension of path.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CodecZstd
	case ".lz4":
		return CodecLZ4
	case ".s2", ".sz":
		return CodecS2
	case ".gz":
		return CodecGzip
	default:
		return CodecNone
	}
}

// ParseCodec accepts a codec name as used in configuration. An empty name
// means CodecNone.
func ParseCodec(name string) (Codec, error) {
	switch c := Codec(strings.ToLower(strings.TrimSpace(name))); c {
	case "":
		return CodecNone, nil
	case CodecNone, CodecZstd, CodecLZ4, CodecS2, CodecGzip:
		return c, nil
	default:
		return "", fmt.Errorf("unknown codec %q", name)
	}
}

// Open opens path for reading and decompresses it according to its extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := NewReader(f, CodecFor(path))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &stackCloser{Reader: rc, closers: []io.Closer{rc, f}}, nil
}

// NewReader wraps r with the decompressor for c. Closing the result does not
// close r.
func NewReader(r io.Reader, c Codec) (io.ReadCloser, error) {
	switch c {
	case CodecNone, "":
		return io.NopCloser(r), nil
	case CodecZstd:
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CodecS2:
		return io.NopCloser(s2.NewReader(r)), nil
	case CodecGzip:
		return gzip.NewReader(r)
	default:
		return nil, fmt.Errorf("unknown codec %q", c)
	}
}

// Create creates path and compresses everything written according to its
// extension. Close flushes the compressor and closes the file.
func Create(path string) (io.WriteCloser, error) {
	return CreateCodec(path, CodecFor(path))
}

// CreateCodec is Create with an explicit codec, whatever the extension.
func CreateCodec(path string, c Codec) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	wc, err := NewWriter(f, c)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &stackWriter{Writer: wc, closers: []io.Closer{wc, f}}, nil
}

// NewWriter wraps w with the compressor for c. Closing the result flushes the
// compressor but does not close w.
func NewWriter(w io.Writer, c Codec) (io.WriteCloser, error) {
	switch c {
	case CodecNone, "":
		return nopWriteCloser{w}, nil
	case CodecZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	case CodecS2:
		return s2.NewWriter(w), nil
	case CodecGzip:
		return gzip.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", c)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// stackCloser closes every closer in order and reports the first error.
type stackCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackCloser) Close() error {
	return closeAll(s.closers)
}

type stackWriter struct {
	io.Writer
	closers []io.Closer
}

func (s *stackWriter) Close() error {
	return closeAll(s.closers)
}

func closeAll(closers []io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
