package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "m_present_time m_depth\ntimestamp m\n8 4\n100 1.5\n101 NaN\n"

func TestCodecFor(t *testing.T) {
	tests := map[string]Codec{
		"a.asc":      CodecNone,
		"a.sbd.asc":  CodecNone,
		"a.asc.zst":  CodecZstd,
		"a.asc.ZSTD": CodecZstd,
		"a.asc.lz4":  CodecLZ4,
		"a.asc.s2":   CodecS2,
		"a.asc.sz":   CodecS2,
		"a.asc.gz":   CodecGzip,
	}
	for path, want := range tests {
		assert.Equal(t, want, CodecFor(path), path)
	}
}

func TestParseCodec(t *testing.T) {
	c, err := ParseCodec("")
	require.NoError(t, err)
	assert.Equal(t, CodecNone, c)

	c, err = ParseCodec(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, CodecZstd, c)

	_, err = ParseCodec("brotli")
	assert.Error(t, err)
}

func TestCreateCodec_IgnoresExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := CreateCodec(path, CodecGzip)
	require.NoError(t, err)
	_, err = io.WriteString(w, sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// The file holds gzip data despite its .csv name.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, sample, string(raw))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := NewReader(f, CodecGzip)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, sample, string(got))
}

func TestCreateOpenRoundTrip(t *testing.T) {
	for _, name := range []string{"dump.asc", "dump.asc.zst", "dump.asc.lz4", "dump.asc.s2", "dump.asc.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			w, err := Create(path)
			require.NoError(t, err)
			_, err = io.Copy(w, strings.NewReader(sample))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := Open(path)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, sample, string(got))
		})
	}
}

func TestCompressedFilesDifferFromPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.asc.zst")
	w, err := Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, sample, string(raw))
}

func TestOpen_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.asc.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.asc"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
