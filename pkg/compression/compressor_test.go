package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	original := []byte(strings.Repeat(`{"id":"abys","name":"Abyssinian","origin":"Egypt"}`+"\n", 200))

	for _, algo := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd} {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(algo), func(t *testing.T) {
				compressed, err := Compress(original, algo, level)
				require.NoError(t, err)
				if algo != None {
					assert.Less(t, len(compressed), len(original))
				}

				out, err := Decompress(compressed, algo)
				require.NoError(t, err)
				assert.Equal(t, original, out)
			})
		}
	}
}

func TestStreaming(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Zstd, Default)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := io.WriteString(w, "line\n")
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, Zstd)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("line\n", 10), string(data))
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		algo Algorithm
		base string
	}{
		{"out/images.jsonl", None, "out/images.jsonl"},
		{"out/images.jsonl.gz", Gzip, "out/images.jsonl"},
		{"images.jsonl.ZST", Zstd, "images.jsonl"},
		{"images.jsonl.lz4", LZ4, "images.jsonl"},
		{"images.avro.snappy", Snappy, "images.avro"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			algo, base := FromPath(tt.path)
			assert.Equal(t, tt.algo, algo)
			assert.Equal(t, tt.base, base)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, a)

	a, err = ParseAlgorithm(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)
	assert.Equal(t, ".zst", a.Extension())

	_, err = ParseAlgorithm("brotli")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = NewWriter(io.Discard, "brotli", Default)
	assert.Error(t, err)
}

func TestDecompress_Corrupt(t *testing.T) {
	_, err := Decompress([]byte("definitely not gzip"), Gzip)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}
