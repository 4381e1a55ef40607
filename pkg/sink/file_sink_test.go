package sink

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/nebula-catapi/pkg/compression"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	jsonpool "github.com/ajitpratap0/nebula-catapi/pkg/json"
	"github.com/ajitpratap0/nebula-catapi/pkg/testutil"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func votes() []core.Record {
	return []core.Record{
		{"id": int64(1), "image_id": "a", "value": int64(1)},
		{"id": int64(2), "image_id": "b", "value": int64(-1)},
		{"id": int64(3), "image_id": nil, "value": nil},
	}
}

func votesSchema() *core.Schema {
	return &core.Schema{Name: "votes", Fields: []core.Field{
		{Name: "id", Type: core.FieldTypeInt},
		{Name: "image_id", Type: core.FieldTypeString, Nullable: true},
		{Name: "value", Type: core.FieldTypeInt, Nullable: true},
	}}
}

func readLines(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var m map[string]interface{}
		require.NoError(t, jsonpool.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestOpen_CompressedJSONLines(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"votes.jsonl", "votes.jsonl.gz", "votes.jsonl.zst", "votes.jsonl.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			s, err := Open(Config{Path: path}, testutil.TestLogger(t))
			require.NoError(t, err)
			assert.Equal(t, path, s.Path())

			require.NoError(t, s.Write(votes()[:2]))
			require.NoError(t, s.Write(votes()[2:]))
			assert.Equal(t, int64(3), s.Records())
			require.NoError(t, s.Close())
			require.NoError(t, s.Close(), "close is idempotent")

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			algo, _ := compression.FromPath(path)
			data, err := compression.Decompress(raw, algo)
			require.NoError(t, err)

			lines := readLines(t, data)
			require.Len(t, lines, 3)
			assert.Equal(t, "a", lines[0]["image_id"])
			assert.Nil(t, lines[2]["image_id"])
		})
	}
}

func TestNew_JSONArray(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&buf, Config{Format: JSONArray})
	require.NoError(t, err)

	require.NoError(t, s.Write(votes()))
	require.NoError(t, s.Close())

	var out []map[string]interface{}
	require.NoError(t, jsonpool.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, 3)
}

func TestNew_EmptyJSONArray(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&buf, Config{Format: JSONArray})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Equal(t, "[]", buf.String())
}

func TestOpen_Avro(t *testing.T) {
	path := filepath.Join(t.TempDir(), "votes.avro")
	s, err := Open(Config{Path: path, Schema: votesSchema()}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Write(votes()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	reader, err := goavro.NewOCFReader(bytes.NewReader(data))
	require.NoError(t, err)

	n := 0
	for reader.Scan() {
		_, err := reader.Read()
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestOpen_ArrowRequiresSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "votes.arrow")
	_, err := Open(Config{Path: path}, nil)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed open removes the file")
}

func TestWriteAfterClose(t *testing.T) {
	s, err := New(&bytes.Buffer{}, Config{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Error(t, s.Write(votes()))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, JSONLines, formatFromPath("x.jsonl"))
	assert.Equal(t, JSONLines, formatFromPath("x"))
	assert.Equal(t, JSONArray, formatFromPath("x.json"))
	assert.Equal(t, Arrow, formatFromPath("x.arrow"))
	assert.Equal(t, Avro, formatFromPath("x.AVRO"))
}
