package main

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/state"
	"github.com/ajitpratap0/nebula-catapi/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI and returns stdout and stderr
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--env-file", "", "--log-level", "error"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func images(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":"img-%d","url":"https://cdn2.thecatapi.com/images/%d.jpg"}`, i, i)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	require.NoError(t, scanner.Err())
	return n
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "catapi v"+version)
}

func TestTables(t *testing.T) {
	out, _, err := run(t, "tables")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "TABLE")
	assert.True(t, strings.HasPrefix(lines[1], "images"))
	assert.Contains(t, lines[5], "favourites")
	assert.Contains(t, lines[5], "cdc")
	assert.Contains(t, lines[5], "created_at")
}

func TestSchema(t *testing.T) {
	out, _, err := run(t, "schema", "categories")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "categories"`)

	out, _, err = run(t, "schema", "breeds", "--format", "avro")
	require.NoError(t, err)
	assert.Contains(t, out, `"breeds_weight"`)

	out, _, err = run(t, "schema", "images", "-f", "arrow")
	require.NoError(t, err)
	assert.Contains(t, out, "breeds")

	_, _, err = run(t, "schema", "images", "-f", "orc")
	assert.Error(t, err)

	_, _, err = run(t, "schema", "dogs")
	assert.Error(t, err)
}

func TestMetadata(t *testing.T) {
	out, _, err := run(t, "metadata", "votes")
	require.NoError(t, err)
	assert.Contains(t, out, `"cursor_field": "created_at"`)
	assert.Contains(t, out, `"ingestion_type": "append"`)
}

func TestHealth(t *testing.T) {
	fake := testutil.NewFakeCatAPI(t)
	fake.Handle("/breeds", http.StatusOK, `[]`)

	out, _, err := run(t, "health", "--api-key", "k", "--base-url", fake.URL())
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
	assert.Equal(t, "k", fake.LastRequest().Header.Get("x-api-key"))

	_, _, err = run(t, "health", "--base-url", fake.URL())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestRead(t *testing.T) {
	fake := testutil.NewFakeCatAPI(t)
	fake.Handle("/images/search", http.StatusOK, images(2))
	path := filepath.Join(t.TempDir(), "images.jsonl")

	_, stderr, err := run(t, "read", "images",
		"--api-key", "k", "--base-url", fake.URL(),
		"--page", "2", "-o", "limit=2", "-o", "order=DESC",
		"--output", path)
	require.NoError(t, err)

	assert.Equal(t, 2, countLines(t, path))
	assert.Contains(t, stderr, `next_offset={"page":3}`)

	q := fake.LastRequest().Query
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "2", q.Get("limit"))
	assert.Equal(t, "DESC", q.Get("order"))
}

func TestRead_OffsetFlag(t *testing.T) {
	fake := testutil.NewFakeCatAPI(t)
	fake.Handle("/votes", http.StatusOK, `[]`)

	_, stderr, err := run(t, "read", "votes", "--api-key", "k", "--base-url", fake.URL(),
		"--offset", `{"page":4}`, "--output", filepath.Join(t.TempDir(), "votes.jsonl.gz"))
	require.NoError(t, err)
	assert.Equal(t, "4", fake.LastRequest().Query.Get("page"))
	assert.Contains(t, stderr, `next_offset={"page":4}`)

	_, _, err = run(t, "read", "votes", "--api-key", "k", "--offset", "not json")
	assert.Error(t, err)
}

func TestRead_APIError(t *testing.T) {
	fake := testutil.NewFakeCatAPI(t)
	_, _, err := run(t, "read", "favourites", "--api-key", "k", "--base-url", fake.URL(),
		"--output", filepath.Join(t.TempDir(), "f.jsonl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSync_ResumesFromState(t *testing.T) {
	fake := testutil.NewFakeCatAPI(t)
	pages := map[string]int{"0": 2, "1": 2, "2": 1}
	fake.HandleFunc("/images/search", func(q url.Values) (int, string) {
		return http.StatusOK, images(pages[q.Get("page")])
	})
	fake.Handle("/breeds", http.StatusOK, `[{"id":"abys"},{"id":"aege"}]`)

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.yaml")
	args := []string{"sync", "images", "breeds",
		"--api-key", "k", "--base-url", fake.URL(),
		"--state", statePath, "--output-dir", dir, "-o", "limit=2"}

	out, _, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "images\t5 records")
	assert.Contains(t, out, "breeds\t2 records")

	store, err := state.Open(statePath, "catapi")
	require.NoError(t, err)
	images, ok := store.Get("images")
	require.True(t, ok)
	assert.True(t, images.Completed)
	assert.Equal(t, int64(5), images.Records)
	page, err := core.DecodePageOffset(images.Offset)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)

	breeds, ok := store.Get("breeds")
	require.True(t, ok)
	assert.Nil(t, breeds.Offset)

	before := len(fake.Requests())
	out, _, err = run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "images\t1 records", "second run re-reads only the last page")

	resumed := fake.Requests()[before]
	assert.Equal(t, "/images/search", resumed.Path)
	assert.Equal(t, "2", resumed.Query.Get("page"))
}

func TestSync_UnknownTable(t *testing.T) {
	_, _, err := run(t, "sync", "dogs", "--api-key", "k", "--state", filepath.Join(t.TempDir(), "s.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported table")
}

func TestAdvanced(t *testing.T) {
	assert.True(t, advanced(nil, core.Offset{"page": 1}))
	assert.True(t, advanced(core.Offset{"page": 1}, core.Offset{"page": 2}))
	assert.False(t, advanced(core.Offset{"page": 2}, core.Offset{"page": 2}))
	assert.False(t, advanced(nil, core.Offset{"page": 0}))
	assert.False(t, advanced(core.Offset{"page": 3}, nil))
	assert.True(t, advanced(core.Offset{"page": "x"}, core.Offset{"page": 1}))
}
