// Tests for JSONL persistence.
package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

func TestReadJSONLMissingFile(t *testing.T) {
	records, err := readJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadJSONLSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.jsonl")
	content := `{"id":"1","name":"Acme"}

not json
{"name":"no id"}
{"_id":7,"name":"Globex"}
{"id":"2","name":"Hooli"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "7", records[1].ID)
	assert.Equal(t, "Globex", records[1].Fields["name"])
}

func TestWriteJSONLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.jsonl")
	want := []types.Record{
		{ID: "a", Fields: types.Fields{"name": "Owner", "system": true}},
		{ID: "b", Fields: types.Fields{"name": "Designer", "tags": []any{"ui", "brand"}}},
	}
	require.NoError(t, writeJSONL(path, want))

	got, err := readJSONL(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestWriteJSONLReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.jsonl")
	require.NoError(t, writeJSONL(path, []types.Record{{ID: "a", Fields: types.Fields{}}}))
	require.NoError(t, writeJSONL(path, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}
