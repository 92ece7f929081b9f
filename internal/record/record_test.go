package record

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, src Source) ([]Raw, error) {
	t.Helper()
	var out []Raw
	for r, err := range src.Records(context.Background()) {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func TestSliceSource(t *testing.T) {
	src := SliceSource{{ID: "a"}, {ID: "b"}}
	got, err := collect(t, src)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSliceSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range (SliceSource{{ID: "a"}}).Records(ctx) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestFileSource_JSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	content := `[{"id":"p1","date":"2024-03-01","value":30},{"date":"2024-03-02","value":null}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	got, err := collect(t, FileSource{Path: path})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "#2", got[1].ID)

	date, ok := DefaultPaths.Date(got[0])
	assert.True(t, ok)
	assert.Equal(t, "2024-03-01", date)
	assert.Equal(t, float64(30), DefaultPaths.Value(got[0]))
	assert.Nil(t, DefaultPaths.Value(got[1]))
}

func TestFileSource_JSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	content := "{\"date\":\"2025-01-01\",\"tags\":[\"x\",\"y\"]}\n\n{\"date\":null,\"tags\":\"z\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	got, err := collect(t, FileSource{Path: path})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "#1", got[0].ID)
	assert.Equal(t, "#3", got[1].ID)

	assert.Equal(t, []any{"x", "y"}, DefaultPaths.Tags(got[0]))
	_, ok := DefaultPaths.Date(got[1])
	assert.False(t, ok)
}

func TestFileSource_Errors(t *testing.T) {
	_, err := collect(t, FileSource{Path: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"date":`), 0600))
	_, err = collect(t, FileSource{Path: path})
	assert.Error(t, err)
}
