package jsonl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rows.jsonl")
	in := []row{{Name: "a", Count: 1}, {Name: "b", Count: 2}}

	require.NoError(t, Write(path, in))

	out, err := Read[row](path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRead_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	content := "{\"name\":\"a\",\"count\":1}\n\n   \n{\"name\":\"b\",\"count\":2}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, err := Read[row](path)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestRead_MalformedLineFailsWithLineNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	content := "{\"name\":\"a\"}\nnot json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Read[row](path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestAppend_AccumulatesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")

	require.NoError(t, Append(path, []row{{Name: "a"}}))
	require.NoError(t, Append(path, []row{{Name: "b"}}))

	out, err := Read[row](path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Name)
	assert.Equal(t, "b", out[1].Name)
}
