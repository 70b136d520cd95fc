// File: internal/runner/buffer_test.go
package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()
	testCases := map[string][]string{
		"":                      {},
		"goto a":                {"goto a"},
		"goto a\n":              {"goto a"},
		"goto a\r\nclick b\r\n": {"goto a", "click b"},
		"a\n\nb\n\n":            {"a", "", "b", ""},
	}
	for in, want := range testCases {
		if diff := cmp.Diff(want, SplitLines(in)); diff != "" {
			t.Errorf("SplitLines(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestScriptBufferLoadSave(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "login.pw")
	require.NoError(t, os.WriteFile(path, []byte("# login\r\ngoto example.com\r\n"), 0o644))

	b, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"# login", "goto example.com"}, b.Lines())
	assert.Equal(t, "login", b.Name())
	assert.Equal(t, path, b.Path())
	assert.Equal(t, uint64(1), b.Revision())

	b.Append(`click "Sign in"`)
	require.NoError(t, b.Save(""))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# login\ngoto example.com\nclick \"Sign in\"\n", string(data))

	other := filepath.Join(dir, "copy.pw")
	require.NoError(t, b.Save(other))
	assert.Equal(t, other, b.Path(), "saving under a new name rebinds the buffer")

	_, err = LoadScript(filepath.Join(dir, "missing.pw"))
	assert.Error(t, err)
}

func TestScriptBufferSaveWithoutName(t *testing.T) {
	t.Parallel()
	b := NewScriptBuffer("goto a")
	assert.EqualError(t, b.Save(""), "script has no file name")
	assert.Equal(t, "", b.Name())
}

func TestScriptBufferEdits(t *testing.T) {
	t.Parallel()
	b := NewScriptBuffer("a", "c")
	rev := b.Revision()

	require.NoError(t, b.Insert(1, "b"))
	require.NoError(t, b.Set(2, "C"))
	require.NoError(t, b.Insert(3, "d"))
	require.NoError(t, b.Delete(0))
	assert.Equal(t, []string{"b", "C", "d"}, b.Lines())
	assert.Equal(t, rev+4, b.Revision())

	assert.Error(t, b.Set(3, "x"))
	assert.Error(t, b.Insert(5, "x"))
	assert.Error(t, b.Delete(-1))
	assert.Equal(t, rev+4, b.Revision(), "failed edits keep the revision")

	b.Replace([]string{"z"})
	assert.Equal(t, 1, b.Len())

	lines := b.Lines()
	lines[0] = "mutated"
	assert.Equal(t, []string{"z"}, b.Lines(), "Lines returns a copy")
}
