package conflict_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/harnesssync/pkg/conflict"
	"github.com/arthur-debert/harnesssync/pkg/filesystem"
	"github.com/arthur-debert/harnesssync/pkg/internal/hashutil"
	"github.com/arthur-debert/harnesssync/pkg/state"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baselineOf hashes the files as they are now and records them for target.
func baselineOf(t *testing.T, fs types.FS, target string, files ...string) *state.State {
	t.Helper()
	st := state.New()
	hashes := hashutil.ChecksumFiles(fs, files)
	require.Len(t, hashes, len(files))
	st.Targets[target] = &state.TargetState{FileHashes: hashes}
	return st
}

func TestCheck(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/p", 0755))
	require.NoError(t, fs.WriteFile("/p/AGENTS.md", []byte("rules v1"), 0644))
	require.NoError(t, fs.WriteFile("/p/config.toml", []byte("model = 'x'"), 0644))
	require.NoError(t, fs.WriteFile("/p/untouched.md", []byte("same"), 0644))

	st := baselineOf(t, fs, "codex", "/p/AGENTS.md", "/p/config.toml", "/p/untouched.md")
	d := conflict.New(fs, st)

	t.Run("clean files yield nothing", func(t *testing.T) {
		assert.Empty(t, d.Check("codex"))
	})

	require.NoError(t, fs.WriteFile("/p/AGENTS.md", []byte("rules edited by hand"), 0644))
	require.NoError(t, fs.Remove("/p/config.toml"))

	t.Run("modified and deleted", func(t *testing.T) {
		conflicts := d.Check("codex")
		require.Len(t, conflicts, 2)

		modified := conflicts[0]
		assert.Equal(t, "/p/AGENTS.md", modified.FilePath)
		assert.Equal(t, types.ConflictModified, modified.Status)
		assert.NotEqual(t, modified.StoredHash, modified.CurrentHash)
		assert.Equal(t, hashutil.ChecksumBytes([]byte("rules edited by hand")), modified.CurrentHash)

		deleted := conflicts[1]
		assert.Equal(t, "/p/config.toml", deleted.FilePath)
		assert.Equal(t, types.ConflictDeleted, deleted.Status)
		assert.Empty(t, deleted.CurrentHash)
	})

	t.Run("unknown target", func(t *testing.T) {
		assert.Empty(t, d.Check("gemini"))
	})
}

func TestCheck_UnreadableIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	fs := filesystem.NewOS()
	st := baselineOf(t, fs, "gemini", path)

	// Replace the file with a directory: present, but not readable as a file.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0755))

	assert.Empty(t, conflict.New(fs, st).Check("gemini"))
}

func TestCheckAll(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/p", 0755))
	require.NoError(t, fs.WriteFile("/p/GEMINI.md", []byte("a"), 0644))

	st := baselineOf(t, fs, "gemini", "/p/GEMINI.md")
	st.Targets["codex"] = &state.TargetState{FileHashes: map[string]string{"/p/AGENTS.md": "sha256:00"}}
	d := conflict.New(fs, st)

	all := d.CheckAll(nil)
	assert.Len(t, all, 2)
	assert.Len(t, all["codex"], 1)
	assert.Empty(t, all["gemini"])
	assert.Equal(t, 1, conflict.Count(all))

	only := d.CheckAll([]string{"gemini", "opencode"})
	assert.Len(t, only, 2)
	assert.Equal(t, 0, conflict.Count(only))
}

func TestFormatWarnings(t *testing.T) {
	assert.Equal(t, "", conflict.FormatWarnings(nil))
	assert.Equal(t, "", conflict.FormatWarnings(map[string][]types.ConflictEntry{"codex": nil}))

	out := conflict.FormatWarnings(map[string][]types.ConflictEntry{
		"opencode": {{FilePath: "/p/opencode.json", Status: types.ConflictDeleted}},
		"codex": {
			{FilePath: "/p/b.md", Status: types.ConflictModified},
			{FilePath: "/p/a.md", Status: types.ConflictModified},
		},
		"gemini": nil,
	})

	expected := "\n⚠ CODEX: 2 file(s) modified outside harnesssync:\n" +
		"  · /p/a.md (modified)\n" +
		"  · /p/b.md (modified)\n" +
		"\n⚠ OPENCODE: 1 file(s) modified outside harnesssync:\n" +
		"  · /p/opencode.json (deleted)\n" +
		"\nThese changes will be overwritten. Run with --dry-run to preview changes."
	assert.Equal(t, expected, out)
}

func TestFlatten(t *testing.T) {
	flat := conflict.Flatten(map[string][]types.ConflictEntry{
		"b": {{TargetName: "b", FilePath: "/1"}},
		"a": {{TargetName: "a", FilePath: "/2"}},
	})
	require.Len(t, flat, 2)
	assert.Equal(t, "a", flat[0].TargetName)
}
