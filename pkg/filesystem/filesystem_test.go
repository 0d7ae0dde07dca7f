package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSRoundTrip(t *testing.T) {
	fsys := NewOS()
	dir := t.TempDir()
	config := filepath.Join(dir, "config.toml")
	content := []byte("model = \"o3\"\n")

	require.NoError(t, fsys.WriteFile(config, content, 0644))
	require.NoError(t, fsys.MkdirAll(filepath.Join(dir, ".codex", "skills"), 0755))

	got, err := fsys.ReadFile(config)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	entries, err := fsys.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ".codex", entries[0].Name())
	assert.True(t, entries[0].IsDir())
	assert.Equal(t, "config.toml", entries[1].Name())

	require.NoError(t, fsys.Remove(config))
	_, err = fsys.Stat(config)
	assert.True(t, os.IsNotExist(err))
}

func TestOSLinks(t *testing.T) {
	fsys := NewOS()
	dir := t.TempDir()
	skill := filepath.Join(dir, "SKILL.md")
	link := filepath.Join(dir, "skill-link")

	require.NoError(t, fsys.WriteFile(skill, []byte("# skill"), 0644))
	require.NoError(t, fsys.Symlink(skill, link))

	got, err := fsys.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, skill, got)

	info, err := fsys.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)

	info, err = fsys.Stat(link)
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&os.ModeSymlink)
}

func TestMemory(t *testing.T) {
	fsys := NewMemory()

	require.NoError(t, fsys.MkdirAll("/state", 0755))
	require.NoError(t, fsys.WriteFile("/state/state.json.tmp", []byte("{}"), 0644))
	require.NoError(t, fsys.Rename("/state/state.json.tmp", "/state/state.json"))

	got, err := fsys.ReadFile("/state/state.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))

	_, err = fsys.ReadFile("/state")
	assert.Error(t, err, "reading a directory must fail")

	info, err := fsys.Lstat("/state/state.json")
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	require.NoError(t, fsys.RemoveAll("/state"))
	_, err = fsys.Stat("/state")
	assert.True(t, os.IsNotExist(err))
}

func TestNewWrapsReadOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("rules"), 0644))

	fsys := New(afero.NewReadOnlyFs(afero.NewOsFs()))

	got, err := fsys.ReadFile(filepath.Join(dir, "AGENTS.md"))
	require.NoError(t, err)
	assert.Equal(t, "rules", string(got))

	assert.Error(t, fsys.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("x"), 0644))
}
