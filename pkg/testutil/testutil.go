package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture writers. Parents are created as needed and paths are returned so
// calls can be chained into assertions.

func CreateFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func CreateDir(t *testing.T, parent, name string) string {
	t.Helper()
	path := filepath.Join(parent, name)
	require.NoError(t, os.MkdirAll(path, 0755))
	return path
}

// CreateSymlink makes link point at target; target need not exist.
func CreateSymlink(t *testing.T, target, link string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(t, os.Symlink(target, link), "symlink %s -> %s", link, target)
}

// WriteJSON writes v as indented JSON, the way harness config files look.
func WriteJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err, "encoding %s", path)
	CreateFile(t, filepath.Dir(path), filepath.Base(path), string(data))
}

// Probes. These never fail the test.

// FileExists is true for regular files, following links.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// PathExists is true for anything at path, dangling links included.
func PathExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Lstat(path)
	return err == nil
}

func SymlinkExists(t *testing.T, path string) bool {
	t.Helper()
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// Readers. A missing path fails the test immediately.

func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func ReadSymlink(t *testing.T, path string) string {
	t.Helper()
	target, err := os.Readlink(path)
	require.NoError(t, err)
	return target
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(ReadFile(t, path)), &doc), "parsing %s", path)
	return doc
}

// Assertions.

func AssertFileContent(t *testing.T, path, want string) {
	t.Helper()
	assert.Equal(t, want, ReadFile(t, path), "content of %s", path)
}

// AssertSymlink checks that link is a symlink whose target is exactly target.
func AssertSymlink(t *testing.T, link, target string) {
	t.Helper()
	if assert.True(t, SymlinkExists(t, link), "%s is not a symlink", link) {
		assert.Equal(t, target, ReadSymlink(t, link), "target of %s", link)
	}
}

func AssertNoPath(t *testing.T, path string) {
	t.Helper()
	assert.False(t, PathExists(t, path), "expected nothing at %s", path)
}
