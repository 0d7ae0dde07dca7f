package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestEnvironment(t *testing.T) {
	env := NewTestEnvironment(t)

	assert.Equal(t, env.ProjectDir, env.Paths.ProjectDir())
	assert.Equal(t, env.StateDir, env.Paths.StateDir())
	assert.Equal(t, env.ClaudeHome, env.Paths.ClaudeHome())
	assert.Equal(t, filepath.Join(env.HomeDir, ".claude.json"), env.Paths.ClaudeJSON())
	assert.Equal(t, env.HomeDir, os.Getenv("HOME"))
}

func TestAddProject(t *testing.T) {
	env := NewTestEnvironment(t)

	other := env.AddProject("other")
	assert.Equal(t, filepath.Join(env.Root, "other"), other.ProjectDir())
	assert.DirExists(t, other.ProjectDir())
	assert.Equal(t, env.Paths.StateDir(), other.StateDir())
	assert.NotEqual(t, env.Paths.StateFile(), other.StateFile())
}

func TestWriteServers(t *testing.T) {
	env := NewTestEnvironment(t)

	env.WriteUserServers(map[string]types.ServerConfig{"a": {"command": "a"}})
	env.WriteLocalServers(map[string]types.ServerConfig{"b": {"command": "b"}})

	var doc struct {
		MCPServers map[string]map[string]interface{} `json:"mcpServers"`
		Projects   map[string]struct {
			MCPServers map[string]map[string]interface{} `json:"mcpServers"`
		} `json:"projects"`
	}
	require.NoError(t, json.Unmarshal([]byte(ReadFile(t, env.Paths.ClaudeJSON())), &doc))

	assert.Equal(t, "a", doc.MCPServers["a"]["command"])
	assert.Equal(t, "b", doc.Projects[env.ProjectDir].MCPServers["b"]["command"])
}

func TestInstallPackage(t *testing.T) {
	env := NewTestEnvironment(t)

	first := env.InstallPackage("one@market", "1.0.0", "user", map[string]types.ServerConfig{"x": {"command": "x"}})
	env.InstallPackage("two@market", "2.0.0", "user", nil)
	env.SetPackageEnabled("two@market", false)

	assert.True(t, FileExists(t, filepath.Join(first, ".mcp.json")))

	registry := readJSON(t, env.Paths.PluginRegistry())
	plugins := registry["plugins"].(map[string]interface{})
	assert.Len(t, plugins, 2)

	settings := readJSON(t, env.Paths.ClaudeSettings())
	assert.Equal(t, false, settings["enabledPlugins"].(map[string]interface{})["two@market"])
}

func TestSymlinkHelpers(t *testing.T) {
	dir := t.TempDir()
	target := CreateFile(t, dir, "target.txt", "content")
	link := filepath.Join(dir, "sub", "link")

	CreateSymlink(t, target, link)
	AssertSymlink(t, link, target)
	AssertFileContent(t, link, "content")

	require.NoError(t, os.Remove(target))
	assert.True(t, PathExists(t, link))
	assert.False(t, FileExists(t, link))
}
