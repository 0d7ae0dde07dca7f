package testutil

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/harnesssync/pkg/paths"
	"github.com/arthur-debert/harnesssync/pkg/types"
)

// TestEnvironment provides an isolated set of directories with every path
// lookup in harnesssync redirected into them.
type TestEnvironment struct {
	// Core paths
	Root       string
	HomeDir    string
	ProjectDir string
	StateDir   string
	ConfigDir  string
	ClaudeHome string

	Paths paths.Paths

	t *testing.T
}

// NewTestEnvironment creates the directories under t.TempDir(), points HOME,
// HARNESSSYNC_HOME, HARNESSSYNC_CONFIG_DIR and CLAUDE_CONFIG_DIR at them and
// builds Paths for the project.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	root := t.TempDir()
	// The project path becomes a map key and a lock name, so it must be the
	// canonical one even where the temp dir sits behind a symlink.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	env := &TestEnvironment{
		Root:       root,
		HomeDir:    filepath.Join(root, "home"),
		ProjectDir: filepath.Join(root, "project"),
		StateDir:   filepath.Join(root, "state"),
		ConfigDir:  filepath.Join(root, "config"),
		t:          t,
	}
	env.ClaudeHome = filepath.Join(env.HomeDir, paths.ClaudeDirName)

	for _, dir := range []string{env.HomeDir, env.ProjectDir, env.StateDir, env.ConfigDir, env.ClaudeHome} {
		CreateDir(t, dir, "")
	}

	t.Setenv("HOME", env.HomeDir)
	t.Setenv(paths.EnvHome, env.StateDir)
	t.Setenv(paths.EnvConfigDir, env.ConfigDir)
	t.Setenv(paths.EnvClaudeConfigDir, env.ClaudeHome)

	p, err := paths.New(env.ProjectDir)
	if err != nil {
		t.Fatalf("Failed to create paths: %v", err)
	}
	env.Paths = p

	return env
}

// AddProject creates a second project directory next to ProjectDir and
// returns its Paths. Both projects share the home, state and config dirs.
func (env *TestEnvironment) AddProject(name string) paths.Paths {
	env.t.Helper()

	dir := CreateDir(env.t, env.Root, name)
	p, err := paths.New(dir)
	if err != nil {
		env.t.Fatalf("Failed to create paths for %s: %v", dir, err)
	}
	return p
}

// WriteUserServers writes servers as the user-scope mcpServers of ~/.claude.json,
// keeping any projects section already there.
func (env *TestEnvironment) WriteUserServers(servers map[string]types.ServerConfig) {
	env.t.Helper()
	doc := env.readClaudeJSON()
	doc["mcpServers"] = servers
	WriteJSON(env.t, env.Paths.ClaudeJSON(), doc)
}

// WriteLocalServers writes servers as the local-scope overrides for the
// environment's project in ~/.claude.json.
func (env *TestEnvironment) WriteLocalServers(servers map[string]types.ServerConfig) {
	env.t.Helper()
	doc := env.readClaudeJSON()
	projects, _ := doc["projects"].(map[string]interface{})
	if projects == nil {
		projects = map[string]interface{}{}
	}
	projects[env.ProjectDir] = map[string]interface{}{"mcpServers": servers}
	doc["projects"] = projects
	WriteJSON(env.t, env.Paths.ClaudeJSON(), doc)
}

// WriteProjectServers writes servers to the project's .mcp.json.
func (env *TestEnvironment) WriteProjectServers(servers map[string]types.ServerConfig) {
	env.t.Helper()
	WriteJSON(env.t, env.Paths.ProjectMCP(), map[string]interface{}{"mcpServers": servers})
}

// InstallPackage creates a package install directory holding a standalone
// .mcp.json with servers and registers it in the package registry under key
// (for example "github@official"). It returns the install path.
func (env *TestEnvironment) InstallPackage(key, version, scope string, servers map[string]types.ServerConfig) string {
	env.t.Helper()

	installPath := filepath.Join(env.ClaudeHome, "plugins", "cache", filepath.FromSlash(key), version)
	CreateDir(env.t, installPath, "")
	if servers != nil {
		WriteJSON(env.t, filepath.Join(installPath, paths.MCPFileName), servers)
	}

	registry := map[string]interface{}{"version": 2, "plugins": map[string]interface{}{}}
	if FileExists(env.t, env.Paths.PluginRegistry()) {
		registry = readJSON(env.t, env.Paths.PluginRegistry())
	}
	plugins, _ := registry["plugins"].(map[string]interface{})
	if plugins == nil {
		plugins = map[string]interface{}{}
	}
	plugins[key] = []interface{}{map[string]interface{}{
		"installPath": installPath,
		"version":     version,
		"scope":       scope,
	}}
	registry["plugins"] = plugins
	WriteJSON(env.t, env.Paths.PluginRegistry(), registry)

	return installPath
}

// SetPackageEnabled records key in the enabledPlugins map of the Claude settings.
func (env *TestEnvironment) SetPackageEnabled(key string, enabled bool) {
	env.t.Helper()

	settings := map[string]interface{}{}
	if FileExists(env.t, env.Paths.ClaudeSettings()) {
		settings = readJSON(env.t, env.Paths.ClaudeSettings())
	}
	enabledPlugins, _ := settings["enabledPlugins"].(map[string]interface{})
	if enabledPlugins == nil {
		enabledPlugins = map[string]interface{}{}
	}
	enabledPlugins[key] = enabled
	settings["enabledPlugins"] = enabledPlugins
	WriteJSON(env.t, env.Paths.ClaudeSettings(), settings)
}

func (env *TestEnvironment) readClaudeJSON() map[string]interface{} {
	if !FileExists(env.t, env.Paths.ClaudeJSON()) {
		return map[string]interface{}{}
	}
	return readJSON(env.t, env.Paths.ClaudeJSON())
}
