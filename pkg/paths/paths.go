package paths

import (
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/harnesssync/pkg/errors"
)

// Environment variable names
const (
	// EnvHome overrides the harnesssync state directory
	EnvHome = "HARNESSSYNC_HOME"

	// EnvConfigDir overrides the harnesssync config directory
	EnvConfigDir = "HARNESSSYNC_CONFIG_DIR"

	// EnvClaudeConfigDir points at an alternate Claude home, one per account
	EnvClaudeConfigDir = "CLAUDE_CONFIG_DIR"
)

// Fixed names inside the directories above. These are part of the on-disk
// layout and are not configurable.
const (
	AppDirName         = "harnesssync"
	StateFileName      = "state.json"
	BackupsDirName     = "backups"
	LocksDirName       = "locks"
	ProjectsDirName    = "projects"
	LogFileName        = "harnesssync.log"
	ClaudeDirName      = ".claude"
	ClaudeJSONName     = ".claude.json"
	MCPFileName        = ".mcp.json"
	SettingsFileName   = "settings.json"
	LocalSettingsName  = "settings.local.json"
	PluginRegistryPath = "plugins/installed_plugins.json"
)

// Paths provides centralized path management for harnesssync
type Paths interface {
	ProjectDir() string
	HomeDir() string

	StateDir() string
	ProjectKey() string
	ProjectStateDir() string
	StateFile() string
	BackupRoot() string
	LockDir() string
	LockPath() string
	LogFilePath() string
	ConfigDir() string
	ConfigFiles() []string

	ClaudeHome() string
	ClaudeJSON() string
	PluginRegistry() string
	ClaudeSettings() string

	ProjectMCP() string
	ProjectClaudeDir() string
}

type paths struct {
	projectDir string
	homeDir    string
	stateDir   string
	configDir  string
	claudeHome string
}

// Option customizes New.
type Option func(*paths)

// WithClaudeHome reads Claude configuration from dir instead of ~/.claude.
func WithClaudeHome(dir string) Option {
	return func(p *paths) {
		if dir != "" {
			p.claudeHome = expandHome(dir, p.homeDir)
		}
	}
}

// WithStateDir stores harnesssync state under dir.
func WithStateDir(dir string) Option {
	return func(p *paths) {
		if dir != "" {
			p.stateDir = expandHome(dir, p.homeDir)
		}
	}
}

// New creates a Paths instance for the given project. An empty projectDir is
// resolved to the enclosing git repository root, falling back to the current
// working directory.
func New(projectDir string, opts ...Option) (Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot determine home directory")
	}

	p := &paths{homeDir: homeDir}

	if projectDir == "" {
		projectDir, err = findProjectRoot()
		if err != nil {
			return nil, err
		}
	}
	p.projectDir, err = canonical(expandHome(projectDir, homeDir))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to resolve project directory %s", projectDir)
	}

	p.setupDirs()
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// setupDirs initializes the directories, respecting environment overrides.
// XDG variables are read directly so that changes made after process start
// (tests, wrappers) are honoured.
func (p *paths) setupDirs() {
	switch {
	case os.Getenv(EnvHome) != "":
		p.stateDir = expandHome(os.Getenv(EnvHome), p.homeDir)
	case os.Getenv("XDG_STATE_HOME") != "":
		p.stateDir = filepath.Join(os.Getenv("XDG_STATE_HOME"), AppDirName)
	default:
		p.stateDir = filepath.Join(xdg.StateHome, AppDirName)
	}

	switch {
	case os.Getenv(EnvConfigDir) != "":
		p.configDir = expandHome(os.Getenv(EnvConfigDir), p.homeDir)
	case os.Getenv("XDG_CONFIG_HOME") != "":
		p.configDir = filepath.Join(os.Getenv("XDG_CONFIG_HOME"), AppDirName)
	default:
		p.configDir = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	if dir := os.Getenv(EnvClaudeConfigDir); dir != "" {
		p.claudeHome = expandHome(dir, p.homeDir)
	} else {
		p.claudeHome = filepath.Join(p.homeDir, ClaudeDirName)
	}
}

func (p *paths) ProjectDir() string { return p.projectDir }
func (p *paths) HomeDir() string { return p.homeDir }
func (p *paths) StateDir() string { return p.stateDir }
func (p *paths) ConfigDir() string { return p.configDir }
func (p *paths) ClaudeHome() string { return p.claudeHome }

// ProjectKey names the current project inside the state dir: the first 8
// bytes of sha256 of its canonical path, in hex. Lock, state and backups
// all use it, so two projects never share any of them.
func (p *paths) ProjectKey() string {
	sum := sha256.Sum256([]byte(p.projectDir))
	return fmt.Sprintf("%x", sum[:8])
}

// ProjectStateDir holds the state file and backups of the current project.
func (p *paths) ProjectStateDir() string {
	return filepath.Join(p.stateDir, ProjectsDirName, p.ProjectKey())
}

func (p *paths) StateFile() string {
	return filepath.Join(p.ProjectStateDir(), StateFileName)
}

func (p *paths) BackupRoot() string {
	return filepath.Join(p.ProjectStateDir(), BackupsDirName)
}

// LockDir sits outside the project dirs so a lock can be taken before
// anything under ProjectStateDir exists.
func (p *paths) LockDir() string {
	return filepath.Join(p.stateDir, LocksDirName)
}

func (p *paths) LockPath() string {
	return filepath.Join(p.LockDir(), p.ProjectKey()+".lock")
}

func (p *paths) LogFilePath() string {
	return filepath.Join(p.stateDir, LogFileName)
}

// ConfigFiles lists the candidate user config files in load order.
func (p *paths) ConfigFiles() []string {
	return []string{
		filepath.Join(p.configDir, "config.toml"),
		filepath.Join(p.configDir, "config.yaml"),
	}
}

// ClaudeJSON is always in the user's home, even when the Claude home moves.
func (p *paths) ClaudeJSON() string {
	return filepath.Join(p.homeDir, ClaudeJSONName)
}

func (p *paths) PluginRegistry() string {
	return filepath.Join(p.claudeHome, filepath.FromSlash(PluginRegistryPath))
}

func (p *paths) ClaudeSettings() string {
	return filepath.Join(p.claudeHome, SettingsFileName)
}

func (p *paths) ProjectMCP() string {
	return filepath.Join(p.projectDir, MCPFileName)
}

func (p *paths) ProjectClaudeDir() string {
	return filepath.Join(p.projectDir, ClaudeDirName)
}

// findProjectRoot returns the git repository root of the working directory,
// or the working directory itself outside a repository.
func findProjectRoot() (string, error) {
	if out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output(); err == nil {
		if root := strings.TrimSpace(string(out)); root != "" {
			return root, nil
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrFileAccess, "failed to get current directory")
	}
	return cwd, nil
}

// canonical makes path absolute and resolves symlinks when it exists, so the
// same project always yields the same local-registry key and lock name.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// expandHome expands a leading ~ to home
func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}
