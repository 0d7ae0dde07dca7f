package harnesssync

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/harnesssync/pkg/config"
	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/pipeline"
	"github.com/arthur-debert/harnesssync/pkg/testutil"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rulesAdapter writes the joined rules into the target's instructions file.
type rulesAdapter struct {
	target string
	file   string
}

func (r *rulesAdapter) Target() string { return r.target }

func (r *rulesAdapter) Sync(_ context.Context, in *pipeline.Input) (types.TargetResult, error) {
	path := filepath.Join(in.ProjectDir, r.file)
	if err := os.WriteFile(path, []byte(in.Snapshot.Rules), 0644); err != nil {
		return nil, err
	}
	return types.TargetResult{
		types.CategoryRules: {Synced: []types.Item{{Name: r.file}}, Written: []string{path}},
	}, nil
}

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, env *testutil.TestEnvironment, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCmd(&rulesAdapter{target: "codex", file: "AGENTS.md"})
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--project", env.ProjectDir}, args...))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestResolveCommandJSON(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.WriteUserServers(map[string]types.ServerConfig{
		"shared": {"command": "user-cmd"},
		"remote": {"url": "https://mcp.example.com"},
	})
	env.WriteProjectServers(map[string]types.ServerConfig{
		"shared": {"command": "project-cmd", "args": []any{"--flag"}},
	})

	stdout, _, err := run(t, env, "resolve", "--format", "json")
	require.NoError(t, err)

	var view resolveView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	require.Len(t, view.Servers, 2)

	assert.Equal(t, "remote", view.Servers[0].Name)
	assert.Equal(t, types.ScopeUser, view.Servers[0].Provenance.Scope)

	assert.Equal(t, "shared", view.Servers[1].Name)
	assert.Equal(t, types.ScopeProject, view.Servers[1].Provenance.Scope)
	assert.Equal(t, "project-cmd --flag", launchLine(view.Servers[1].Config))
}

func TestResolveCommandTextAndScope(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.WriteUserServers(map[string]types.ServerConfig{"user-only": {"command": "u"}})
	env.WriteProjectServers(map[string]types.ServerConfig{"project-only": {"command": "p"}})

	stdout, _, err := run(t, env, "resolve", "--format", "text", "--scope", "user")
	require.NoError(t, err)

	assert.Contains(t, stdout, "NAME\tPROVENANCE\tCOMMAND\tSOURCE")
	assert.Contains(t, stdout, "user-only\tuser/file\tu\t")
	assert.NotContains(t, stdout, "project-only")
}

func TestResolveCommandReportsSkippedLayer(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	testutil.CreateFile(t, env.ProjectDir, ".mcp.json", "{not json")

	stdout, stderr, err := run(t, env, "resolve", "--format", "text")
	require.NoError(t, err)

	assert.Contains(t, stdout, MsgNoServers)
	assert.Contains(t, stderr, "skipped project")
}

func TestSyncCommandWritesAndRecordsState(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	testutil.CreateFile(t, env.ProjectDir, "CLAUDE.md", "be nice")

	stdout, _, err := run(t, env, "sync", "--format", "text")
	require.NoError(t, err)

	assert.Contains(t, stdout, "codex: 1 synced, 0 adapted, 0 skipped, 0 failed")
	assert.Contains(t, testutil.ReadFile(t, filepath.Join(env.ProjectDir, "AGENTS.md")), "be nice")
	assert.True(t, testutil.FileExists(t, env.Paths.StateFile()))

	stdout, _, err = run(t, env, "status", "--format", "json")
	require.NoError(t, err)

	var report pipeline.StatusReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Targets, 3)

	byName := map[string]pipeline.TargetStatus{}
	for _, ts := range report.Targets {
		byName[ts.Name] = ts
	}
	assert.True(t, byName["codex"].Synced)
	assert.True(t, byName["codex"].HasAdapter)
	assert.Equal(t, 1, byName["codex"].Files)
	assert.False(t, byName["gemini"].Synced)
}

func TestSyncCommandDryRun(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	testutil.CreateFile(t, env.ProjectDir, "CLAUDE.md", "rules")
	env.WriteProjectServers(map[string]types.ServerConfig{"fs": {"command": "mcp-fs"}})

	stdout, _, err := run(t, env, "--dry-run", "sync", "--target", "codex", "--format", "text")
	require.NoError(t, err)

	assert.Contains(t, stdout, "codex would receive:")
	assert.Contains(t, stdout, "mcp: fs")
	assert.Contains(t, stdout, "DRY RUN MODE")
	testutil.AssertNoPath(t, filepath.Join(env.ProjectDir, "AGENTS.md"))
	testutil.AssertNoPath(t, env.Paths.StateFile())
}

func TestSyncCommandBlockedBySecrets(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	env.WriteUserServers(map[string]types.ServerConfig{
		"openai": {"command": "mcp-openai", "env": map[string]any{"OPENAI_API_KEY": "abcd1234efgh5678ijkl9012"}},
	})

	_, stderr, err := run(t, env, "sync", "--format", "text")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSecretsDetected))
	assert.Contains(t, stderr, "OPENAI_API_KEY (server openai)")
	testutil.AssertNoPath(t, filepath.Join(env.ProjectDir, "AGENTS.md"))

	_, _, err = run(t, env, "sync", "--allow-secrets", "--format", "text")
	require.NoError(t, err)
	assert.True(t, testutil.FileExists(t, filepath.Join(env.ProjectDir, "AGENTS.md")))
}

func TestSyncCommandUnknownTarget(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	_, _, err := run(t, env, "sync", "--target", "nope")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTargetNotFound))
}

func TestCheckCommand(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	stdout, _, err := run(t, env, "check", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, MsgCheckClean)

	env.WriteProjectServers(map[string]types.ServerConfig{
		"db": {"command": "mcp-db", "env": map[string]any{"DB_PASSWORD": "hunter2hunter2hunter2"}},
	})
	stdout, _, err = run(t, env, "check", "--format", "text")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSecretsDetected))
	assert.Contains(t, stdout, "DB_PASSWORD")
}

func TestCleanLinksCommand(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	dir := testutil.CreateDir(t, env.ProjectDir, ".codex/skills")
	link := filepath.Join(dir, "gone")
	testutil.CreateSymlink(t, filepath.Join(env.Root, "missing"), link)

	stdout, _, err := run(t, env, "--dry-run", "clean-links", "codex")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Would remove 1 broken symlink(s)")
	assert.True(t, testutil.SymlinkExists(t, link))

	stdout, _, err = run(t, env, "clean-links")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Removed 1 broken symlink(s)")
	testutil.AssertNoPath(t, link)
}

func TestBackupsCommands(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	testutil.CreateFile(t, env.ProjectDir, "AGENTS.md", "old")

	_, _, err := run(t, env, "sync", "--target", "codex")
	require.NoError(t, err)

	stdout, _, err := run(t, env, "backups", "list", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "TARGET\tARTIFACT\tTAKEN\tPATH")
	assert.Contains(t, stdout, "codex\tAGENTS.md\t")

	stdout, _, err = run(t, env, "backups", "prune", "--keep", "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted 1 old backup(s)")

	stdout, _, err = run(t, env, "backups", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, MsgNoBackups)
}

func TestConfigCommands(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	stdout, _, err := run(t, env, "config", "defaults")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultContent()+"\n", stdout)

	testutil.CreateFile(t, env.ConfigDir, "config.yaml", "backup:\n  keep: 4\n")
	stdout, _, err = run(t, env, "--config", filepath.Join(env.ConfigDir, "config.yaml"), "config", "show", "--format", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, 4, cfg.Backup.Keep)
}

func TestInvalidFlags(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	_, _, err := run(t, env, "status", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --format")

	_, _, err = run(t, env, "status", "--scope", "galaxy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --scope")
}

func TestVersionCommand(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	stdout, _, err := run(t, env, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "harnesssync dev")
}

func TestHelpTopics(t *testing.T) {
	env := testutil.NewTestEnvironment(t)

	stdout, _, err := run(t, env, "help", "topics")
	require.NoError(t, err)
	assert.Contains(t, stdout, "precedence")
	assert.Contains(t, stdout, "--dry-run")

	stdout, _, err = run(t, env, "help", "secrets")
	require.NoError(t, err)
	assert.Contains(t, stdout, "allow-secrets")
}
