package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/config"
	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/lock"
	"github.com/arthur-debert/harnesssync/pkg/paths"
	"github.com/arthur-debert/harnesssync/pkg/pipeline"
	"github.com/arthur-debert/harnesssync/pkg/testutil"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter writes fixed files into the project and reports them as
// synced rules.
type fakeAdapter struct {
	target string
	files  map[string]string
	err    error
	calls  int

	// started is closed when Sync begins; Sync then waits for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeAdapter) Target() string { return f.target }

func (f *fakeAdapter) Sync(_ context.Context, in *pipeline.Input) (types.TargetResult, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
		<-f.release
	}

	names := make([]string, 0, len(f.files))
	for rel := range f.files {
		names = append(names, rel)
	}
	sort.Strings(names)

	var result types.SyncResult
	for _, rel := range names {
		path := filepath.Join(in.ProjectDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(f.files[rel]), 0644); err != nil {
			return nil, err
		}
		result.Synced = append(result.Synced, types.Item{Name: rel})
		result.Written = append(result.Written, path)
	}
	return types.TargetResult{types.CategoryRules: result}, f.err
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	env   *testutil.TestEnvironment
	cfg   *config.Config
	clock *clock
	p     *pipeline.Pipeline
}

func newFixture(t *testing.T, adapters ...*fakeAdapter) *fixture {
	t.Helper()

	env := testutil.NewTestEnvironment(t)
	cfg := config.Default()
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	p, err := pipeline.New(env.Paths, cfg, pipeline.WithClock(c.Now))
	require.NoError(t, err)
	for _, a := range adapters {
		require.NoError(t, p.RegisterAdapter(a))
	}

	return &fixture{env: env, cfg: cfg, clock: c, p: p}
}

// pipelineFor builds a pipeline for another project sharing the fixture's
// state dir, config and clock.
func (f *fixture) pipelineFor(t *testing.T, p paths.Paths, adapters ...*fakeAdapter) *pipeline.Pipeline {
	t.Helper()

	list := make([]pipeline.Adapter, 0, len(adapters))
	for _, a := range adapters {
		list = append(list, a)
	}
	pl, err := pipeline.New(p, f.cfg, pipeline.WithClock(f.clock.Now), pipeline.WithAdapters(list...))
	require.NoError(t, err)
	return pl
}

func (f *fixture) options() pipeline.Options {
	opts := pipeline.OptionsFromConfig(f.cfg)
	opts.Debounce = 0
	return opts
}

func TestRun_SyncsTargetsAndRecordsState(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	f := newFixture(t, codex)
	testutil.CreateFile(t, f.env.ProjectDir, "CLAUDE.md", "be nice")
	f.env.WriteProjectServers(map[string]types.ServerConfig{"fs": {"command": "mcp-fs"}})

	res, err := f.p.Run(context.Background(), f.options())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.Blocked)
	assert.Equal(t, 1, codex.calls)
	testutil.AssertFileContent(t, filepath.Join(f.env.ProjectDir, "AGENTS.md"), "codex rules")

	require.Contains(t, res.Results, "codex")
	assert.NotContains(t, res.Results, "gemini", "targets without an adapter are skipped")
	assert.Empty(t, res.ReportText)
	assert.Contains(t, res.Resolution.Servers, "fs")

	// Artifacts that did not exist are recorded so that a rollback removes them.
	require.Len(t, res.Backups["codex"], 2)
	for _, rec := range res.Backups["codex"] {
		assert.False(t, rec.Existed)
	}

	st, err := f.p.Store().Load()
	require.NoError(t, err)
	rec, ok := st.Target("codex")
	require.True(t, ok)
	assert.Contains(t, rec.FileHashes, filepath.Join(f.env.ProjectDir, "AGENTS.md"))
	assert.Equal(t, 1, rec.ItemsSynced)
	require.NotNil(t, st.LastSync)
}

func TestRun_AdapterFailureRollsBackOnlyThatTarget(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	gemini := &fakeAdapter{
		target: "gemini",
		files:  map[string]string{"GEMINI.md": "half written", ".gemini/settings.json": "{}"},
		err:    fmt.Errorf("translation failed"),
	}
	f := newFixture(t, codex, gemini)
	testutil.CreateFile(t, f.env.ProjectDir, "AGENTS.md", "old agents")
	testutil.CreateFile(t, f.env.ProjectDir, "GEMINI.md", "old gemini")

	res, err := f.p.Run(context.Background(), f.options())
	require.NoError(t, err)

	testutil.AssertFileContent(t, filepath.Join(f.env.ProjectDir, "AGENTS.md"), "codex rules")
	testutil.AssertFileContent(t, filepath.Join(f.env.ProjectDir, "GEMINI.md"), "old gemini")
	testutil.AssertNoPath(t, filepath.Join(f.env.ProjectDir, ".gemini"))

	assert.Equal(t, []string{"gemini"}, res.RolledBack)
	synced, adapted, _, failed := res.Results["gemini"].Counts()
	assert.Zero(t, synced+adapted)
	assert.Equal(t, 3, failed)
	assert.NotEmpty(t, res.ReportText)
	assert.Contains(t, res.ReportText, "translation failed")

	st, err := f.p.Store().Load()
	require.NoError(t, err)
	rec, ok := st.Target("gemini")
	require.True(t, ok)
	assert.Empty(t, rec.FileHashes)
	assert.Equal(t, "failed", string(rec.Status))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	gemini := &fakeAdapter{target: "gemini", files: map[string]string{"GEMINI.md": "gemini rules"}}
	f := newFixture(t, codex, gemini)
	testutil.CreateFile(t, f.env.ProjectDir, "CLAUDE.md", "be nice")
	f.env.WriteProjectServers(map[string]types.ServerConfig{"fs": {"command": "mcp-fs"}})

	opts := f.options()
	opts.DryRun = true
	res, err := f.p.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Zero(t, codex.calls)
	assert.Zero(t, gemini.calls)
	testutil.AssertNoPath(t, filepath.Join(f.env.ProjectDir, "AGENTS.md"))
	testutil.AssertNoPath(t, f.env.Paths.StateFile())
	testutil.AssertNoPath(t, f.env.Paths.BackupRoot())

	require.Contains(t, res.Previews, "codex")
	assert.Equal(t, []string{"fs"}, res.Previews["codex"][types.CategoryMCP])
	assert.Equal(t, []string{filepath.Join(f.env.ProjectDir, "CLAUDE.md")}, res.Previews["codex"][types.CategoryRules])

	// Adapters all receive the same snapshot; a target without one is not run.
	assert.Equal(t, res.Previews["codex"], res.Previews["gemini"])
	assert.NotContains(t, res.Previews, "opencode")
}

func TestRun_SecretsBlockBeforeAnyWrite(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	f := newFixture(t, codex)
	f.env.WriteProjectServers(map[string]types.ServerConfig{
		"api": {"command": "api", "env": map[string]interface{}{"API_KEY": "sk1234567890abcdefghijkl"}},
	})

	res, err := f.p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrSecretsDetected))
	assert.True(t, res.Blocked)
	assert.Equal(t, pipeline.ReasonSecretsDetected, res.Reason)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "API_KEY", res.Findings[0].VariableName)
	assert.NotContains(t, res.Warnings, "sk1234567890abcdefghijkl")

	assert.Zero(t, codex.calls)
	testutil.AssertNoPath(t, f.env.Paths.StateFile())

	opts := f.options()
	opts.AllowSecrets = true
	res, err = f.p.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, res.Blocked)
	assert.Len(t, res.Findings, 1)
	assert.Equal(t, 1, codex.calls)
}

func TestRun_Debounce(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	f := newFixture(t, codex)

	opts := f.options()
	opts.Debounce = 3 * time.Second

	_, err := f.p.Run(context.Background(), opts)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	res, err := f.p.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, res.Debounced)
	assert.Equal(t, 1, codex.calls)

	opts.Force = true
	res, err = f.p.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, res.Debounced)
	assert.Equal(t, 2, codex.calls)

	opts.Force = false
	f.clock.Advance(5 * time.Second)
	res, err = f.p.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, res.Debounced)
	assert.Equal(t, 3, codex.calls)
}

func TestRun_LockContentionFailsFast(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	f := newFixture(t, codex)

	held, err := lock.Acquire(context.Background(), f.env.Paths.LockPath(), 0)
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	_, err = f.p.Run(context.Background(), f.options())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLockHeld))
	assert.Zero(t, codex.calls)
}

func TestRun_ReportsConflicts(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	f := newFixture(t, codex)

	_, err := f.p.Run(context.Background(), f.options())
	require.NoError(t, err)

	agents := filepath.Join(f.env.ProjectDir, "AGENTS.md")
	require.NoError(t, os.WriteFile(agents, []byte("edited by hand"), 0644))

	res, err := f.p.Run(context.Background(), f.options())
	require.NoError(t, err)

	require.Len(t, res.Conflicts["codex"], 1)
	assert.Equal(t, types.ConflictModified, res.Conflicts["codex"][0].Status)
	assert.Contains(t, res.ConflictWarnings, "CODEX: 1 file(s) modified outside harnesssync")

	// Conflicts are advisory: the sync still went ahead.
	testutil.AssertFileContent(t, agents, "codex rules")
}

func TestRun_ConcurrentProjectsKeepTheirOwnState(t *testing.T) {
	codexA := &fakeAdapter{
		target:  "codex",
		files:   map[string]string{"AGENTS.md": "project a"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, codexA)
	projectB := f.env.AddProject("project-b")
	geminiB := &fakeAdapter{target: "gemini", files: map[string]string{"GEMINI.md": "project b"}}
	pb := f.pipelineFor(t, projectB, geminiB)

	done := make(chan error, 1)
	go func() {
		_, err := f.p.Run(context.Background(), f.options())
		done <- err
	}()
	<-codexA.started

	// Project A is mid-sync and holds its own lock only.
	_, err := pb.Run(context.Background(), f.options())
	require.NoError(t, err)

	close(codexA.release)
	require.NoError(t, <-done)

	stA, err := f.p.Store().Load()
	require.NoError(t, err)
	assert.Equal(t, f.env.ProjectDir, stA.Project)
	_, ok := stA.Target("codex")
	assert.True(t, ok)
	_, ok = stA.Target("gemini")
	assert.False(t, ok)

	stB, err := pb.Store().Load()
	require.NoError(t, err)
	assert.Equal(t, projectB.ProjectDir(), stB.Project)
	_, ok = stB.Target("gemini")
	assert.True(t, ok, "project b's sync survives project a saving afterwards")
	_, ok = stB.Target("codex")
	assert.False(t, ok)
}

func TestRun_BaselinesArePerProject(t *testing.T) {
	f := newFixture(t, &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}})
	projectB := f.env.AddProject("project-b")
	pb := f.pipelineFor(t, projectB, &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}})

	opts := f.options()
	opts.Debounce = 3 * time.Second

	_, err := f.p.Run(context.Background(), opts)
	require.NoError(t, err)

	res, err := pb.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, res.Debounced, "another project's sync does not debounce this one")

	agents := filepath.Join(f.env.ProjectDir, "AGENTS.md")
	require.NoError(t, os.WriteFile(agents, []byte("edited by hand"), 0644))

	dry := f.options()
	dry.DryRun = true
	res, err = f.p.Run(context.Background(), dry)
	require.NoError(t, err)

	require.Len(t, res.Conflicts["codex"], 1)
	assert.Equal(t, agents, res.Conflicts["codex"][0].FilePath)
	assert.Equal(t, types.ConflictModified, res.Conflicts["codex"][0].Status)
}

func TestRun_CleansLinksOfSelectedTargetsOnly(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	f := newFixture(t, codex)

	missing := filepath.Join(f.env.Root, "missing")
	codexLink := filepath.Join(f.env.ProjectDir, ".codex", "skills", "gone")
	opencodeLink := filepath.Join(f.env.ProjectDir, ".opencode", "skills", "gone")
	testutil.CreateSymlink(t, missing, codexLink)
	testutil.CreateSymlink(t, missing, opencodeLink)

	opts := f.options()
	opts.Targets = []string{"codex"}
	res, err := f.p.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{codexLink}, res.CleanedLinks["codex"])
	assert.NotContains(t, res.CleanedLinks, "opencode")
	testutil.AssertNoPath(t, codexLink)
	assert.True(t, testutil.SymlinkExists(t, opencodeLink))
}

func TestRun_PrunesBackups(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	f := newFixture(t, codex)
	testutil.CreateFile(t, f.env.ProjectDir, "AGENTS.md", "old")

	opts := f.options()
	opts.KeepBackups = 2
	for i := 0; i < 4; i++ {
		_, err := f.p.Run(context.Background(), opts)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	snaps, err := f.p.Backups().List("codex")
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestRun_UnknownTarget(t *testing.T) {
	f := newFixture(t)

	opts := f.options()
	opts.Targets = []string{"nope"}
	_, err := f.p.Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTargetNotFound))
}

func TestRegisterAdapter_UnknownTarget(t *testing.T) {
	f := newFixture(t)
	err := f.p.RegisterAdapter(&fakeAdapter{target: "nope"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTargetNotFound))
}

func TestNew_WithAdapters(t *testing.T) {
	env := testutil.NewTestEnvironment(t)
	cfg := config.Default()

	_, err := pipeline.New(env.Paths, cfg, pipeline.WithAdapters(&fakeAdapter{target: "vscode"}))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTargetNotFound))

	_, err = pipeline.New(env.Paths, cfg, pipeline.WithAdapters(&fakeAdapter{target: "codex"}, &fakeAdapter{target: "codex"}))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))

	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	p, err := pipeline.New(env.Paths, cfg, pipeline.WithAdapters(codex))
	require.NoError(t, err)

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Debounce = 0
	_, err = p.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, codex.calls)
}

func TestStatus(t *testing.T) {
	codex := &fakeAdapter{target: "codex", files: map[string]string{"AGENTS.md": "codex rules"}}
	f := newFixture(t, codex)

	_, err := f.p.Run(context.Background(), f.options())
	require.NoError(t, err)

	report, err := f.p.Status(f.options())
	require.NoError(t, err)
	require.Len(t, report.Targets, 3)

	byName := map[string]pipeline.TargetStatus{}
	for _, ts := range report.Targets {
		byName[ts.Name] = ts
	}

	codexStatus := byName["codex"]
	assert.True(t, codexStatus.HasAdapter)
	assert.True(t, codexStatus.Synced)
	assert.Equal(t, 1, codexStatus.Files)
	assert.Empty(t, codexStatus.Conflicts)

	assert.False(t, byName["gemini"].Synced)
	assert.False(t, byName["gemini"].HasAdapter)
}
