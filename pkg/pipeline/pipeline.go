// Package pipeline runs a sync: it wraps the target adapters in the safety
// layer (lock, secret gate, drift warnings, backups with rollback, link
// cleanup, compatibility report, state) in a fixed stage order.
package pipeline

import (
	"context"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/backup"
	"github.com/arthur-debert/harnesssync/pkg/compat"
	"github.com/arthur-debert/harnesssync/pkg/config"
	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/filesystem"
	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/arthur-debert/harnesssync/pkg/paths"
	"github.com/arthur-debert/harnesssync/pkg/registry"
	"github.com/arthur-debert/harnesssync/pkg/secrets"
	"github.com/arthur-debert/harnesssync/pkg/source"
	"github.com/arthur-debert/harnesssync/pkg/state"
	"github.com/arthur-debert/harnesssync/pkg/symlinks"
	"github.com/arthur-debert/harnesssync/pkg/targets"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/rs/zerolog"
)

// Adapter writes the discovered configuration into one target's native
// format. Adapters only write; backups, rollback and state belong to the
// pipeline.
type Adapter interface {
	Target() string
	Sync(ctx context.Context, in *Input) (types.TargetResult, error)
}

// Input is what an adapter receives for one target.
type Input struct {
	RunID      string
	ProjectDir string
	Target     targets.Target
	Snapshot   *source.Snapshot
	// Servers is the resolved server view without provenance.
	Servers map[string]types.ServerConfig
}

// Options control one run.
type Options struct {
	Scope        types.ScopeFilter
	DryRun       bool
	AllowSecrets bool
	// Force ignores the debounce window.
	Force       bool
	Debounce    time.Duration
	KeepBackups int
	LockWait    time.Duration
	// Targets limits the run to the named targets. Empty means all.
	Targets []string
}

// OptionsFromConfig fills Options from the application configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Scope:       cfg.ScopeFilter(),
		Debounce:    cfg.Sync.Debounce,
		KeepBackups: cfg.Backup.Keep,
		LockWait:    cfg.Lock.Wait,
	}
}

// Pipeline holds everything a run needs.
type Pipeline struct {
	paths    paths.Paths
	fs       types.FS
	targets  registry.Registry[targets.Target]
	adapters registry.Registry[Adapter]
	secrets  *secrets.Detector
	store    *state.Store
	backups  *backup.Manager
	now      func() time.Time

	// pending adapters from WithAdapters, registered by New
	pending []Adapter
}

// Option customizes New.
type Option func(*Pipeline)

// WithFS replaces the filesystem used for reading sources and hashing.
func WithFS(fs types.FS) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithAdapters registers adapters as RegisterAdapter does. New fails if
// one names an unknown target or a target that already has an adapter.
func WithAdapters(adapters ...Adapter) Option {
	return func(p *Pipeline) {
		p.pending = append(p.pending, adapters...)
	}
}

// New builds a pipeline for the project p points at.
func New(p paths.Paths, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	reg, err := targets.FromConfig(cfg.Targets)
	if err != nil {
		return nil, err
	}

	pl := &Pipeline{
		paths:    p,
		fs:       filesystem.NewOS(),
		targets:  reg,
		adapters: registry.Of[Adapter]("adapter"),
		secrets:  secrets.New(cfg.Secrets),
		store:    state.NewStore(p.StateFile()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(pl)
	}
	pl.backups = backup.NewManager(p.BackupRoot(), backup.WithClock(pl.now))

	for _, a := range pl.pending {
		if err := pl.RegisterAdapter(a); err != nil {
			return nil, err
		}
	}
	pl.pending = nil
	return pl, nil
}

// RegisterAdapter adds an adapter. A target has at most one.
func (p *Pipeline) RegisterAdapter(a Adapter) error {
	if !p.targets.Has(a.Target()) {
		return errors.Newf(errors.ErrTargetNotFound, "no target named %q for adapter", a.Target()).
			WithDetail("target", a.Target())
	}
	return p.adapters.Register(a.Target(), a)
}

// Targets is the target registry.
func (p *Pipeline) Targets() registry.Registry[targets.Target] {
	return p.targets
}

// Backups is the backup manager.
func (p *Pipeline) Backups() *backup.Manager {
	return p.backups
}

// Store is the state store.
func (p *Pipeline) Store() *state.Store {
	return p.store
}

// Resolver builds a source resolver for scope.
func (p *Pipeline) Resolver(scope types.ScopeFilter) *source.Resolver {
	return source.New(p.fs, p.paths, scope)
}

// Cleaner builds the symlink cleaner for the project.
func (p *Pipeline) Cleaner() *symlinks.Cleaner {
	return symlinks.New(p.paths.ProjectDir(), p.targets)
}

func (p *Pipeline) runLogger(runID string) zerolog.Logger {
	return logging.With(map[string]any{
		"component": "pipeline",
		"run_id":    runID,
		"project":   p.paths.ProjectDir(),
	})
}

// Preview lists, per category, the items a target would receive.
type Preview map[types.Category][]string

func preview(snap *source.Snapshot) Preview {
	pv := Preview{}
	if snap.Rules != "" {
		for _, f := range snap.RuleFiles {
			pv[types.CategoryRules] = append(pv[types.CategoryRules], f.Path)
		}
	}
	pv[types.CategorySkills] = types.SortedNames(snap.Skills)
	pv[types.CategoryAgents] = types.SortedNames(snap.Agents)
	pv[types.CategoryCommands] = types.SortedNames(snap.Commands)
	pv[types.CategoryMCP] = types.SortedNames(snap.Resolution.Servers)
	pv[types.CategorySettings] = types.SortedNames(snap.Settings)
	for c, names := range pv {
		if len(names) == 0 {
			delete(pv, c)
		}
	}
	return pv
}

// Result is the outcome of a run.
type Result struct {
	RunID  string `json:"run_id"`
	DryRun bool   `json:"dry_run"`

	// Debounced is set when the run was skipped because the previous sync
	// happened within the debounce window.
	Debounced bool `json:"debounced,omitempty"`

	// Blocked is set when the secret gate stopped the run before any write.
	Blocked  bool                  `json:"blocked,omitempty"`
	Reason   string                `json:"reason,omitempty"`
	Findings []types.SecretFinding `json:"findings,omitempty"`
	Warnings string                `json:"-"`

	Conflicts        map[string][]types.ConflictEntry `json:"conflicts,omitempty"`
	ConflictWarnings string                           `json:"-"`

	Resolution *source.Resolution              `json:"-"`
	Results    map[string]types.TargetResult   `json:"results,omitempty"`
	Previews   map[string]Preview              `json:"previews,omitempty"`
	Backups    map[string][]types.BackupRecord `json:"backups,omitempty"`
	RolledBack []string                        `json:"rolled_back,omitempty"`

	CleanedLinks symlinks.Result   `json:"cleaned_links,omitempty"`
	Report       compat.Report     `json:"report,omitempty"`
	ReportText   string            `json:"-"`
	PackageDrift map[string]string `json:"package_drift,omitempty"`
	Pruned       int               `json:"pruned,omitempty"`
}

// ReasonSecretsDetected is the Reason of a run blocked by the secret gate.
const ReasonSecretsDetected = "secrets_detected"
