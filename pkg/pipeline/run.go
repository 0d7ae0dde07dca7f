package pipeline

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/backup"
	"github.com/arthur-debert/harnesssync/pkg/compat"
	"github.com/arthur-debert/harnesssync/pkg/conflict"
	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/internal/hashutil"
	"github.com/arthur-debert/harnesssync/pkg/lock"
	"github.com/arthur-debert/harnesssync/pkg/secrets"
	"github.com/arthur-debert/harnesssync/pkg/source"
	"github.com/arthur-debert/harnesssync/pkg/state"
	"github.com/arthur-debert/harnesssync/pkg/targets"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Run performs one sync. Stages run in a fixed order:
//
//  1. take the project lock
//  2. load state and honour the debounce window
//  3. resolve sources
//  4. secret gate, which stops the run unless AllowSecrets is set
//  5. drift check against the last sync (warnings only)
//  6. per target: back up its artifacts, run its adapter, roll back on failure
//  7. remove broken links from the selected targets' link directories
//  8. build the compatibility report
//  9. save state and prune old backups
//
// Dry runs stop writing after stage 5 and return a per-target preview.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	logger := p.runLogger(runID)
	start := p.now()

	res := &Result{RunID: runID, DryRun: opts.DryRun}

	selected, err := targets.Select(p.targets, opts.Targets)
	if err != nil {
		return res, err
	}

	l, err := lock.Acquire(ctx, p.paths.LockPath(), opts.LockWait)
	if err != nil {
		return res, err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release project lock")
		}
	}()

	st, err := p.store.Load()
	if err != nil {
		return res, err
	}
	if !opts.Force && st.ShouldDebounce(start, opts.Debounce) {
		logger.Info().Dur("window", opts.Debounce).Msg("Sync skipped, previous sync is too recent")
		res.Debounced = true
		return res, nil
	}

	snap, err := p.Resolver(opts.Scope).Snapshot()
	if err != nil {
		return res, err
	}
	res.Resolution = snap.Resolution
	servers := snap.Resolution.Flat()

	findings := p.secrets.ScanServers(servers)
	if len(findings) > 0 {
		res.Findings = findings
		res.Warnings = secrets.FormatWarnings(findings)
		logger.Warn().Int("findings", len(findings)).Msg("Potential secrets in server environment")
	}
	if secrets.ShouldBlock(findings, opts.AllowSecrets) {
		res.Blocked = true
		res.Reason = ReasonSecretsDetected
		return res, errors.Newf(errors.ErrSecretsDetected, "sync blocked: %d potential secret(s) in server environment", len(findings)).
			WithDetail("count", len(findings))
	}

	names := make([]string, 0, len(selected))
	for _, t := range selected {
		names = append(names, t.Name)
	}
	res.Conflicts = conflict.New(p.fs, st).CheckAll(names)
	if conflict.Count(res.Conflicts) > 0 {
		res.ConflictWarnings = conflict.FormatWarnings(res.Conflicts)
		logger.Warn().Int("files", conflict.Count(res.Conflicts)).Msg("Target files changed since last sync")
	}

	res.PackageDrift = st.DetectPackageDrift(packageStates(snap.Resolution, start))
	for name, reason := range res.PackageDrift {
		logger.Info().Str("package", name).Str("change", reason).Msg("Package changed since last sync")
	}

	if opts.DryRun {
		// Every adapter is handed the whole snapshot, so targets share one
		// preview. Targets without an adapter would be skipped and get none.
		res.Previews = make(map[string]Preview, len(selected))
		pv := preview(snap)
		for _, t := range selected {
			if p.adapters.Has(t.Name) {
				res.Previews[t.Name] = pv
			}
		}
		logger.Info().Int("targets", len(selected)).Msg("Dry run, nothing written")
		return res, nil
	}

	if err := p.backups.EnsureRoot(); err != nil {
		return res, err
	}

	res.Results = make(map[string]types.TargetResult)
	res.Backups = make(map[string][]types.BackupRecord)
	synced := make(map[string]bool)
	for _, t := range selected {
		adapter, err := p.adapters.Get(t.Name)
		if err != nil {
			logger.Debug().Str("target", t.Name).Msg("No adapter registered, skipping target")
			continue
		}

		in := &Input{
			RunID:      runID,
			ProjectDir: p.paths.ProjectDir(),
			Target:     t,
			Snapshot:   snap,
			Servers:    servers,
		}
		result, records, syncErr := p.syncTarget(ctx, logger, adapter, in)
		res.Backups[t.Name] = records
		if syncErr != nil {
			res.RolledBack = append(res.RolledBack, t.Name)
			if stderrors.Is(syncErr, errors.New(errors.ErrRollbackPartial, "")) {
				logger.Error().Err(syncErr).Str("target", t.Name).Msg("Rollback incomplete")
			}
			result = failedResult(result, syncErr)
		} else {
			synced[t.Name] = true
		}
		res.Results[t.Name] = result

		hashes := st.FileHashes(t.Name)
		if synced[t.Name] {
			hashes = hashutil.ChecksumFiles(p.fs, result.Written())
		}
		st.RecordSync(t.Name, string(opts.Scope), hashes, state.CountsOf(result), p.now())
	}

	cleaned, err := p.Cleaner().CleanupTargets(names...)
	if err != nil {
		logger.Warn().Err(err).Msg("Symlink cleanup failed")
	}
	res.CleanedLinks = cleaned
	if n := cleaned.Total(); n > 0 {
		logger.Info().Int("removed", n).Msg("Removed broken symlinks")
	}

	res.Report = compat.Generate(res.Results)
	if compat.HasIssues(res.Report) {
		res.ReportText = compat.Format(res.Report)
	}

	st.Project = p.paths.ProjectDir()
	st.RecordPackages(packageStates(snap.Resolution, start))
	st.Touch(p.now())
	if err := p.store.Save(st); err != nil {
		return res, err
	}

	for name := range synced {
		res.Pruned += p.backups.Prune(name, opts.KeepBackups)
	}

	logger.Info().
		Int("targets", len(res.Results)).
		Int("rolled_back", len(res.RolledBack)).
		Dur("duration", p.now().Sub(start)).
		Msg("Sync finished")
	return res, nil
}

// syncTarget backs up the target's artifacts and runs its adapter inside a
// backup session, so that any failure restores what was there before.
func (p *Pipeline) syncTarget(ctx context.Context, logger zerolog.Logger, adapter Adapter, in *Input) (types.TargetResult, []types.BackupRecord, error) {
	var (
		result  types.TargetResult
		records []types.BackupRecord
	)

	err := p.backups.Protect(func(s *backup.Session) error {
		defer func() { records = s.Records() }()

		for _, path := range in.Target.ArtifactPaths(in.ProjectDir) {
			if _, err := s.Backup(path, in.Target.Name); err != nil {
				return err
			}
		}

		r, err := adapter.Sync(ctx, in)
		result = r
		if err != nil {
			return errors.Wrapf(err, errors.ErrAdapterFailed, "adapter for %s failed", in.Target.Name).
				WithDetail("target", in.Target.Name)
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Str("target", in.Target.Name).Msg("Target sync failed, changes rolled back")
		return result, records, err
	}

	logger.Debug().Str("target", in.Target.Name).Int("backups", len(records)).Msg("Target synced")
	return result, records, nil
}

// failedResult marks everything the adapter claimed as failed, since its
// writes were rolled back, and adds the adapter error itself.
func failedResult(partial types.TargetResult, err error) types.TargetResult {
	out := make(types.TargetResult)
	for c, r := range partial {
		var failed []types.Item
		for _, bucket := range [][]types.Item{r.Synced, r.Adapted, r.Failed} {
			for _, item := range bucket {
				if item.Reason == "" {
					item.Reason = "rolled back"
				}
				failed = append(failed, item)
			}
		}
		out[c] = types.SyncResult{Skipped: r.Skipped, Failed: failed}
	}

	reason := err.Error()
	var he *errors.HarnessError
	if stderrors.As(err, &he) && he.Wrapped != nil {
		reason = he.Wrapped.Error()
	}
	sync := out[targetCategory]
	sync.Failed = append(sync.Failed, types.Item{Name: "sync", Reason: reason})
	out[targetCategory] = sync
	return out
}

// targetCategory collects failures that concern the whole target rather
// than one category.
const targetCategory types.Category = "target"

func packageStates(res *source.Resolution, now time.Time) map[string]state.PackageState {
	out := make(map[string]state.PackageState)
	for name, sum := range res.Packages() {
		out[name] = state.PackageState{
			Version:     sum.Version,
			ServerCount: len(sum.Servers),
			Servers:     sum.Servers,
			LastSync:    now,
		}
	}
	return out
}
