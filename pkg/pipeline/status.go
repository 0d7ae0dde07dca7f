package pipeline

import (
	"time"

	"github.com/arthur-debert/harnesssync/pkg/conflict"
	"github.com/arthur-debert/harnesssync/pkg/state"
	"github.com/arthur-debert/harnesssync/pkg/targets"
	"github.com/arthur-debert/harnesssync/pkg/types"
)

// TargetStatus is the read-only view of one target.
type TargetStatus struct {
	Name        string                `json:"name"`
	HasAdapter  bool                  `json:"has_adapter"`
	Synced      bool                  `json:"synced"`
	LastSync    *time.Time            `json:"last_sync,omitempty"`
	Status      state.Status          `json:"status,omitempty"`
	Counts      state.Counts          `json:"counts"`
	Files       int                   `json:"files"`
	Conflicts   []types.ConflictEntry `json:"conflicts,omitempty"`
	Backups     int                   `json:"backups"`
	BrokenLinks []string              `json:"broken_links,omitempty"`
}

// StatusReport summarizes the project without writing anything.
type StatusReport struct {
	ProjectDir   string                        `json:"project_dir"`
	LastSync     *time.Time                    `json:"last_sync,omitempty"`
	Targets      []TargetStatus                `json:"targets"`
	Packages     map[string]state.PackageState `json:"packages,omitempty"`
	PackageDrift map[string]string             `json:"package_drift,omitempty"`
}

// Status reports what the last sync recorded, which target files drifted
// since, which packages changed and which links are broken. It takes no
// lock and writes nothing.
func (p *Pipeline) Status(opts Options) (*StatusReport, error) {
	selected, err := targets.Select(p.targets, opts.Targets)
	if err != nil {
		return nil, err
	}

	st, err := p.store.Load()
	if err != nil {
		return nil, err
	}

	res, err := p.Resolver(opts.Scope).Resolve()
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		ProjectDir:   p.paths.ProjectDir(),
		LastSync:     st.LastSync,
		Packages:     st.Packages,
		PackageDrift: st.DetectPackageDrift(packageStates(res, p.now())),
	}

	detector := conflict.New(p.fs, st)
	cleaner := p.Cleaner()
	for _, t := range selected {
		ts := TargetStatus{Name: t.Name, HasAdapter: p.adapters.Has(t.Name)}

		if rec, ok := st.Target(t.Name); ok {
			last := rec.LastSync
			ts.Synced = true
			ts.LastSync = &last
			ts.Status = rec.Status
			ts.Counts = state.Counts{
				Synced:  rec.ItemsSynced,
				Adapted: rec.ItemsAdapted,
				Skipped: rec.ItemsSkipped,
				Failed:  rec.ItemsFailed,
			}
			ts.Files = len(rec.FileHashes)
			ts.Conflicts = detector.Check(t.Name)
		}

		if snaps, err := p.backups.List(t.Name); err == nil {
			ts.Backups = len(snaps)
		}
		if broken, err := cleaner.Preview(t.Name); err == nil {
			ts.BrokenLinks = broken
		}

		report.Targets = append(report.Targets, ts)
	}
	return report, nil
}
