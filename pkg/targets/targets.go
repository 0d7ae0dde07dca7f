// Package targets describes the target CLIs harnesssync mirrors configuration
// into. A Target only records its footprint inside a project: the artifacts
// that are backed up before it is synced and the directories it fills with
// symlinks. Writing the target's native format is the job of an adapter.
package targets

import (
	"path/filepath"

	"github.com/arthur-debert/harnesssync/pkg/config"
	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/registry"
)

// Target is one downstream CLI.
type Target struct {
	Name string

	// SymlinkDirs are doublestar patterns, relative to the project, of the
	// directories the target links skills, agents or commands into.
	SymlinkDirs []string

	// Artifacts are project relative files or directories the target owns.
	Artifacts []string
}

// ArtifactPaths returns the absolute artifact paths inside projectDir.
func (t Target) ArtifactPaths(projectDir string) []string {
	out := make([]string, 0, len(t.Artifacts))
	for _, a := range t.Artifacts {
		out = append(out, filepath.Join(projectDir, filepath.FromSlash(a)))
	}
	return out
}

// FromConfig builds a registry holding one Target per configured entry.
func FromConfig(cfg map[string]config.TargetConfig) (registry.Registry[Target], error) {
	reg := registry.Of[Target]("target")
	for name, tc := range cfg {
		t := Target{
			Name:        name,
			SymlinkDirs: append([]string(nil), tc.SymlinkDirs...),
			Artifacts:   append([]string(nil), tc.Artifacts...),
		}
		if err := reg.Register(name, t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Select returns the named targets in the order given, or every registered
// target when names is empty.
func Select(reg registry.Registry[Target], names []string) ([]Target, error) {
	if len(names) == 0 {
		return reg.Values(), nil
	}

	out := make([]Target, 0, len(names))
	for _, name := range names {
		t, err := reg.Get(name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTargetNotFound, "unknown target %q", name).
				WithDetail("target", name).
				WithDetail("known", reg.List())
		}
		out = append(out, t)
	}
	return out, nil
}
