// Package symlinks removes links left dangling in the directories targets
// fill with symlinks, typically after a skill or agent was deleted from the
// source configuration.
package symlinks

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/arthur-debert/harnesssync/pkg/registry"
	"github.com/arthur-debert/harnesssync/pkg/targets"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
)

// IsBroken reports whether path is a symlink whose destination cannot be
// reached. Both checks are needed: a missing path is not a broken link, and
// a missing link destination alone says nothing about path itself.
func IsBroken(path string) bool {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return false
	}
	_, err = os.Stat(path)
	return err != nil
}

// FindBroken walks dir recursively, without following links, and returns
// every broken link in lexical order. A missing dir yields nothing.
func FindBroken(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	var broken []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// Unreadable subtrees are skipped, the rest is still scanned.
			return filepath.SkipDir
		}
		if d.Type()&fs.ModeSymlink != 0 && IsBroken(path) {
			broken = append(broken, path)
		}
		return nil
	})
	if err != nil {
		return broken, errors.Wrapf(err, errors.ErrFileAccess, "cannot scan %s", dir)
	}

	sort.Strings(broken)
	return broken, nil
}

// Cleaner applies FindBroken to the symlink directories of each target.
type Cleaner struct {
	projectDir string
	targets    registry.Registry[targets.Target]
	logger     zerolog.Logger
}

// New creates a cleaner for the targets of one project.
func New(projectDir string, reg registry.Registry[targets.Target]) *Cleaner {
	return &Cleaner{
		projectDir: projectDir,
		targets:    reg,
		logger:     logging.GetLogger("symlinks"),
	}
}

// Dirs expands the target's directory patterns against the project and
// returns the existing directories they match.
func (c *Cleaner) Dirs(target targets.Target) ([]string, error) {
	fsys := os.DirFS(c.projectDir)
	seen := make(map[string]bool)
	var dirs []string

	for _, pattern := range target.SymlinkDirs {
		pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")
		if pattern == "" {
			continue
		}
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidInput, "bad symlink directory pattern %q for %s", pattern, target.Name).
				WithDetail("target", target.Name)
		}
		for _, m := range matches {
			abs := filepath.Join(c.projectDir, filepath.FromSlash(m))
			if seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err != nil || !info.IsDir() {
				continue
			}
			seen[abs] = true
			dirs = append(dirs, abs)
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// Preview lists the broken links Cleanup would remove for a target.
func (c *Cleaner) Preview(name string) ([]string, error) {
	target, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return c.find(target)
}

// Cleanup removes the broken links of a target and returns the removed
// paths. A link that cannot be removed is logged and left out.
func (c *Cleaner) Cleanup(name string) ([]string, error) {
	target, err := c.lookup(name)
	if err != nil {
		return nil, err
	}

	broken, err := c.find(target)
	var removed []string
	for _, link := range broken {
		if rmErr := os.Remove(link); rmErr != nil {
			c.logger.Error().Err(rmErr).Str("path", link).Msg("Failed to remove broken symlink")
			continue
		}
		removed = append(removed, link)
		c.logger.Info().Str("target", name).Str("path", c.rel(link)).Msg("Removed broken symlink")
	}
	return removed, err
}

// Result maps each target to the links removed for it.
type Result map[string][]string

// Total is the number of links removed over all targets.
func (r Result) Total() int {
	n := 0
	for _, links := range r {
		n += len(links)
	}
	return n
}

// CleanupTargets runs Cleanup for the named targets, or for every
// registered target when names is empty. A failing target does not stop the
// others; their errors are joined. Targets with nothing removed are left
// out of the result.
func (c *Cleaner) CleanupTargets(names ...string) (Result, error) {
	if len(names) == 0 {
		names = c.targets.List()
	}

	result := make(Result)
	var errs []error
	for _, name := range names {
		removed, err := c.Cleanup(name)
		if len(removed) > 0 {
			result[name] = removed
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return result, stderrors.Join(errs...)
}

func (c *Cleaner) lookup(name string) (targets.Target, error) {
	target, err := c.targets.Get(name)
	if err != nil {
		return targets.Target{}, errors.Wrapf(err, errors.ErrTargetNotFound, "unknown target %q", name).
			WithDetail("target", name)
	}
	return target, nil
}

func (c *Cleaner) find(target targets.Target) ([]string, error) {
	dirs, err := c.Dirs(target)
	if err != nil {
		return nil, err
	}

	var broken []string
	var errs []error
	for _, dir := range dirs {
		links, err := FindBroken(dir)
		if err != nil {
			c.logger.Warn().Err(err).Str("dir", dir).Msg("Error scanning symlink directory")
			errs = append(errs, err)
		}
		broken = append(broken, links...)
	}
	return broken, stderrors.Join(errs...)
}

func (c *Cleaner) rel(path string) string {
	if rel, err := filepath.Rel(c.projectDir, path); err == nil {
		return rel
	}
	return path
}
