// Package conflict detects target files edited or deleted by hand since the
// last sync, so the user can be warned before a sync overwrites them.
//
// Detection is read-only and advisory. It never blocks a sync.
package conflict

import (
	"crypto/subtle"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/arthur-debert/harnesssync/pkg/internal/hashutil"
	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/rs/zerolog"
)

// Baseline supplies the hashes recorded by the last sync. *state.State
// implements it.
type Baseline interface {
	FileHashes(target string) map[string]string
	SyncedTargets() []string
}

// Detector compares live files against a Baseline.
type Detector struct {
	fs       types.FS
	baseline Baseline
	logger   zerolog.Logger
}

// New creates a detector reading files through fs.
func New(fs types.FS, baseline Baseline) *Detector {
	return &Detector{
		fs:       fs,
		baseline: baseline,
		logger:   logging.GetLogger("conflict"),
	}
}

// Check returns the drifted files of one target, ordered by path. A target
// never synced has no conflicts.
func (d *Detector) Check(target string) []types.ConflictEntry {
	hashes := d.baseline.FileHashes(target)
	if len(hashes) == 0 {
		return nil
	}

	var conflicts []types.ConflictEntry
	for _, path := range types.SortedNames(hashes) {
		stored := hashes[path]

		current, err := hashutil.ChecksumFS(d.fs, path)
		if err != nil {
			if _, statErr := d.fs.Stat(path); os.IsNotExist(statErr) {
				conflicts = append(conflicts, types.ConflictEntry{
					TargetName: target,
					FilePath:   path,
					StoredHash: stored,
					Status:     types.ConflictDeleted,
				})
				continue
			}
			d.logger.Warn().Err(err).
				Str("target", target).
				Str("path", path).
				Msg("Cannot read synced file, skipping drift check")
			continue
		}

		if subtle.ConstantTimeCompare([]byte(stored), []byte(current)) != 1 {
			conflicts = append(conflicts, types.ConflictEntry{
				TargetName:  target,
				FilePath:    path,
				StoredHash:  stored,
				CurrentHash: current,
				Status:      types.ConflictModified,
			})
		}
	}

	if len(conflicts) > 0 {
		d.logger.Info().Str("target", target).Int("conflicts", len(conflicts)).Msg("Drift detected")
	}
	return conflicts
}

// CheckAll runs Check for each of targets, or for every target in the
// baseline when targets is empty. Every checked target has a key, possibly
// with no entries.
func (d *Detector) CheckAll(targets []string) map[string][]types.ConflictEntry {
	if len(targets) == 0 {
		targets = d.baseline.SyncedTargets()
	}

	result := make(map[string][]types.ConflictEntry, len(targets))
	for _, target := range targets {
		result[target] = d.Check(target)
	}
	return result
}

// Count is the number of conflicts over all targets.
func Count(conflicts map[string][]types.ConflictEntry) int {
	n := 0
	for _, entries := range conflicts {
		n += len(entries)
	}
	return n
}

// Flatten lists every conflict, ordered by target then path.
func Flatten(conflicts map[string][]types.ConflictEntry) []types.ConflictEntry {
	var out []types.ConflictEntry
	for _, target := range types.SortedNames(conflicts) {
		out = append(out, conflicts[target]...)
	}
	return out
}

// FormatWarnings renders the conflicts for the user, targets and paths in
// lexical order. It returns "" when there are none.
func FormatWarnings(conflicts map[string][]types.ConflictEntry) string {
	if Count(conflicts) == 0 {
		return ""
	}

	var lines []string
	for _, target := range types.SortedNames(conflicts) {
		entries := append([]types.ConflictEntry(nil), conflicts[target]...)
		if len(entries) == 0 {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].FilePath < entries[j].FilePath })

		lines = append(lines, fmt.Sprintf("\n⚠ %s: %d file(s) modified outside harnesssync:",
			strings.ToUpper(target), len(entries)))
		for _, e := range entries {
			lines = append(lines, fmt.Sprintf("  · %s (%s)", e.FilePath, e.Status))
		}
	}

	return strings.Join(lines, "\n") +
		"\n\nThese changes will be overwritten. Run with --dry-run to preview changes."
}
