// Package backup snapshots target artifacts before a sync overwrites them
// and restores them when the sync fails.
//
// Layout: <root>/<target>/<name>_<timestamp>/<name>, one directory per
// snapshot. Timestamps are UTC with microseconds and sort lexicographically.
// Directories are copied without following symlinks, so a restored tree has
// the same links as the original.
package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/otiai10/copy"
	"github.com/rs/zerolog"
)

// TimestampLayout formats the suffix of every snapshot directory.
const TimestampLayout = "20060102150405.000000"

// DefaultKeep is the number of snapshots kept per target.
const DefaultKeep = 10

// Manager creates, restores and prunes snapshots under one root.
type Manager struct {
	root   string
	logger zerolog.Logger
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now as the source of snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a manager storing snapshots under root.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:   root,
		logger: logging.GetLogger("backup"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root is the directory holding every target's snapshots.
func (m *Manager) Root() string {
	return m.root
}

// EnsureRoot creates the backup root. A sync must not touch any target if
// this fails.
func (m *Manager) EnsureRoot() error {
	if err := os.MkdirAll(m.root, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrBackupRoot, "cannot create backup root %s", m.root).
			WithDetail("path", m.root)
	}
	return nil
}

func copyOptions() copy.Options {
	return copy.Options{
		OnSymlink:     func(string) copy.SymlinkAction { return copy.Shallow },
		PreserveTimes: true,
		Sync:          true,
	}
}

// nextTimestamp returns a timestamp strictly after the previous one so two
// snapshots of the same name never collide.
func (m *Manager) nextTimestamp() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now().UTC().Truncate(time.Microsecond)
	if !ts.After(m.last) {
		ts = m.last.Add(time.Microsecond)
	}
	m.last = ts
	return ts
}

// Backup snapshots the file or directory at path for target. A path that
// does not exist yields a record with Existed false and no snapshot;
// restoring it removes whatever the sync creates there.
func (m *Manager) Backup(path, target string) (types.BackupRecord, error) {
	record := types.BackupRecord{
		TargetName:   target,
		OriginalPath: path,
	}

	if _, err := os.Lstat(path); err != nil {
		if !os.IsNotExist(err) {
			return record, errors.Wrapf(err, errors.ErrBackupCreate, "cannot inspect %s", path).
				WithDetail("path", path)
		}
		record.Timestamp = m.nextTimestamp()
		m.logger.Debug().Str("target", target).Str("path", path).Msg("Nothing to back up, recording absence")
		return record, nil
	}

	name := filepath.Base(path)
	var dir string
	for {
		record.Timestamp = m.nextTimestamp()
		dir = filepath.Join(m.root, target, name+"_"+record.Timestamp.Format(TimestampLayout))
		if _, err := os.Lstat(dir); os.IsNotExist(err) {
			break
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return record, errors.Wrapf(err, errors.ErrBackupCreate, "cannot create backup directory %s", dir)
	}
	if err := copy.Copy(path, filepath.Join(dir, name), copyOptions()); err != nil {
		_ = os.RemoveAll(dir)
		return record, errors.Wrapf(err, errors.ErrBackupCreate, "failed to back up %s", path).
			WithDetail("path", path).
			WithDetail("target", target)
	}

	record.BackupPath = dir
	record.Existed = true
	m.logger.Debug().Str("target", target).Str("path", path).Str("backup", dir).Msg("Backed up artifact")
	return record, nil
}

// Snapshot is one backup directory found on disk.
type Snapshot struct {
	Target    string    `json:"target"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// parseSnapshotName splits "<name>_<timestamp>".
func parseSnapshotName(dirName string) (string, time.Time, bool) {
	idx := strings.LastIndex(dirName, "_")
	if idx <= 0 {
		return "", time.Time{}, false
	}
	ts, err := time.Parse(TimestampLayout, dirName[idx+1:])
	if err != nil {
		return "", time.Time{}, false
	}
	return dirName[:idx], ts, true
}

// List returns the snapshots of target, newest first. Directories whose
// names do not carry a timestamp are ignored.
func (m *Manager) List(target string) ([]Snapshot, error) {
	dir := filepath.Join(m.root, target)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot list backups in %s", dir)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name, ts, ok := parseSnapshotName(entry.Name())
		if !ok {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Target:    target,
			Name:      name,
			Path:      filepath.Join(dir, entry.Name()),
			Timestamp: ts,
		})
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].Timestamp.Equal(snapshots[j].Timestamp) {
			return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
		}
		return snapshots[i].Path > snapshots[j].Path
	})
	return snapshots, nil
}

// Targets lists the targets that have a backup directory.
func (m *Manager) Targets() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot list backup root %s", m.root)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Prune deletes all but the keep newest snapshots of target, oldest first,
// and returns how many were deleted. Failures are logged, never returned.
func (m *Manager) Prune(target string, keep int) int {
	if keep < 0 {
		keep = 0
	}

	snapshots, err := m.List(target)
	if err != nil {
		m.logger.Warn().Err(err).Str("target", target).Msg("Backup pruning skipped")
		return 0
	}
	if len(snapshots) <= keep {
		return 0
	}

	removed := 0
	excess := snapshots[keep:]
	for i := len(excess) - 1; i >= 0; i-- {
		if err := os.RemoveAll(excess[i].Path); err != nil {
			m.logger.Warn().Err(err).Str("path", excess[i].Path).Msg("Failed to delete old backup")
			continue
		}
		removed++
		m.logger.Debug().Str("path", excess[i].Path).Msg("Deleted old backup")
	}

	if removed > 0 {
		m.logger.Info().Str("target", target).Int("removed", removed).Int("kept", keep).Msg("Pruned backups")
	}
	return removed
}
