// Package state persists what the last sync did: per target the hashes of
// the files it wrote (the drift baseline), its item counts and status, and a
// summary of the installed packages that contributed servers.
//
// A State is loaded once at the start of a sync, changed in memory, and
// written back once at the end with an atomic replace. Nothing mutates the
// file mid-sync.
package state

import (
	"fmt"
	"sort"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/types"
)

// Version is the schema version written by this package.
const Version = 2

// Status summarizes how a target's last sync went.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Counts are the item totals of one target sync.
type Counts struct {
	Synced  int
	Adapted int
	Skipped int
	Failed  int
}

// CountsOf sums a target result into Counts.
func CountsOf(r types.TargetResult) Counts {
	synced, adapted, skipped, failed := r.Counts()
	return Counts{Synced: synced, Adapted: adapted, Skipped: skipped, Failed: failed}
}

// StatusFor derives the status of a sync from its counts. Adapted items
// count as delivered.
func StatusFor(c Counts) Status {
	switch {
	case c.Failed == 0:
		return StatusSuccess
	case c.Synced+c.Adapted > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// TargetState is the record of the last sync of one target.
type TargetState struct {
	LastSync     time.Time         `json:"last_sync"`
	Status       Status            `json:"status"`
	Scope        string            `json:"scope"`
	FileHashes   map[string]string `json:"file_hashes"`
	ItemsSynced  int               `json:"items_synced"`
	ItemsAdapted int               `json:"items_adapted"`
	ItemsSkipped int               `json:"items_skipped"`
	ItemsFailed  int               `json:"items_failed"`
}

// PackageState summarizes one installed package as of the last sync.
type PackageState struct {
	Version     string    `json:"version"`
	ServerCount int       `json:"server_count"`
	Servers     []string  `json:"servers"`
	LastSync    time.Time `json:"last_sync"`
}

// State is the whole persisted document.
type State struct {
	Version  int                     `json:"version"`
	Project  string                  `json:"project,omitempty"`
	LastSync *time.Time              `json:"last_sync,omitempty"`
	Targets  map[string]*TargetState `json:"targets"`
	Packages map[string]PackageState `json:"plugins"`
}

// New returns an empty state.
func New() *State {
	return &State{
		Version:  Version,
		Targets:  make(map[string]*TargetState),
		Packages: make(map[string]PackageState),
	}
}

func (s *State) normalize() {
	if s.Targets == nil {
		s.Targets = make(map[string]*TargetState)
	}
	if s.Packages == nil {
		s.Packages = make(map[string]PackageState)
	}
	for name, t := range s.Targets {
		if t == nil {
			delete(s.Targets, name)
			continue
		}
		if t.FileHashes == nil {
			t.FileHashes = make(map[string]string)
		}
	}
}

// Target returns the record of a target, if it was ever synced.
func (s *State) Target(name string) (TargetState, bool) {
	t, ok := s.Targets[name]
	if !ok {
		return TargetState{}, false
	}
	return *t, true
}

// FileHashes returns a copy of the drift baseline of a target.
func (s *State) FileHashes(target string) map[string]string {
	t, ok := s.Targets[target]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(t.FileHashes))
	for path, hash := range t.FileHashes {
		out[path] = hash
	}
	return out
}

// SyncedTargets lists the targets with a record, in lexical order.
func (s *State) SyncedTargets() []string {
	names := make([]string, 0, len(s.Targets))
	for name := range s.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordSync replaces the record of target with the outcome of a sync at now.
func (s *State) RecordSync(target, scope string, hashes map[string]string, c Counts, now time.Time) {
	fileHashes := make(map[string]string, len(hashes))
	for path, hash := range hashes {
		fileHashes[path] = hash
	}

	s.Targets[target] = &TargetState{
		LastSync:     now,
		Status:       StatusFor(c),
		Scope:        scope,
		FileHashes:   fileHashes,
		ItemsSynced:  c.Synced,
		ItemsAdapted: c.Adapted,
		ItemsSkipped: c.Skipped,
		ItemsFailed:  c.Failed,
	}
	s.Touch(now)
}

// Touch sets the global last-sync time used for debouncing.
func (s *State) Touch(now time.Time) {
	t := now
	s.LastSync = &t
}

// ClearTarget forgets a target. It reports whether there was a record.
func (s *State) ClearTarget(name string) bool {
	if _, ok := s.Targets[name]; !ok {
		return false
	}
	delete(s.Targets, name)
	return true
}

// RecordPackages replaces the whole package section.
func (s *State) RecordPackages(packages map[string]PackageState) {
	s.Packages = make(map[string]PackageState, len(packages))
	for name, p := range packages {
		s.Packages[name] = p
	}
}

// Drift reasons reported by DetectPackageDrift.
const (
	DriftAdded   = "added"
	DriftRemoved = "removed"
)

// DetectPackageDrift compares current against the recorded packages and
// returns a reason per changed package: "added", "removed",
// "version_changed: a -> b" or "server_count_changed: a -> b". A version
// change hides a server count change.
func (s *State) DetectPackageDrift(current map[string]PackageState) map[string]string {
	drift := make(map[string]string)

	for name := range s.Packages {
		if _, ok := current[name]; !ok {
			drift[name] = DriftRemoved
		}
	}

	for name, now := range current {
		before, ok := s.Packages[name]
		switch {
		case !ok:
			drift[name] = DriftAdded
		case before.Version != now.Version:
			drift[name] = fmt.Sprintf("version_changed: %s -> %s", before.Version, now.Version)
		case before.ServerCount != now.ServerCount:
			drift[name] = fmt.Sprintf("server_count_changed: %d -> %d", before.ServerCount, now.ServerCount)
		}
	}
	return drift
}

// ShouldDebounce reports whether a sync at now falls within window of the
// previous one. A zero window never debounces.
func (s *State) ShouldDebounce(now time.Time, window time.Duration) bool {
	if window <= 0 || s.LastSync == nil {
		return false
	}
	elapsed := now.Sub(*s.LastSync)
	return elapsed >= 0 && elapsed < window
}
