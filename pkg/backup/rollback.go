package backup

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/otiai10/copy"
)

// RollbackFailure is a record that could not be restored.
type RollbackFailure struct {
	Record types.BackupRecord
	Err    error
}

// RollbackResult reports what a rollback restored. Records appear in the
// order they were processed, which is the reverse of the input.
type RollbackResult struct {
	Restored []types.BackupRecord
	Failed   []RollbackFailure
}

// Err is nil when every record was restored, and a ROLLBACK_PARTIAL error
// joining the individual failures otherwise.
func (r *RollbackResult) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Record.OriginalPath, f.Err))
	}
	return errors.Wrapf(stderrors.Join(errs...), errors.ErrRollbackPartial,
		"restored %d of %d artifacts", len(r.Restored), len(r.Restored)+len(r.Failed))
}

// Rollback restores records in reverse order, so later snapshots are undone
// first. It is best effort: a failure is logged and recorded and the
// remaining records are still attempted.
func (m *Manager) Rollback(records []types.BackupRecord) *RollbackResult {
	result := &RollbackResult{}

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if err := m.restore(rec); err != nil {
			m.logger.Error().Err(err).
				Str("target", rec.TargetName).
				Str("path", rec.OriginalPath).
				Msg("Rollback failed for artifact")
			result.Failed = append(result.Failed, RollbackFailure{Record: rec, Err: err})
			continue
		}
		m.logger.Info().Str("target", rec.TargetName).Str("path", rec.OriginalPath).Msg("Restored artifact from backup")
		result.Restored = append(result.Restored, rec)
	}
	return result
}

func (m *Manager) restore(rec types.BackupRecord) error {
	if !rec.Existed {
		return os.RemoveAll(rec.OriginalPath)
	}

	content := filepath.Join(rec.BackupPath, filepath.Base(rec.OriginalPath))
	if _, err := os.Lstat(content); err != nil {
		return fmt.Errorf("backup content not found at %s: %w", content, err)
	}

	if err := os.RemoveAll(rec.OriginalPath); err != nil {
		return fmt.Errorf("cannot remove current content: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(rec.OriginalPath), 0755); err != nil {
		return err
	}
	return copy.Copy(content, rec.OriginalPath, copyOptions())
}

// Session collects the records taken inside Protect.
type Session struct {
	manager *Manager
	records []types.BackupRecord
}

// Backup snapshots path and registers the record for rollback.
func (s *Session) Backup(path, target string) (types.BackupRecord, error) {
	rec, err := s.manager.Backup(path, target)
	if err != nil {
		return rec, err
	}
	s.records = append(s.records, rec)
	return rec, nil
}

// Records returns the records taken so far, oldest first.
func (s *Session) Records() []types.BackupRecord {
	return append([]types.BackupRecord(nil), s.records...)
}

// Protect runs fn with a fresh Session. If fn returns an error or panics,
// every record the session took is rolled back before Protect returns the
// error or re-panics. A partial rollback is joined to fn's error.
func (m *Manager) Protect(fn func(*Session) error) (err error) {
	s := &Session{manager: m}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn().Int("records", len(s.records)).Msg("Panic during sync, rolling back")
			m.Rollback(s.records)
			panic(r)
		}
	}()

	if err = fn(s); err != nil {
		m.logger.Warn().Err(err).Int("records", len(s.records)).Msg("Sync failed, rolling back")
		if rbErr := m.Rollback(s.records).Err(); rbErr != nil {
			return stderrors.Join(err, rbErr)
		}
		return err
	}
	return nil
}
