package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// corruptSuffixLayout names the copy a corrupted state file is moved to.
const corruptSuffixLayout = "20060102_150405"

// Store reads and writes the state file.
type Store struct {
	fs     afero.Fs
	path   string
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore returns a store for the state file at path on the OS filesystem.
func NewStore(path string) *Store {
	return NewStoreFs(afero.NewOsFs(), path)
}

// NewStoreFs returns a store backed by fs.
func NewStoreFs(fs afero.Fs, path string) *Store {
	return &Store{
		fs:     fs,
		path:   path,
		logger: logging.GetLogger("state"),
		now:    time.Now,
	}
}

// Path is the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields an empty state. A file
// that cannot be parsed is renamed to state.json.bak.<timestamp> and an
// empty state is returned so one bad write never blocks future syncs.
func (s *Store) Load() (*State, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("path", s.path).Msg("No state file, starting fresh")
			return New(), nil
		}
		return nil, errors.Wrapf(err, errors.ErrStateLoad, "failed to read state file %s", s.path).
			WithDetail("path", s.path)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil || st.Version < 1 {
		s.quarantine(err)
		return New(), nil
	}
	st.normalize()

	s.logger.Debug().
		Str("path", s.path).
		Int("targets", len(st.Targets)).
		Int("packages", len(st.Packages)).
		Msg("State loaded")
	return &st, nil
}

func (s *Store) quarantine(parseErr error) {
	aside := s.path + ".bak." + s.now().Format(corruptSuffixLayout)
	event := s.logger.Warn().Str("path", s.path).Str("moved_to", aside)
	if parseErr != nil {
		event = event.Err(parseErr)
	}

	if err := s.fs.Rename(s.path, aside); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to move corrupted state aside")
		return
	}
	event.Msg("State file was corrupted, starting fresh")
}

// Save writes st atomically: the document goes to a temp file in the same
// directory, is synced to disk and then renamed over the state file.
func (s *Store) Save(st *State) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrStateSave, "failed to create state directory %s", dir)
	}

	st.Version = Version
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrStateSave, "failed to encode state")
	}
	data = append(data, '\n')

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.ErrStateSave, "failed to create temp state file")
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.Wrap(err, errors.ErrStateSave, "failed to write temp state file")
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrStateSave, "failed to replace state file %s", s.path)
	}

	s.logger.Debug().Str("path", s.path).Int("targets", len(st.Targets)).Msg("State saved")
	return nil
}

func writeAndSync(f afero.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
