// Package checkpointer persists and schedules training checkpoints.
//
// A checkpoint is written to a temporary file in the destination
// directory and renamed into place, so a reader sees either the
// previous checkpoint or the new one, never a partial file.
package checkpointer

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/backo-go"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultRetries is the number of times a failed write is retried
const DefaultRetries = 3

// Store reads and writes checkpoint Bundles on a filesystem
type Store struct {
	fs      afero.Fs
	retries int
	backoff *backo.Backo
	logger  *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithRetries sets the number of times a failed write is retried
func WithRetries(retries int) Option {
	return func(s *Store) {
		s.retries = retries
	}
}

// WithBackoff sets the backoff policy between write retries
func WithBackoff(b *backo.Backo) Option {
	return func(s *Store) {
		s.backoff = b
	}
}

// WithLogger sets the logger used to report retried writes
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore returns a Store on fs. If fs is nil the OS filesystem is
// used.
func NewStore(fs afero.Fs, opts ...Option) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	s := &Store{
		fs:      fs,
		retries: DefaultRetries,
		backoff: backo.NewBacko(100*time.Millisecond, 2, 0.1, 5*time.Second),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fs returns the filesystem of the Store
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Save atomically writes b to path. Failed writes are retried with
// exponential backoff; if every attempt fails the returned error
// matches ErrTransient.
func (s *Store) Save(path string, b Bundle) error {
	if err := b.Validate(); err != nil {
		return errors.Wrap(err, "unable to save invalid bundle")
	}
	data, err := encode(b)
	if err != nil {
		return err
	}

	var lastErr error
	attempts := s.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := s.backoff.Duration(attempt - 1)
			s.logger.Warn("retrying checkpoint write",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(lastErr))
			time.Sleep(wait)
		}

		if lastErr = s.write(path, data); lastErr == nil {
			return nil
		}
	}
	return &transientError{cause: lastErr, attempts: attempts}
}

// write writes data to a temporary file next to path and renames it
// to path
func (s *Store) write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "unable to create directory %s", dir)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary file")
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(name)
		return errors.Wrap(err, "unable to write checkpoint")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(name)
		return errors.Wrap(err, "unable to sync checkpoint")
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(name)
		return errors.Wrap(err, "unable to close checkpoint")
	}

	if err := s.fs.Rename(name, path); err != nil {
		s.fs.Remove(name)
		return errors.Wrapf(err, "unable to rename checkpoint to %s", path)
	}
	return nil
}

// Load reads the Bundle at path. The error matches ErrNotFound if
// there is no file at path, ErrCorrupt if the file cannot be decoded,
// and ErrIncompatible if it was written in another format version.
func (s *Store) Load(path string) (Bundle, error) {
	data, err := afero.ReadFile(s.fs, path)
	if os.IsNotExist(err) {
		return Bundle{}, errors.Wrapf(ErrNotFound, "%s", path)
	} else if err != nil {
		return Bundle{}, errors.Wrapf(err, "unable to read checkpoint %s",
			path)
	}

	b, err := decode(data)
	if err != nil {
		return Bundle{}, errors.Wrapf(err, "%s", path)
	}
	return b, nil
}

// Exists returns whether a checkpoint file exists at path
func (s *Store) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

// Remove deletes the checkpoint at path if there is one
func (s *Store) Remove(path string) error {
	err := s.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "unable to remove checkpoint %s", path)
	}
	return nil
}
