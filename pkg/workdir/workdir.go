// Package workdir owns the transient working directory for one run.
// The directory is created before any step executes and removed on every
// exit path; steps may write freely into it but never outlive it.
package workdir

import (
	"os"
	"sync"

	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/provisio-sh/provisio/pkg/logging"
	"github.com/rs/zerolog"
)

// WorkDir is an exclusively-owned scratch directory.
type WorkDir struct {
	path    string
	logger  zerolog.Logger
	release sync.Once
}

// Acquire creates a fresh working directory under base.
func Acquire(base string) (*WorkDir, error) {
	path, err := os.MkdirTemp(base, "provisio-*")
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrWorkdirCreate,
			"cannot create working directory under %s", base)
	}

	logger := logging.GetLogger("workdir")
	logger.Debug().Str("path", path).Msg("Working directory created")

	return &WorkDir{
		path:   path,
		logger: logger,
	}, nil
}

// Path returns the directory location.
func (w *WorkDir) Path() string {
	return w.path
}

// Release removes the working directory recursively. It is safe to call
// from a defer on any exit path and runs at most once. Removal failure is
// logged and swallowed: cleanup must never mask the run's real outcome.
func (w *WorkDir) Release() {
	w.release.Do(func() {
		if err := os.RemoveAll(w.path); err != nil {
			w.logger.Warn().Err(err).Str("path", w.path).Msg("Failed to remove working directory")
			return
		}
		w.logger.Debug().Str("path", w.path).Msg("Working directory removed")
	})
}
