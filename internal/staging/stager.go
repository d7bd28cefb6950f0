package staging

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"github.com/dustin/go-humanize"
)

// ErrStaging marks failures to create, write or flush the staged file.
var ErrStaging = errors.New("staging failed")

// CleanupError reports that a staged file could not be removed. It is never
// fatal to the run.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("failed to remove staged file %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// Stager writes downloaded payloads to uniquely named temporary files.
type Stager struct {
	dir     string
	pattern string
	log     *logger.Logger
}

// NewStager returns a Stager creating files in dir (the OS temp dir when
// empty) named after pattern, whose last '*' is replaced by a random string.
func NewStager(dir, pattern string, log *logger.Logger) *Stager {
	return &Stager{
		dir:     dir,
		pattern: pattern,
		log:     log.Module("staging"),
	}
}

// Stage writes data to a new file and returns once it is flushed to disk.
// The caller owns the returned Artifact and must Release it.
func (s *Stager) Stage(data []byte) (*Artifact, error) {
	f, err := os.CreateTemp(s.dir, s.pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp file: %v", ErrStaging, err)
	}

	if err := writeAll(f, data); err != nil {
		f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.WithError(rmErr).Warnf("Failed to remove partial file %s", f.Name())
		}
		return nil, fmt.Errorf("%w: %v", ErrStaging, err)
	}

	path, err := filepath.Abs(f.Name())
	if err != nil {
		path = f.Name()
	}

	s.log.WithFields(logger.Fields{
		"path": path,
		"size": humanize.Bytes(uint64(len(data))),
	}).Debug("Staged artifact")

	return &Artifact{path: path, size: int64(len(data)), log: s.log}, nil
}

func writeAll(f *os.File, data []byte) error {
	bw := bufio.NewWriter(f)
	if _, err := bw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Name(), err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", f.Name(), err)
	}
	return nil
}

// Artifact is a staged file. Release removes it exactly once.
type Artifact struct {
	path string
	size int64
	log  *logger.Logger

	once       sync.Once
	releaseErr error
}

// Path is the absolute location of the staged file.
func (a *Artifact) Path() string { return a.path }

// Size is the number of bytes staged.
func (a *Artifact) Size() int64 { return a.size }

// Release deletes the staged file. Later calls return the first result
// without touching the filesystem again. A failure is logged as a warning and
// returned as *CleanupError.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		if err := os.Remove(a.path); err != nil {
			a.releaseErr = &CleanupError{Path: a.path, Err: err}
			a.log.WithError(err).Warnf("Failed to remove temporary file %s", a.path)
			return
		}
		a.log.Debugf("Successfully deleted file: %s", a.path)
	})
	return a.releaseErr
}

// CopyTo copies the staged file to dst so it outlives the release.
func (a *Artifact) CopyTo(dst string) error {
	src, err := os.Open(a.path)
	if err != nil {
		return fmt.Errorf("failed to open staged file: %w", err)
	}
	defer src.Close()

	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create destination directory: %w", err)
		}
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, src); err != nil {
		os.Remove(dst) // Clean up on failure
		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		os.Remove(dst) // Clean up on failure
		return fmt.Errorf("failed to sync file: %w", err)
	}

	a.log.WithField("dest", dst).Info("Copied staged artifact")
	return nil
}
