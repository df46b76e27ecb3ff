package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// nameLayout is sortable and has one-second resolution.
	nameLayout = "20060102_150405"
	ext        = ".jpg"
)

// FileName returns the file name a capture taken at t is stored under.
func FileName(t time.Time) string {
	return t.Format(nameLayout) + ext
}

// ParseFileName returns the capture time encoded in name.
func ParseFileName(name string) (time.Time, error) {
	if !strings.HasSuffix(name, ext) {
		return time.Time{}, pkgerrors.Errorf("%s is not a capture", name)
	}
	t, err := time.ParseInLocation(nameLayout, strings.TrimSuffix(name, ext), time.Local)
	if err != nil {
		return time.Time{}, pkgerrors.Wrapf(err, "%s is not a capture", name)
	}
	return t, nil
}

// Dir stores captures as individual files in a directory.
type Dir struct {
	path string
}

// NewDir returns a Dir rooted at path. The directory is created on first write.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the directory captures are stored in.
func (d *Dir) Path() string {
	return d.path
}

// Save writes b unchanged to the file named after t and returns its path.
func (d *Dir) Save(t time.Time, b []byte) (string, error) {
	err := os.MkdirAll(d.path, 0755)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to create %s", d.path)
	}

	fn := filepath.Join(d.path, FileName(t))
	err = os.WriteFile(fn, b, 0644)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to write %s", fn)
	}

	logrus.Infof("file written to %s", fn)

	return fn, nil
}

// Prune removes captures taken more than maxAge before now. Files that are
// not named like captures are left alone.
func (d *Dir) Prune(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, pkgerrors.Wrapf(err, "failed to list %s", d.path)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		t, err := ParseFileName(e.Name())
		if err != nil {
			continue
		}
		if !t.Before(cutoff) {
			continue
		}
		fn := filepath.Join(d.path, e.Name())
		if err := os.Remove(fn); err != nil {
			logrus.Warnf("failed to remove %s: %v", fn, err)
			continue
		}
		removed++
	}

	return removed, nil
}
