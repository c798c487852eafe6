// Package sysfs is a small key-value view over kernel attribute files.
// Keys are paths; values are the trimmed file contents.
package sysfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	// CPURoot is the cpufreq control tree.
	CPURoot = "/sys/devices/system/cpu"
	// LoadAvgPath is the system-wide load average source.
	LoadAvgPath = "/proc/loadavg"

	attrPerm = 0o644
)

// Store reads and writes attribute files on an afero filesystem.
type Store struct {
	fs afero.Fs
}

// New returns a Store over fs. A nil fs means the host filesystem.
func New(fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Store{fs: fs}
}

// Read returns the contents of path with surrounding whitespace removed.
func (s *Store) Read(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// Fields returns the whitespace-separated tokens of path.
func (s *Store) Fields(path string) ([]string, error) {
	value, err := s.Read(path)
	if err != nil {
		return nil, err
	}

	return strings.Fields(value), nil
}

// Write replaces the contents of an existing attribute. Attributes are
// never created: a missing path fails with fs.ErrNotExist.
func (s *Store) Write(path, value string) error {
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, attrPerm)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Exists reports whether path is present.
func (s *Store) Exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil
}

// IsPermission reports whether err is a permission failure.
func IsPermission(err error) bool {
	return err != nil && (os.IsPermission(err) || errors.Is(err, fs.ErrPermission))
}

// CPUAttr returns the path of a per-CPU cpufreq attribute.
func CPUAttr(root string, cpu int, attr string) string {
	return filepath.Join(root, "cpu"+strconv.Itoa(cpu), "cpufreq", attr)
}
