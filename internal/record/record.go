// Package record models one catalog entry: what is known about a file's
// content at the moment it was last fingerprinted.
package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/afero"
)

var (
	// ErrNoStatus is returned when a sentinel record would be persisted
	ErrNoStatus = errors.New("record has no valid status")

	// ErrEmptyPath is returned for an empty path
	ErrEmptyPath = errors.New("empty path")

	// ErrNotRegular is returned when a path does not name a regular file
	ErrNotRegular = errors.New("not a regular file")
)

// Record is one catalog entry.
// Size, ModTime and Digest always describe the same observation of the file.
type Record struct {
	Path    string
	Size    int64
	ModTime int64 // Unix seconds
	Digest  fingerprint.Digest
}

// NoStatus reports whether r is the sentinel "no valid data" record
func (r Record) NoStatus() bool {
	return r.Digest.IsZero()
}

// Equal reports content equality: same size and same digest.
// Path and ModTime are ignored.
func (r Record) Equal(other Record) bool {
	return r.Size == other.Size && r.Digest == other.Digest
}

// Sentinel returns a NO_STATUS record carrying only the path
func Sentinel(path string) Record {
	return Record{Path: path}
}

// Facts are the current filesystem attributes of a path
type Facts struct {
	Path    string
	Size    int64
	ModTime int64
}

// Normalize returns the absolute, lexically cleaned form of path
func Normalize(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// Stat reads the current size and modification time of a regular file.
// It has no side effects and does not hash.
func Stat(fs afero.Fs, path string) (Facts, error) {
	abs, err := Normalize(path)
	if err != nil {
		return Facts{}, err
	}
	info, err := fs.Stat(abs)
	if err != nil {
		return Facts{Path: abs}, err
	}
	if !info.Mode().IsRegular() {
		return Facts{Path: abs}, fmt.Errorf("%s: %w", abs, ErrNotRegular)
	}
	return Facts{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime().Unix(),
	}, nil
}

// IsGone reports whether a Stat error means the path no longer names a
// regular file (as opposed to a transient access failure). A parent
// directory replaced by a file (ENOTDIR) counts as gone.
func IsGone(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, ErrNotRegular)
}

// Hasher computes a content fingerprint for a path.
// *fingerprint.Engine satisfies it.
type Hasher interface {
	Fingerprint(path string) fingerprint.Digest
}

// Observer builds records from the filesystem
type Observer struct {
	fs     afero.Fs
	hasher Hasher
}

// NewObserver creates an Observer
func NewObserver(fs afero.Fs, hasher Hasher) *Observer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if hasher == nil {
		hasher = fingerprint.New(fs, fingerprint.MaxBytes)
	}
	return &Observer{fs: fs, hasher: hasher}
}

// Fs returns the filesystem the observer reads
func (o *Observer) Fs() afero.Fs {
	return o.fs
}

// Stat returns current facts for path
func (o *Observer) Stat(path string) (Facts, error) {
	return Stat(o.fs, path)
}

// Observe constructs a record for path and refreshes it immediately
func (o *Observer) Observe(path string) Record {
	r := Record{Path: path}
	o.Refresh(&r)
	return r
}

// Refresh re-reads size, modification time and digest for r.Path.
// On any failure r becomes a sentinel record and the condition is logged.
func (o *Observer) Refresh(r *Record) {
	facts, err := o.Stat(r.Path)
	if err != nil {
		if errors.Is(err, ErrEmptyPath) {
			util.WarnLog("Failed to get info about empty path")
		} else {
			util.WarnLog("Failed to get info about %s: %v", r.Path, err)
		}
		*r = Sentinel(facts.Path)
		return
	}

	digest := o.hasher.Fingerprint(facts.Path)
	if digest.IsZero() {
		*r = Sentinel(facts.Path)
		return
	}

	*r = Record{
		Path:    facts.Path,
		Size:    facts.Size,
		ModTime: facts.ModTime,
		Digest:  digest,
	}
}
