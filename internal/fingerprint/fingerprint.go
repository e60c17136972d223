package fingerprint

import (
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/afero"
)

const (
	// MaxBytes is the default cap on how much of a file is hashed (100 MiB)
	MaxBytes int64 = 100 * 1024 * 1024

	// chunkSize bounds every single read
	chunkSize = 1024
)

// Engine hashes file content read through an afero filesystem
type Engine struct {
	fs       afero.Fs
	maxBytes int64
}

// New creates an Engine. maxBytes <= 0 disables the cap for Fingerprint.
func New(fs afero.Fs, maxBytes int64) *Engine {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Engine{fs: fs, maxBytes: maxBytes}
}

// MaxBytesLimit returns the cap applied by Fingerprint (0 = uncapped)
func (e *Engine) MaxBytesLimit() int64 {
	if e.maxBytes <= 0 {
		return 0
	}
	return e.maxBytes
}

// Fingerprint hashes the file at path up to the engine's cap.
// Returns Zero if the file cannot be hashed; the failure is logged.
func (e *Engine) Fingerprint(path string) Digest {
	if e.maxBytes <= 0 {
		return e.File(path)
	}
	return e.FilePrefix(path, e.maxBytes)
}

// File hashes the whole file
func (e *Engine) File(path string) Digest {
	d, err := e.hash(path, -1)
	if err != nil {
		util.WarnLog("Failed to hash file %s: %v", path, err)
		return Zero
	}
	return d
}

// FilePrefix hashes at most maxBytes bytes from the start of the file
func (e *Engine) FilePrefix(path string, maxBytes int64) Digest {
	if maxBytes < 0 {
		maxBytes = 0
	}
	d, err := e.hash(path, maxBytes)
	if err != nil {
		util.WarnLog("Failed to hash file %s: %v", path, err)
		return Zero
	}
	return d
}

// Bytes hashes an in-memory buffer
func Bytes(data []byte) Digest {
	return Digest(sha512.Sum512(data))
}

var errNotRegular = errors.New("not a regular file")

// hash reads path in chunks of at most chunkSize bytes. limit < 0 means no limit.
func (e *Engine) hash(path string, limit int64) (Digest, error) {
	info, err := e.fs.Stat(path)
	if err != nil {
		return Zero, err
	}
	if !info.Mode().IsRegular() {
		return Zero, errNotRegular
	}

	f, err := e.fs.Open(path)
	if err != nil {
		return Zero, fmt.Errorf("failed to open: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit >= 0 {
		r = io.LimitReader(f, limit)
	}

	h := sha512.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Zero, fmt.Errorf("failed to read: %w", err)
		}
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}
