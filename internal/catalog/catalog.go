// Package catalog keeps the persisted file records in step with the
// filesystem. It decides when a fingerprint must be recomputed and prunes
// records for files that are gone.
package catalog

import (
	"fmt"
	"strings"

	"github.com/franz/deduplicator/internal/record"
	"github.com/franz/deduplicator/internal/store"
	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/afero"
)

// Policy selects when a stored record is recomputed
type Policy int

const (
	// UpdateNonExisting recomputes only paths with no record
	UpdateNonExisting Policy = iota
	// UpdateModified also recomputes when the modification time changed
	UpdateModified
	// UpdateDifferent always re-hashes and rewrites when the digest changed
	UpdateDifferent
)

// String returns the policy name used on the command line
func (p Policy) String() string {
	switch p {
	case UpdateNonExisting:
		return "missing"
	case UpdateModified:
		return "modified"
	case UpdateDifferent:
		return "different"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "missing", "non-existing", "new":
		return UpdateNonExisting, nil
	case "", "modified", "mtime":
		return UpdateModified, nil
	case "different", "hash", "content":
		return UpdateDifferent, nil
	default:
		return UpdateModified, fmt.Errorf("%w: unknown update policy %q (want missing, modified or different)", util.ErrInvalidConfig, s)
	}
}

// Outcome describes what an update did
type Outcome int

const (
	// Unchanged means the stored record was trusted as is
	Unchanged Outcome = iota
	// Inserted means a record was created for a new path
	Inserted
	// Refreshed means an existing record was replaced
	Refreshed
	// Failed means the file could not be observed; nothing was written
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Inserted:
		return "inserted"
	case Refreshed:
		return "refreshed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Catalog applies staleness policies against a store
type Catalog struct {
	store    *store.Store
	observer *record.Observer
}

// New creates a Catalog. The store is owned by the caller.
func New(s *store.Store, observer *record.Observer) *Catalog {
	if observer == nil {
		observer = record.NewObserver(nil, nil)
	}
	return &Catalog{store: s, observer: observer}
}

// Fs returns the filesystem records are observed on
func (c *Catalog) Fs() afero.Fs {
	return c.observer.Fs()
}

// Lookup returns the stored record for path (sentinel if none)
func (c *Catalog) Lookup(path string) (record.Record, error) {
	return c.store.Lookup(path)
}

// Update applies policy p to path
func (c *Catalog) Update(path string, p Policy) (Outcome, error) {
	switch p {
	case UpdateNonExisting:
		return c.UpdateNonExisting(path)
	case UpdateModified:
		return c.UpdateModified(path)
	case UpdateDifferent:
		return c.UpdateDifferent(path)
	default:
		return Failed, fmt.Errorf("%w: %s", util.ErrInvalidConfig, p)
	}
}

// UpdateNonExisting records path only if it is not in the catalog yet
func (c *Catalog) UpdateNonExisting(path string) (Outcome, error) {
	stored, err := c.store.Lookup(path)
	if err != nil {
		return Failed, err
	}
	if !stored.NoStatus() {
		return Unchanged, nil
	}
	return c.write(c.observer.Observe(path), Inserted)
}

// UpdateModified re-records path when it is new or its modification time
// (in whole seconds) differs from the stored one. A size change alone is
// not a signal.
func (c *Catalog) UpdateModified(path string) (Outcome, error) {
	stored, err := c.store.Lookup(path)
	if err != nil {
		return Failed, err
	}
	if stored.NoStatus() {
		return c.write(c.observer.Observe(path), Inserted)
	}

	facts, err := c.observer.Stat(stored.Path)
	if err != nil {
		util.WarnLog("Failed to get info about %s: %v", stored.Path, err)
		return Failed, nil
	}
	if facts.ModTime == stored.ModTime {
		return Unchanged, nil
	}
	return c.write(c.observer.Observe(stored.Path), Refreshed)
}

// UpdateDifferent re-hashes path and rewrites the record when the digest
// differs from the stored one
func (c *Catalog) UpdateDifferent(path string) (Outcome, error) {
	stored, err := c.store.Lookup(path)
	if err != nil {
		return Failed, err
	}
	if stored.NoStatus() {
		return c.write(c.observer.Observe(path), Inserted)
	}

	fresh := c.observer.Observe(stored.Path)
	if fresh.NoStatus() {
		return Failed, nil
	}
	if fresh.Digest == stored.Digest {
		return Unchanged, nil
	}
	return c.write(fresh, Refreshed)
}

// write persists r unless it is a sentinel, in which case the stored
// record (if any) is left as it was
func (c *Catalog) write(r record.Record, success Outcome) (Outcome, error) {
	if r.NoStatus() {
		return Failed, nil
	}
	if err := c.store.Upsert(r); err != nil {
		return Failed, err
	}
	return success, nil
}
