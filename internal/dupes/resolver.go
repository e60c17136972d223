// Package dupes turns shared digests in the catalog into duplicate groups.
//
// Discovery can be limited to a directory, but candidates for each digest
// are always searched in the whole catalog: a copy outside the scanned
// tree is still a copy.
package dupes

import (
	"fmt"

	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/record"
	"github.com/franz/deduplicator/internal/store"
)

// Options control matching behaviour
type Options struct {
	// SegmentedPrefix bounds the scope on path separators. Off by default:
	// "/a/b" then also covers "/a/bc".
	SegmentedPrefix bool

	// LooseCandidates lists every path whose size repeats within the digest
	// group, even if its own digest differs. Off by default.
	LooseCandidates bool
}

// Group is one set of duplicate candidates for a digest
type Group struct {
	Digest fingerprint.Digest
	Paths  []string
	Sizes  []int64
}

// Reclaimable returns the bytes freed by keeping a single copy of each
// distinct size in the group
func (g Group) Reclaimable() int64 {
	seen := make(map[int64]bool, len(g.Sizes))
	var total int64
	for _, size := range g.Sizes {
		if seen[size] {
			total += size
		}
		seen[size] = true
	}
	return total
}

// Resolver queries duplicate groups from a store
type Resolver struct {
	store *store.Store
	opts  Options
}

// New creates a Resolver
func New(s *store.Store, opts Options) *Resolver {
	return &Resolver{store: s, opts: opts}
}

// Digests returns the digests shared by at least two records under dir.
// An empty dir searches the whole catalog.
func (r *Resolver) Digests(dir string) ([]fingerprint.Digest, error) {
	scope := store.Scope{Segmented: r.opts.SegmentedPrefix}
	if dir != "" {
		abs, err := record.Normalize(dir)
		if err != nil {
			return nil, err
		}
		scope.Prefix = abs
	}
	return r.store.DuplicateDigests(scope)
}

// CandidatesFor returns the candidate duplicate paths for digest
func (r *Resolver) CandidatesFor(digest fingerprint.Digest) ([]string, error) {
	candidates, err := r.store.Candidates(digest, !r.opts.LooseCandidates)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Path
	}
	return paths, nil
}

// Groups resolves every duplicate group discovered under dir.
// Digests whose records all differ in size yield no group.
func (r *Resolver) Groups(dir string) ([]Group, error) {
	digests, err := r.Digests(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate digests: %w", err)
	}

	groups := make([]Group, 0, len(digests))
	for _, d := range digests {
		if d.IsZero() {
			continue
		}
		candidates, err := r.store.Candidates(d, !r.opts.LooseCandidates)
		if err != nil {
			return nil, err
		}
		if len(candidates) < 2 {
			continue
		}

		g := Group{Digest: d}
		for _, c := range candidates {
			g.Paths = append(g.Paths, c.Path)
			g.Sizes = append(g.Sizes, c.Size)
		}
		groups = append(groups, g)
	}

	return groups, nil
}
