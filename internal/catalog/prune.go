package catalog

import (
	"fmt"

	"github.com/franz/deduplicator/internal/record"
	"github.com/franz/deduplicator/internal/util"
)

// PruneResult summarizes a prune pass
type PruneResult struct {
	Checked int
	Removed []string
	Errors  []error
}

// Prune deletes every record whose path no longer names a regular file.
// Per-path failures are logged and collected; the pass always completes.
func (c *Catalog) Prune() (*PruneResult, error) {
	// Collect first: the store runs on a single connection, so deleting
	// while a result set is open would block
	paths, err := c.store.Paths()
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	result := &PruneResult{}
	for _, path := range paths {
		result.Checked++

		_, err := record.Stat(c.Fs(), path)
		if err == nil {
			continue
		}
		if !record.IsGone(err) {
			util.WarnLog("Keeping record: %v", err)
			result.Errors = append(result.Errors, err)
			continue
		}

		if err := c.store.Delete(path); err != nil {
			util.WarnLog("Failed to remove %s from catalog: %v", path, err)
			result.Errors = append(result.Errors, err)
			continue
		}
		util.DebugLog("Pruned: %s", path)
		result.Removed = append(result.Removed, path)
	}

	return result, nil
}
