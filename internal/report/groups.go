package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/alessio/shellescape"
	"github.com/franz/deduplicator/internal/dupes"
	"github.com/natefinch/atomic"
)

const (
	groupHeader = "# ========== duplicated =========="
	groupFooter = "# ================================"
)

// Quote returns path quoted for reuse as a single shell word
func Quote(path string) string {
	return shellescape.Quote(path)
}

// WriteGroups writes the advisory duplicate report: one block per group,
// each candidate as a commented-out removal command
func WriteGroups(w io.Writer, groups []dupes.Group) error {
	bw := bufio.NewWriter(w)
	for _, g := range groups {
		fmt.Fprintln(bw, groupHeader)
		for _, p := range g.Paths {
			fmt.Fprintf(bw, "#rm %s\n", Quote(p))
		}
		fmt.Fprintln(bw, groupFooter)
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteGroupsFile writes the report to path atomically: readers see the
// previous file or the complete new one
func WriteGroupsFile(path string, groups []dupes.Group) error {
	var buf bytes.Buffer
	if err := WriteGroups(&buf, groups); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// Summary totals a set of groups
type Summary struct {
	Groups           int
	Files            int
	ReclaimableBytes int64
}

// Summarize computes totals for groups
func Summarize(groups []dupes.Group) Summary {
	s := Summary{Groups: len(groups)}
	for _, g := range groups {
		s.Files += len(g.Paths)
		s.ReclaimableBytes += g.Reclaimable()
	}
	return s
}
