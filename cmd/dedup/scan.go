package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/franz/deduplicator/internal/catalog"
	"github.com/franz/deduplicator/internal/dupes"
	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/report"
	"github.com/franz/deduplicator/internal/scan"
	"github.com/franz/deduplicator/internal/store"
	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/cobra"
)

// scanOptions carries everything one run needs, resolved from flags,
// environment and config file
type scanOptions struct {
	Dir             string
	Policy          catalog.Policy
	MaxBytes        int64
	Prune           bool
	SegmentedPrefix bool
	LooseCandidates bool
	Out             string
	Progress        bool
}

func loadScanOptions(dir string) (*scanOptions, error) {
	policy, err := catalog.ParsePolicy(GetConfigString("policy", "modified"))
	if err != nil {
		return nil, err
	}

	maxBytes := GetConfigInt64("max-bytes", fingerprint.MaxBytes)
	if maxBytes < 0 {
		return nil, fmt.Errorf("%w: max-bytes must not be negative", util.ErrInvalidConfig)
	}

	return &scanOptions{
		Dir:             dir,
		Policy:          policy,
		MaxBytes:        maxBytes,
		Prune:           GetConfigBool("prune"),
		SegmentedPrefix: GetConfigBool("segment-prefix"),
		LooseCandidates: GetConfigBool("loose-candidates"),
		Out:             GetConfigString("out", ""),
		Progress:        GetConfigBool("progress"),
	}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	opts, err := loadScanOptions(args[0])
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := openEventLogger()
	defer logger.Close()

	_, err = scanDirectory(cmd.Context(), db, opts, logger, os.Stdout)
	return err
}

// scanDirectory brings the catalog up to date for opts.Dir and writes the
// duplicate report to w (or to opts.Out when set)
func scanDirectory(ctx context.Context, db *store.Store, opts *scanOptions, logger *report.EventLogger, w io.Writer) ([]dupes.Group, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cat := newCatalog(db, opts.MaxBytes)

	logger.LogRun("start", map[string]string{
		"dir":       opts.Dir,
		"policy":    opts.Policy.String(),
		"max_bytes": strconv.FormatInt(opts.MaxBytes, 10),
	})

	if opts.Prune {
		pruned, err := cat.Prune()
		if err != nil {
			return nil, err
		}
		for _, path := range pruned.Removed {
			logger.LogPrune(path)
		}
		if len(pruned.Removed) > 0 {
			util.InfoLog("Pruned %d stale records", len(pruned.Removed))
		}
	}

	scanner := scan.New(&scan.Config{
		Catalog:  cat,
		Policy:   opts.Policy,
		Logger:   logger,
		Progress: opts.Progress,
	})

	result, err := scanner.Scan(ctx, opts.Dir)
	if err != nil {
		return nil, err
	}
	if !util.IsQuiet() {
		fmt.Fprintln(os.Stderr)
	}

	resolver := dupes.New(db, dupes.Options{
		SegmentedPrefix: opts.SegmentedPrefix,
		LooseCandidates: opts.LooseCandidates,
	})
	groups, err := resolver.Groups(opts.Dir)
	if err != nil {
		return nil, err
	}

	if opts.Out != "" {
		if err := report.WriteGroupsFile(opts.Out, groups); err != nil {
			return nil, err
		}
		util.InfoLog("Report written to %s", opts.Out)
	} else if err := report.WriteGroups(w, groups); err != nil {
		return nil, err
	}

	for _, g := range groups {
		logger.LogDuplicate(g.Digest.Hex(), g.Paths, g.Reclaimable())
	}

	summary := report.Summarize(groups)
	util.InfoLog("Scanned %s files: %s new, %s refreshed, %s unchanged, %s failed",
		util.FormatCount(result.Visited),
		util.FormatCount(result.Inserted),
		util.FormatCount(result.Refreshed),
		util.FormatCount(result.Unchanged),
		util.FormatCount(result.Failed))
	if summary.Groups > 0 {
		util.InfoLog("Found %d duplicate groups (%s files, %s reclaimable)",
			summary.Groups, util.FormatCount(summary.Files), util.FormatBytes(summary.ReclaimableBytes))
	} else {
		util.SuccessLog("No duplicates found")
	}

	logger.LogRun("end", map[string]string{
		"groups":  strconv.Itoa(summary.Groups),
		"visited": strconv.Itoa(result.Visited),
	})

	return groups, nil
}
