package main

import (
	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove catalog entries for files that no longer exist",
	Long: `Remove every catalog entry whose path no longer names a regular file.

Entries whose path cannot be checked (permission errors, unreachable mounts)
are kept. Nothing on disk is touched.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := openEventLogger()
	defer logger.Close()

	result, err := newCatalog(db, fingerprint.MaxBytes).Prune()
	if err != nil {
		return err
	}

	for _, path := range result.Removed {
		util.PathLog(path)
		logger.LogPrune(path)
	}

	util.InfoLog("Checked %s records, removed %s", util.FormatCount(result.Checked), util.FormatCount(len(result.Removed)))
	if len(result.Errors) > 0 {
		util.WarnLog("%d records could not be checked and were kept", len(result.Errors))
	}
	return nil
}
