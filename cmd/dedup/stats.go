package main

import (
	"fmt"
	"io"
	"os"

	"github.com/franz/deduplicator/internal/store"
	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog totals",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	return printStats(os.Stdout, db)
}

func printStats(w io.Writer, db *store.Store) error {
	st, err := db.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Catalog:           %s\n", db.Path())
	fmt.Fprintf(w, "Records:           %s\n", util.FormatCount(st.Records))
	fmt.Fprintf(w, "Total size:        %s\n", util.FormatBytes(st.TotalBytes))
	fmt.Fprintf(w, "Duplicate groups:  %s\n", util.FormatCount(st.DuplicateGroups))
	fmt.Fprintf(w, "Reclaimable:       %s\n", util.FormatBytes(st.ReclaimableBytes))
	return nil
}
