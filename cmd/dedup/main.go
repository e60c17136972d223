package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "dedup <dir>",
		Short: "Scan duplicated files under a directory",
		Long: `dedup catalogs every regular file under <dir>, fingerprints its content
(SHA-512 over at most the first 100 MiB) and prints groups of duplicates.

Fingerprints are kept in a catalog (~/.config/deduplicator/db) and only
recomputed when a file's modification time changes, so repeated scans are
cheap. The report is advisory: every candidate is printed as a commented-out
rm command, nothing is deleted.`,
		Version:       Version,
		Args:          dirArg,
		RunE:          runScan,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/deduplicator/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "catalog database file (default is ~/.config/deduplicator/db)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")
	rootCmd.PersistentFlags().String("events", "", "directory for a JSONL event log (disabled if empty)")

	// Scan flags
	rootCmd.Flags().String("policy", "modified", "when to recompute a fingerprint: missing, modified or different")
	rootCmd.Flags().Int64("max-bytes", fingerprint.MaxBytes, "hash at most this many leading bytes of each file (0 = whole file)")
	rootCmd.Flags().Bool("prune", false, "drop catalog entries for files that no longer exist before scanning")
	rootCmd.Flags().Bool("segment-prefix", false, "match the scanned directory on path boundaries (/a/b does not cover /a/bc)")
	rootCmd.Flags().Bool("loose-candidates", false, "list every path whose size repeats in a duplicate group, even with a different digest")
	rootCmd.Flags().StringP("out", "o", "", "write the report to this file instead of stdout")
	rootCmd.Flags().Bool("progress", false, "show a progress bar instead of one line per file (terminal only)")

	// Bind flags to viper
	for _, name := range []string{"db", "verbose", "quiet", "events"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	for _, name := range []string{"policy", "max-bytes", "prune", "segment-prefix", "loose-candidates", "out", "progress"} {
		viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else if home, err := util.HomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, util.CatalogDirName))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// DEDUP_DB, DEDUP_MAX_BYTES, ...
	viper.SetEnvPrefix("DEDUP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		util.DebugLog("Using config file: %s", viper.ConfigFileUsed())
	}

	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

// dirArg requires exactly one argument naming an existing directory
func dirArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		cmd.Usage()
		return fmt.Errorf("%w: expected exactly one directory, got %d arguments", util.ErrInvalidArgument, len(args))
	}
	info, err := os.Stat(args[0])
	if err != nil || !info.IsDir() {
		cmd.Usage()
		return fmt.Errorf("%w: `%s` is not a directory", util.ErrInvalidArgument, args[0])
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
