package main

import (
	"fmt"
	"os"

	"github.com/franz/deduplicator/internal/store"
	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and catalog",
	Long: `Run diagnostic checks to ensure dedup can operate correctly.

This command checks:
- SQLite driver version
- Home directory resolution
- Catalog accessibility and integrity`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== dedup doctor ===")
	util.InfoLog("")

	results := []checkResult{
		checkSQLite(),
		checkHome(),
	}

	dbPath, err := catalogPath()
	if err != nil {
		results = append(results, checkResult{name: "Catalog", error: true, message: err.Error()})
	} else {
		results = append(results, checkDatabase(dbPath))
	}

	util.InfoLog("")

	hasErrors := false
	hasWarnings := false
	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some checks failed")
		return fmt.Errorf("diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings")
	} else {
		util.SuccessLog("All checks passed")
	}
	return nil
}

// checkSQLite verifies the embedded driver answers
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

func checkHome() checkResult {
	home, err := util.HomeDir()
	if err != nil {
		return checkResult{
			name:    "Home directory",
			warning: true,
			message: fmt.Sprintf("%v (pass --db explicitly)", err),
		}
	}
	return checkResult{name: "Home directory", message: home}
}

// checkDatabase verifies catalog accessibility
func checkDatabase(dbPath string) checkResult {
	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Catalog",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.OpenReadOnly(dbPath)
	if err != nil {
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	count, err := db.Count()
	if err != nil {
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: fmt.Sprintf("cannot read records: %v", err),
		}
	}

	message := fmt.Sprintf("%s (%s, %s records)", dbPath, util.FormatBytes(info.Size()), util.FormatCount(count))
	version, err := db.SchemaVersion()
	if err != nil {
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: fmt.Sprintf("cannot read schema version: %v", err),
		}
	}
	if version == 0 {
		return checkResult{
			name:    "Catalog",
			warning: true,
			message: message + "; written by an older version, it will be upgraded and re-hashed on the next scan",
		}
	}
	return checkResult{name: "Catalog", message: message}
}
