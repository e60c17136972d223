package main

import (
	"fmt"

	"github.com/franz/deduplicator/internal/catalog"
	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/record"
	"github.com/franz/deduplicator/internal/report"
	"github.com/franz/deduplicator/internal/store"
	"github.com/franz/deduplicator/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (DEDUP_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt64 retrieves an int64 config value; unset keys yield defaultValue
func GetConfigInt64(key string, defaultValue int64) int64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt64(key)
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(key string) bool {
	return viper.GetBool(key)
}

// catalogPath resolves the catalog location: --db / DEDUP_DB / config,
// otherwise ~/.config/deduplicator/db
func catalogPath() (string, error) {
	if p := GetConfigString("db", ""); p != "" {
		return p, nil
	}
	p, err := util.DefaultCatalogPath()
	if err != nil {
		return "", fmt.Errorf("%w; data file could not be located", err)
	}
	return p, nil
}

// openStore opens the catalog, creating it if needed
func openStore() (*store.Store, error) {
	dbPath, err := catalogPath()
	if err != nil {
		return nil, err
	}
	util.DebugLog("Opening catalog: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", dbPath, err)
	}
	return db, nil
}

// newCatalog wires the catalog to the OS filesystem
func newCatalog(db *store.Store, maxBytes int64) *catalog.Catalog {
	fs := afero.NewOsFs()
	engine := fingerprint.New(fs, maxBytes)
	return catalog.New(db, record.NewObserver(fs, engine))
}

// openEventLogger returns the JSONL logger if --events is set
func openEventLogger() *report.EventLogger {
	dir := GetConfigString("events", "")
	if dir == "" {
		return report.NullLogger()
	}

	level := report.LevelInfo
	if util.IsVerbose() {
		level = report.LevelDebug
	} else if util.IsQuiet() {
		level = report.LevelWarning
	}

	logger, err := report.NewEventLogger(dir, level)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	util.InfoLog("Event log: %s", logger.Path())
	return logger
}
