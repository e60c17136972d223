package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/deduplicator/internal/fingerprint"
	"github.com/franz/deduplicator/internal/record"
	"github.com/franz/deduplicator/internal/store"
)

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckHome(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	result := checkHome()
	if result.error {
		t.Errorf("home check should never error: %s", result.message)
	}
	if result.message == "" {
		t.Error("expected home directory in message")
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	// Should not error - catalog will be created on first run
	if result.error {
		t.Errorf("non-existent catalog check should not error: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected message about catalog creation")
	}

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("doctor must not create the catalog")
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test catalog: %v", err)
	}

	rec := record.Record{
		Path:    "/test/path.bin",
		Size:    1024,
		ModTime: 1700000000,
		Digest:  fingerprint.Bytes([]byte("content")),
	}
	if err := db.Upsert(rec); err != nil {
		t.Fatalf("failed to insert test record: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("existing catalog check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected catalog stats in message")
	}
}

func TestCheckDatabase_Directory(t *testing.T) {
	result := checkDatabase(t.TempDir())

	if !result.error {
		t.Error("expected error when the catalog path is a directory")
	}
}

func TestCheckDatabase_Corrupt(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "garbage.db")
	if err := os.WriteFile(dbPath, []byte("this is not a sqlite database, not even close"), 0644); err != nil {
		t.Fatal(err)
	}

	result := checkDatabase(dbPath)

	if !result.error {
		t.Errorf("expected error for a corrupt catalog, got: %s", result.message)
	}
}

func TestCheckDatabase_LegacyLeftUntouched(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")

	// A catalog written before version tracking: only the dedup table
	legacy, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create legacy catalog: %v", err)
	}
	if _, err := legacy.Exec("CREATE TABLE dedup(dir TEXT PRIMARY KEY, size INTEGER, time INTEGER, hash BLOB);"); err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	legacy.Close()

	result := checkDatabase(dbPath)
	if result.error {
		t.Fatalf("legacy catalog check failed: %s", result.message)
	}
	if !result.warning {
		t.Errorf("expected a warning for a legacy catalog, got: %s", result.message)
	}

	db, err := store.OpenReadOnly(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		t.Fatal(err)
	}
	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Errorf("doctor must not migrate the catalog, schema version is %d", version)
	}
}

func TestCheckDatabase_MissingTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	other, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Exec("CREATE TABLE unrelated(x INTEGER)"); err != nil {
		t.Fatal(err)
	}
	other.Close()

	result := checkDatabase(dbPath)
	if !result.error {
		t.Errorf("expected error when records cannot be read, got: %s", result.message)
	}
}
