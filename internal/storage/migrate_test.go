package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func tableExists(t *testing.T, conn *sql.DB, name string) bool {
	t.Helper()
	var found string
	err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		t.Fatalf("Failed to query for table: %v", err)
	}
	return true
}

func TestMigrationManager_Up(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-test.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}
	if err := mgr.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	version, dirty, err := mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if dirty {
		t.Error("Database should not be dirty after migrations")
	}
	if version != 2 {
		t.Errorf("Expected version 2, got %d", version)
	}

	// Running again is a no-op.
	if err := mgr.Up(); err != nil {
		t.Fatalf("Second Up should be a no-op: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Failed to close migration manager: %v", err)
	}
}

func TestMigrationManager_Steps(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migration-steps.db")

	mgr, err := NewMigrationManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create migration manager: %v", err)
	}
	defer mgr.Close()

	if err := mgr.Up(); err != nil {
		t.Fatalf("Failed to run migrations up: %v", err)
	}
	if err := mgr.Steps(-1); err != nil {
		t.Fatalf("Failed to step down: %v", err)
	}

	version, _, err := mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1 after one step down, got %d", version)
	}

	if err := mgr.Down(); err != nil {
		t.Fatalf("Failed to roll back: %v", err)
	}
	version, _, err = mgr.Version()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != 0 {
		t.Errorf("Expected no version after full rollback, got %d", version)
	}
}

func TestOpen_AutoMigrateCreatesSchema(t *testing.T) {
	db, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "nested", "snapshots.db")))
	if err != nil {
		t.Fatalf("Failed to open database with migrations: %v", err)
	}
	defer db.Close()

	if !tableExists(t, db.Conn(), "snapshots") {
		t.Fatal("snapshots table does not exist after migration")
	}

	var index string
	err = db.Conn().QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_snapshots_view_id'`).Scan(&index)
	if err != nil {
		t.Errorf("Expected view index: %v", err)
	}
}
