package database

import (
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		driver      string
		dsn         string
		expectError bool
	}{
		{
			name:   "sqlite file",
			driver: DriverSQLite,
			dsn:    filepath.Join(t.TempDir(), "new.db"),
		},
		{
			name:   "sqlite in memory",
			driver: DriverSQLite,
			dsn:    ":memory:",
		},
		{
			name:        "unknown driver",
			driver:      "mysql",
			dsn:         "whatever",
			expectError: true,
		},
		{
			name:        "sqlite missing directory",
			driver:      DriverSQLite,
			dsn:         filepath.Join(t.TempDir(), "missing", "dir", "x.db"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(tt.driver, tt.dsn)
			defer func() {
				if db != nil {
					db.Close()
				}
			}()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if db.Conn() == nil {
				t.Error("Expected database connection but got nil")
			}
			if db.Driver() != tt.driver {
				t.Errorf("Expected driver %s, got %s", tt.driver, db.Driver())
			}
		})
	}
}

func TestNewPostgres(t *testing.T) {
	connStr, cleanup := setupTestDB(t, "test_new")
	defer cleanup()

	db, err := New(DriverPostgres, connStr)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer db.Close()

	var result int
	if err := db.Conn().QueryRow("SELECT 1").Scan(&result); err != nil {
		t.Errorf("Failed to execute basic query: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		version, err := db.Version()
		if err != nil {
			t.Fatalf("Failed to read version: %v", err)
		}
		if want := migrations[len(migrations)-1].Version; version != want {
			t.Errorf("Expected schema version %d, got %d", want, version)
		}

		// Running again is a no-op
		if err := db.Migrate(); err != nil {
			t.Fatalf("Second migration run failed: %v", err)
		}

		for _, table := range []string{"batches", "batch_sentences", "batch_results", "unlisted_terms"} {
			var n int
			if err := db.Conn().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
				t.Errorf("Table %s not usable: %v", table, err)
			}
		}
	})
}

func TestMigrationVersionsAscend(t *testing.T) {
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version != migrations[i-1].Version+1 {
			t.Errorf("Migration %s has version %d after %d", migrations[i].Name, migrations[i].Version, migrations[i-1].Version)
		}
	}
}

func TestRebind(t *testing.T) {
	sqlite := &DB{driver: DriverSQLite}
	postgres := &DB{driver: DriverPostgres}

	query := "SELECT * FROM batches WHERE id = ? AND status = ? LIMIT ?"

	if got := sqlite.rebind(query); got != query {
		t.Errorf("SQLite query should be unchanged, got %q", got)
	}
	want := "SELECT * FROM batches WHERE id = $1 AND status = $2 LIMIT $3"
	if got := postgres.rebind(query); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestClose(t *testing.T) {
	db, err := New(DriverSQLite, filepath.Join(t.TempDir(), "close.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}
}
