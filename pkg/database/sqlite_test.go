package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeCreatesDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "filegate.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Fatalf("expected database directory to exist: %v", err)
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "schema.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema first run failed: %v", err)
	}
	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema second run failed: %v", err)
	}

	tables := []string{
		"smtp_config",
		"uploaded_files",
		"download_links",
		"downloads",
		"email_logs",
		"file_reports",
		"rate_limit_counters",
	}
	for _, table := range tables {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "fk.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	// file_reports.download_token references download_links.token; inserting
	// a report for a token that was never issued must fail.
	_, err = db.Exec(`
		INSERT INTO file_reports (download_token, file_name, reporter_email, reason)
		VALUES ('ghost-token', 'x.bin', 'a@example.com', 'spam')
	`)
	if err == nil {
		t.Fatal("expected foreign key violation for unknown download_token")
	}
}
