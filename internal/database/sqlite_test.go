package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "test.db")})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n == 1
}

func TestRunMigrations(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrationManager(db)

	if err := m.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}
	for _, table := range []string{"user", "activity", "trackpoint", "migrations"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s missing", table)
		}
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if !applied[1] || !applied[2] {
		t.Errorf("applied = %v, want versions 1 and 2", applied)
	}

	// second run is a no-op
	if err := m.RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations() error: %v", err)
	}
}

func TestDropSchema(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrationManager(db)
	if err := m.RunMigrations(); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO activity (id, start_date_time, end_date_time) VALUES (1, 0, 0)`); err != nil {
		t.Fatal(err)
	}

	if err := DropSchema(db); err != nil {
		t.Fatalf("DropSchema() error: %v", err)
	}
	if tableExists(t, db, "activity") {
		t.Fatal("activity table should be dropped")
	}

	if err := m.RunMigrations(); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM activity`).Scan(&n); err != nil || n != 0 {
		t.Errorf("recreated activity table has %d rows (err %v)", n, err)
	}
}

func TestTransactionRollback(t *testing.T) {
	db := openTestDB(t)
	if err := NewMigrationManager(db).RunMigrations(); err != nil {
		t.Fatal(err)
	}

	sentinel := errors.New("abort")
	err := Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO "user" (id) VALUES ('001')`); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Transaction() error = %v, want sentinel", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "user"`).Scan(&n); err != nil || n != 0 {
		t.Errorf("rolled back insert is visible: %d rows (err %v)", n, err)
	}
}
