package test_utils

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

// SetupTestDB creates an isolated in-memory SQLite database with all
// migrations applied. The database is closed when the test finishes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := applyMigrations(db); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return db
}

// SeedUser inserts a user row and returns its id so rows with user foreign
// keys can be stored.
func SeedUser(t *testing.T, db *sql.DB, username string) int {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO user (uid, username, display_name) VALUES (?, ?, ?)",
		"test-"+username, username, username,
	)
	if err != nil {
		t.Fatalf("Failed to seed user %s: %v", username, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read seeded user id: %v", err)
	}
	return int(id)
}

// SeedBudget inserts a budget row and returns its id.
func SeedBudget(t *testing.T, db *sql.DB, userId int, name string, limitCents int64) int {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO budget (user_id, name, amount_limit) VALUES (?, ?, ?)",
		userId, name, limitCents,
	)
	if err != nil {
		t.Fatalf("Failed to seed budget %s: %v", name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read seeded budget id: %v", err)
	}
	return int(id)
}

func applyMigrations(db *sql.DB) error {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %v", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %v", err)
	}

	migrationsPath := fmt.Sprintf("file://%s", filepath.Join(projectRoot, "migrations"))
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %v", err)
	}
	return nil
}

// findProjectRoot walks up from the working directory until it sees go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}
