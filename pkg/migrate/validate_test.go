package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations should validate: %v", err)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_short_version.sql", "-- +goose Up\n-- +goose Down\n")

	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected error for non-timestamp version")
	}

	dir = t.TempDir()
	writeMigration(t, dir, "20250301000001_Bad-Name.sql", "-- +goose Up\n-- +goose Down\n")
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected error for uppercase/dash in name")
	}
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250301000001_first.sql", "-- +goose Up\n-- +goose Down\n")
	writeMigration(t, dir, "20250301000001_second.sql", "-- +goose Up\n-- +goose Down\n")

	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected error for duplicate version")
	}
}

func TestValidateDirRequiresGooseHeaders(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250301000001_no_down.sql", "-- +goose Up\nCREATE TABLE t (id INT);\n")
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected error for missing goose Down header")
	}

	dir = t.TempDir()
	writeMigration(t, dir, "20250301000001_no_up.sql", "-- +goose Down\nDROP TABLE t;\n")
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected error for missing goose Up header")
	}
}

func TestValidateDirIgnoresNonSQLFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "README.md", "notes")
	writeMigration(t, dir, "20250301000001_ok.sql", "-- +goose Up\n-- +goose Down\n")

	if err := ValidateDir(dir); err != nil {
		t.Fatalf("non-sql files should be skipped: %v", err)
	}
}

func TestValidateDirRejectsMissingDir(t *testing.T) {
	if err := ValidateDir(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
	if err := ValidateDir(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func writeMigration(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
