package store

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("embedded migrations: %v", err)
	}
	entries, err := fs.ReadDir(sub, ".")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d{4})_[a-z0-9_]+\.up\.sql$`)
	seen := map[string]bool{}
	for _, entry := range entries {
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			t.Fatalf("migration %q does not follow NNNN_name.up.sql", entry.Name())
		}
		if seen[match[1]] {
			t.Fatalf("duplicate migration version %s", match[1])
		}
		seen[match[1]] = true

		contents, err := fs.ReadFile(sub, entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if len(strings.TrimSpace(string(contents))) == 0 {
			t.Fatalf("migration %s is empty", entry.Name())
		}
	}
	if len(seen) == 0 {
		t.Fatal("no migrations discovered")
	}
}

func TestSeedProvisionsCatchAllRows(t *testing.T) {
	contents, err := fs.ReadFile(embeddedMigrations, "migrations/0002_seed_catalog.up.sql")
	if err != nil {
		t.Fatalf("read seed migration: %v", err)
	}
	seed := string(contents)

	// The reserved catch-all rows the claim flow depends on.
	for _, want := range []string{"'cat-other'", "'item-other'", "'item-other-' || id"} {
		if !strings.Contains(seed, want) {
			t.Errorf("seed migration missing %s", want)
		}
	}
}
