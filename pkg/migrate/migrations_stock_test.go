package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestToolCatalogMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_tool_catalog.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no tool catalog migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS tools",
		"CHECK (quantity >= 0)",
		"FOREIGN KEY (category_id) REFERENCES tool_categories(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS tools",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRequestsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_requests.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no requests migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS requests",
		"CREATE TABLE IF NOT EXISTS requested_tools",
		"CHECK (quantity > 0)",
		"FOREIGN KEY (request_id) REFERENCES requests(id) ON DELETE CASCADE",
		"CHECK (status IN ('Pending', 'Approved', 'Rejected'))",
		"DROP TABLE IF EXISTS requested_tools",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
