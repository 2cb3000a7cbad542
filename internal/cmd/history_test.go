package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// firstRunID returns the short run id on the first data row of a history
// listing.
func firstRunID(t *testing.T, listing string) string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(listing), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected a header and at least one run, got:\n%s", listing)
	}
	fields := strings.Fields(lines[1])
	if len(fields) == 0 {
		t.Fatalf("empty run row in:\n%s", listing)
	}
	return fields[0]
}

func TestHistoryEmpty(t *testing.T) {
	t.Setenv("SUBSTRCOUNT_HOME", t.TempDir())

	stdout, _, err := executeCommand(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(stdout, "No runs recorded yet") {
		t.Errorf("expected empty-history message, got: %q", stdout)
	}
}

func TestHistoryNoHistoryFlag(t *testing.T) {
	dir := setupTree(t)

	if _, _, err := executeCommand(t, "scan", dir, "abc", "--no-history"); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	stdout, _, err := executeCommand(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(stdout, "No runs recorded yet") {
		t.Errorf("--no-history run should not be recorded, got:\n%s", stdout)
	}
}

func TestHistoryListAndShow(t *testing.T) {
	dir := setupTree(t)

	scanOut, _, err := executeCommand(t, "scan", dir, "abc")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	listing, _, err := executeCommand(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(listing, dir) || !strings.Contains(listing, `"abc"`) {
		t.Errorf("listing should show root and pattern, got:\n%s", listing)
	}
	id := firstRunID(t, listing)

	shown, _, err := executeCommand(t, "history", "show", id)
	if err != nil {
		t.Fatalf("history show failed: %v", err)
	}
	if shown != scanOut {
		t.Errorf("stored report differs from the printed one\nscan:\n%s\nshow:\n%s", scanOut, shown)
	}

	yamlOut, _, err := executeCommand(t, "history", "show", id, "--format", "yaml", "--sort")
	if err != nil {
		t.Fatalf("history show --format yaml failed: %v", err)
	}
	if !strings.Contains(yamlOut, filepath.Join(dir, "a.txt")+": 3") {
		t.Errorf("yaml report missing a.txt, got:\n%s", yamlOut)
	}

	summary, _, err := executeCommand(t, "history", "show", id, "--summary")
	if err != nil {
		t.Fatalf("history show --summary failed: %v", err)
	}
	for _, want := range []string{"Files scanned: 6", "Total matches: 7", "Strategy: pool"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q, got:\n%s", want, summary)
		}
	}
}

func TestHistoryLimit(t *testing.T) {
	dir := setupTree(t)
	for i := 0; i < 3; i++ {
		if _, _, err := executeCommand(t, "scan", dir, "abc"); err != nil {
			t.Fatalf("scan %d failed: %v", i, err)
		}
	}

	listing, _, err := executeCommand(t, "history", "--limit", "2")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	rows := strings.Split(strings.TrimSpace(listing), "\n")
	if len(rows) != 3 {
		t.Errorf("expected header plus 2 runs, got %d lines:\n%s", len(rows), listing)
	}
}

func TestHistoryShowUnknownRun(t *testing.T) {
	dir := setupTree(t)
	if _, _, err := executeCommand(t, "scan", dir, "abc"); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	_, _, err := executeCommand(t, "history", "show", "not-a-run")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected run not found error, got: %v", err)
	}
}

func TestHistoryExplicitDB(t *testing.T) {
	dir := setupTree(t)
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "history:\n  db_path: "+dbPath+"\n")

	if _, _, err := executeCommand(t, "scan", dir, "abc", "--config", configPath); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	listing, _, err := executeCommand(t, "history", "--db", dbPath)
	if err != nil {
		t.Fatalf("history --db failed: %v", err)
	}
	firstRunID(t, listing)

	// The configured path is used when --db is not given
	listing, _, err = executeCommand(t, "history", "--config", configPath)
	if err != nil {
		t.Fatalf("history --config failed: %v", err)
	}
	firstRunID(t, listing)

	// The default database was never written
	stdout, _, err := executeCommand(t, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(stdout, "No runs recorded yet") {
		t.Errorf("default database should be empty, got:\n%s", stdout)
	}
}

func TestHistoryDoesNotCreateHome(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("SUBSTRCOUNT_HOME", home)

	if _, _, err := executeCommand(t, "history"); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if _, _, err := executeCommand(t, "history", "show", "abc"); err == nil {
		t.Error("expected error without a history database")
	}

	if _, err := os.Stat(home); !os.IsNotExist(err) {
		t.Errorf("read-only history commands should not create %s, stat error = %v", home, err)
	}
}
