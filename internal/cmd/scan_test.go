package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTree creates a directory with a few files and points the
// substrcount home at a fresh temp dir.
func setupTree(t *testing.T) string {
	t.Helper()
	t.Setenv("SUBSTRCOUNT_HOME", t.TempDir())

	dir := t.TempDir()
	files := map[string]string{
		"a.txt":             "abcabcabc",
		"b.log":             "xxabcxx",
		"sub/c.txt":         "no match here",
		"vendor/skip.txt":   "abcabc",
		".hidden/dot.txt":   "abc",
		"sub/deeper/d.text": "aaaa",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func decodeReport(t *testing.T, data string) map[string]int {
	t.Helper()
	var counts map[string]int
	if err := json.Unmarshal([]byte(data), &counts); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, data)
	}
	return counts
}

func TestScanCommandArgs(t *testing.T) {
	t.Setenv("SUBSTRCOUNT_HOME", t.TempDir())

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no args", []string{"scan"}, "accepts 2 arg(s)"},
		{"one arg", []string{"scan", "."}, "accepts 2 arg(s)"},
		{"empty substring", []string{"scan", ".", ""}, "substring must not be empty"},
		{"missing root", []string{"scan", filepath.Join(t.TempDir(), "nope"), "x"}, "nope"},
		{"bad strategy", []string{"scan", ".", "x", "--strategy", "fifo"}, "invalid configuration"},
		{"bad format", []string{"scan", ".", "x", "--format", "xml"}, "invalid configuration"},
		{"bad timeout", []string{"scan", ".", "x", "--timeout", "soon"}, "invalid timeout format"},
		{"bad name pattern", []string{"scan", ".", "x", "--name-pattern", "("}, "invalid configuration"},
		{"buffer smaller than substring", []string{"scan", ".", "abcdef", "--buffer-size", "4"}, "buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeCommand(t, tt.args...)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
			if stdout != "" {
				t.Errorf("nothing should be printed on stdout, got: %q", stdout)
			}
		})
	}
}

func TestScanCommandJSON(t *testing.T) {
	dir := setupTree(t)

	for _, strategy := range []string{"pool", "batch"} {
		t.Run(strategy, func(t *testing.T) {
			stdout, _, err := executeCommand(t, "scan", dir, "abc", "--strategy", strategy, "--workers", "2", "--batch-size", "2")
			if err != nil {
				t.Fatalf("scan failed: %v", err)
			}

			counts := decodeReport(t, stdout)
			want := map[string]int{
				filepath.Join(dir, "a.txt"):             3,
				filepath.Join(dir, "b.log"):             1,
				filepath.Join(dir, "sub/c.txt"):         0,
				filepath.Join(dir, "vendor/skip.txt"):   2,
				filepath.Join(dir, ".hidden/dot.txt"):   1,
				filepath.Join(dir, "sub/deeper/d.text"): 0,
			}
			if len(counts) != len(want) {
				t.Fatalf("got %d entries, want %d: %v", len(counts), len(want), counts)
			}
			for path, n := range want {
				if counts[path] != n {
					t.Errorf("count[%s] = %d, want %d", path, counts[path], n)
				}
			}
		})
	}
}

func TestScanCommandFilters(t *testing.T) {
	dir := setupTree(t)

	stdout, _, err := executeCommand(t, "scan", dir, "abc",
		"--exclude-dir", "vendor", "--skip-hidden", "--ext", ".txt")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	counts := decodeReport(t, stdout)
	if len(counts) != 2 {
		t.Fatalf("expected a.txt and sub/c.txt only, got: %v", counts)
	}
	if counts[filepath.Join(dir, "a.txt")] != 3 {
		t.Errorf("a.txt count = %d, want 3", counts[filepath.Join(dir, "a.txt")])
	}
	if _, ok := counts[filepath.Join(dir, "sub/c.txt")]; !ok {
		t.Error("sub/c.txt should be reported with a zero count")
	}
}

func TestScanCommandSortedYAML(t *testing.T) {
	dir := setupTree(t)

	stdout, _, err := executeCommand(t, "scan", dir, "abc", "--format", "yaml", "--sort", "--max-depth", "1")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	aLine := filepath.Join(dir, "a.txt") + ": 3"
	bLine := filepath.Join(dir, "b.log") + ": 1"
	if !strings.Contains(stdout, aLine) || !strings.Contains(stdout, bLine) {
		t.Fatalf("yaml report missing entries, got:\n%s", stdout)
	}
	if strings.Index(stdout, aLine) > strings.Index(stdout, bLine) {
		t.Errorf("keys should be sorted, got:\n%s", stdout)
	}
	if strings.Contains(stdout, "sub") {
		t.Errorf("max-depth 1 should exclude subdirectories, got:\n%s", stdout)
	}
}

func TestScanCommandOutputFile(t *testing.T) {
	dir := setupTree(t)
	out := filepath.Join(t.TempDir(), "report.json")

	stdout, _, err := executeCommand(t, "scan", dir, "abc", "--output", out)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout should be empty with --output, got: %q", stdout)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if counts := decodeReport(t, string(data)); len(counts) != 6 {
		t.Errorf("got %d entries, want 6", len(counts))
	}
}

func TestScanCommandConfigFile(t *testing.T) {
	dir := setupTree(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	config := `strategy: batch
format: yaml
filters:
  exclude_dirs: [vendor, sub]
  skip_hidden: true
history:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := executeCommand(t, "scan", dir, "abc", "--config", configPath)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(stdout, filepath.Join(dir, "a.txt")+": 3") {
		t.Errorf("expected yaml output from config, got:\n%s", stdout)
	}
	if strings.Contains(stdout, "vendor") || strings.Contains(stdout, ".hidden") {
		t.Errorf("config filters not applied, got:\n%s", stdout)
	}

	// Flags beat the config file
	stdout, _, err = executeCommand(t, "scan", dir, "abc", "--config", configPath, "--format", "json")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	decodeReport(t, stdout)
}

func TestScanCommandUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := setupTree(t)
	locked := filepath.Join(dir, "locked.txt")
	if err := os.WriteFile(locked, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0644) })

	stdout, stderr, err := executeCommand(t, "scan", dir, "abc")
	if err != nil {
		t.Fatalf("an unreadable file should not fail the run: %v", err)
	}

	counts := decodeReport(t, stdout)
	if _, ok := counts[locked]; ok {
		t.Error("unreadable file should be left out of the report")
	}
	if len(counts) != 6 {
		t.Errorf("got %d entries, want 6", len(counts))
	}
	if !strings.Contains(stderr, locked+": ") {
		t.Errorf("stderr should carry '<path>: <error>', got:\n%s", stderr)
	}
}

func TestScanCommandLogDir(t *testing.T) {
	dir := setupTree(t)
	logDir := t.TempDir()

	if _, _, err := executeCommand(t, "scan", dir, "abc", "--log-dir", logDir, "--no-history"); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("latest.log not written: %v", err)
	}
	if !strings.Contains(string(data), "Total matches: 7") {
		t.Errorf("run log should contain the summary, got:\n%s", data)
	}
}

func TestScanCommandQuietByDefault(t *testing.T) {
	dir := setupTree(t)

	_, stderr, err := executeCommand(t, "scan", dir, "abc")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if stderr != "" {
		t.Errorf("stderr should carry only failures by default, got:\n%s", stderr)
	}

	_, stderr, err = executeCommand(t, "scan", dir, "abc", "--log-level", "info")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(stderr, "Scanning "+dir) || !strings.Contains(stderr, "Total matches: 7") {
		t.Errorf("info level should log start and summary, got:\n%s", stderr)
	}
}

func TestScanCommandSkipsOwnFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SUBSTRCOUNT_HOME", filepath.Join(dir, ".substrcount"))
	writeFile(t, filepath.Join(dir, "a.txt"), "needle")

	out := filepath.Join(dir, "report.json")
	args := []string{"scan", dir, "needle", "--output", out, "--log-dir", filepath.Join(dir, "logs")}

	var reports []map[string]int
	for i := 0; i < 2; i++ {
		if _, _, err := executeCommand(t, args...); err != nil {
			t.Fatalf("scan %d failed: %v", i, err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("report file not written: %v", err)
		}
		reports = append(reports, decodeReport(t, string(data)))
	}

	want := map[string]int{filepath.Join(dir, "a.txt"): 1}
	for i, counts := range reports {
		if len(counts) != 1 || counts[filepath.Join(dir, "a.txt")] != 1 {
			t.Errorf("run %d report = %v, want %v", i, counts, want)
		}
	}
}
